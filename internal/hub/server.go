package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/filedrop/internal/delivery"
	"github.com/rickgao/filedrop/internal/metrics"
	"github.com/rickgao/filedrop/internal/registry"
	"github.com/rickgao/filedrop/internal/router"
	"github.com/rickgao/filedrop/internal/session"
)

// Server serves the WebSocket endpoint and the upload API.
type Server struct {
	cfg      Config
	registry *registry.Registry
	router   router.Router
	recorder delivery.Recorder
	logger   *slog.Logger

	engine     *gin.Engine
	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
	startedAt  time.Time

	// Sessions outlive their HTTP request once hijacked, so the server
	// tracks them itself for shutdown.
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	sessions map[*session.Session]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// New creates a hub server. recorder may be nil.
func New(cfg Config, reg *registry.Registry, rt router.Router, recorder delivery.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = delivery.NopRecorder{}
	}
	if cfg.WSPath == "" {
		cfg.WSPath = "/ws"
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:       cfg,
		registry:  reg,
		router:    rt,
		recorder:  recorder,
		logger:    logger,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[*session.Session]struct{}),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     s.checkOrigin,
	}

	if cfg.MetricsEnabled {
		metrics.Register()
	}
	s.engine = s.buildEngine()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler: s.engine,
		// The upgrader clears both deadlines on hijacked connections.
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("hub server error", "error", err)
		}
	}()

	s.logger.Info("hub listening",
		"addr", ln.Addr().String(),
		"ws_path", s.cfg.WSPath,
		"metrics", s.cfg.MetricsEnabled,
	)
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.ListenAddr
}

// Stop shuts the HTTP server down gracefully, then closes every live session.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	live := len(s.sessions)
	s.mu.Unlock()

	s.logger.Info("stopping hub", "sessions", live)

	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = s.httpServer.Shutdown(ctx)
	}

	// http.Server does not track hijacked connections.
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("hub stopped")
	case <-ctx.Done():
		s.logger.Warn("hub stop timed out waiting for sessions")
		return ctx.Err()
	}

	return shutdownErr
}

// SessionCount returns the number of connected sockets, identified or not.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) buildEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	if s.cfg.MetricsEnabled {
		r.Use(requestMetrics())
	}
	r.Use(cors.New(s.corsConfig()))

	r.SetHTMLTemplate(dashboardTemplate)

	r.GET(s.cfg.WSPath, s.handleWS)
	r.POST("/upload", s.handleUpload)
	r.GET("/clients", s.handleClients)
	r.GET("/health", s.handleHealth)
	r.GET("/", s.handleDashboard)

	if s.cfg.MetricsEnabled && s.cfg.MetricsPath != "" {
		r.GET(s.cfg.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cfg
}

// checkOrigin admits non-browser clients (no Origin header) and any
// configured origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// track adds sess to the live set; false once the server is closing.
func (s *Server) track(sess *session.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(sess *session.Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	s.wg.Done()
}
