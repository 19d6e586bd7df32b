package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/filedrop/internal/delivery"
	"github.com/rickgao/filedrop/internal/metrics"
)

// Receiver keeps one identified connection to the hub open and saves the
// files it is sent.
type Receiver struct {
	cfg    Config
	logger *slog.Logger
	store  *Store
	dialer websocket.Dialer

	mu    sync.RWMutex
	stats Stats
}

// New validates cfg and prepares the download directory.
func New(cfg Config, logger *slog.Logger) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	store, err := NewStore(cfg.Dir)
	if err != nil {
		return nil, err
	}

	return &Receiver{
		cfg:    cfg,
		logger: logger.With("identity", cfg.Identity),
		store:  store,
		dialer: websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}, nil
}

// Run connects and serves until ctx ends, reconnecting after every
// disconnect. It returns nil when ctx is cancelled.
func (r *Receiver) Run(ctx context.Context) error {
	bo := newBackoff(r.cfg.ReconnectBaseWait, r.cfg.ReconnectMaxWait)

	for {
		identified, err := r.serveOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if identified {
			bo.reset()
		}

		r.mu.Lock()
		r.stats.Connected = false
		if err != nil {
			r.stats.LastError = err.Error()
		}
		r.mu.Unlock()

		r.logger.Warn("disconnected from hub, reconnecting",
			"error", err,
			"wait_base", bo.current,
		)
		if !bo.wait(ctx) {
			return nil
		}
	}
}

// Stats returns current statistics.
func (r *Receiver) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// serveOnce runs a single connection. identified reports whether the
// identity frame went out, which resets the reconnect backoff.
func (r *Receiver) serveOnce(ctx context.Context) (identified bool, err error) {
	conn, _, err := r.dialer.DialContext(ctx, r.cfg.HubURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial hub: %w", err)
	}
	defer conn.Close()

	if r.cfg.MaxFrameBytes > 0 {
		conn.SetReadLimit(r.cfg.MaxFrameBytes)
	}

	// Unblock ReadMessage when ctx ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			conn.Close()
		case <-stop:
		}
	}()

	r.setWriteDeadline(conn)
	if err := conn.WriteMessage(delivery.TextFrame, delivery.IdentityFrame(r.cfg.Identity)); err != nil {
		return false, fmt.Errorf("send identity: %w", err)
	}

	r.mu.Lock()
	r.stats.Connects++
	r.stats.Connected = true
	r.mu.Unlock()
	r.logger.Info("connected to hub", "url", r.cfg.HubURL)

	defer func() {
		r.mu.Lock()
		r.stats.Disconnects++
		r.mu.Unlock()
	}()

	r.extendReadDeadline(conn)
	conn.SetPingHandler(func(data string) error {
		r.extendReadDeadline(conn)
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(r.writeTimeout()))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	var pairer delivery.Pairer
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, nil
			}
			return true, fmt.Errorf("read: %w", err)
		}
		r.extendReadDeadline(conn)

		unit, ok, err := pairer.Accept(messageType, data)
		if err != nil {
			r.mu.Lock()
			r.stats.Violations++
			r.mu.Unlock()
			metrics.RecordProtocolViolation(metrics.SideReceiver)
			r.logger.Warn("protocol violation from hub", "error", err)
		}
		if ok {
			r.save(unit)
		}
	}
}

func (r *Receiver) save(u delivery.Unit) {
	path, err := r.store.Save(u.Filename, u.Payload)
	if err != nil {
		r.mu.Lock()
		r.stats.SaveErrors++
		r.stats.LastError = err.Error()
		r.mu.Unlock()
		r.logger.Error("failed to save file", "filename", u.Filename, "error", err)
		return
	}

	r.mu.Lock()
	r.stats.FilesSaved++
	r.stats.BytesSaved += int64(u.Size())
	r.stats.LastSavedAs = path
	r.stats.LastSavedAt = time.Now()
	r.mu.Unlock()

	r.logger.Info("file received",
		"filename", u.Filename,
		"path", path,
		"bytes", u.Size(),
	)
}

func (r *Receiver) writeTimeout() time.Duration {
	if r.cfg.WriteTimeout > 0 {
		return r.cfg.WriteTimeout
	}
	return 10 * time.Second
}

func (r *Receiver) setWriteDeadline(conn *websocket.Conn) {
	conn.SetWriteDeadline(time.Now().Add(r.writeTimeout()))
}

func (r *Receiver) extendReadDeadline(conn *websocket.Conn) {
	if r.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
	}
}
