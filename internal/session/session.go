// Package session bridges one client WebSocket connection to the registry.
//
// A Session runs three goroutines: a read task that waits for the client's
// identity and then only tracks liveness, a write task that drains the
// session's sink to the wire one frame pair at a time, and a heartbeat that
// pings the client. Whichever ends first tears the whole session down.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/filedrop/internal/delivery"
	"github.com/rickgao/filedrop/internal/metrics"
	"github.com/rickgao/filedrop/internal/registry"
)

// Session is one connected client device.
type Session struct {
	cfg      Config
	conn     Conn
	registry *registry.Registry
	recorder delivery.Recorder
	logger   *slog.Logger

	// Owned exclusively by this session; the registry only references it.
	sink *delivery.Sink

	mu         sync.RWMutex
	identity   string
	registered bool

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a session for conn. Nothing happens until Run.
func New(conn Conn, reg *registry.Registry, cfg Config, recorder delivery.Recorder, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = delivery.NopRecorder{}
	}

	return &Session{
		cfg:      cfg,
		conn:     conn,
		registry: reg,
		recorder: recorder,
		logger:   logger,
		sink:     delivery.NewSink(cfg.QueueInitialCapacity, cfg.MaxQueueDepth),
		done:     make(chan struct{}),
	}
}

// Run serves the connection until it closes, a task fails, ctx is
// cancelled or Close is called. It returns nil on a clean disconnect.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer s.stop()
		return s.readLoop()
	})
	g.Go(func() error {
		defer s.stop()
		return s.writeLoop()
	})
	g.Go(func() error {
		return s.heartbeatLoop(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			s.stop()
		case <-s.done:
		}
		return nil
	})

	err := g.Wait()

	identity, registered := s.Identity()
	if registered {
		metrics.RecordSession(metrics.SessionClosed)
	}
	s.logger.Debug("session ended",
		"identity", identity,
		"registered", registered,
		"error", err,
	)
	return err
}

// Close stops the session. Safe to call more than once and concurrently with Run.
func (s *Session) Close() {
	s.stop()
}

// Done is closed once the session has begun tearing down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Identity returns the declared identity and whether it was registered.
func (s *Session) Identity() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.registered
}

// Pending returns the number of units waiting in the sink.
func (s *Session) Pending() int {
	return s.sink.Len()
}

func (s *Session) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// stop tears the session down exactly once: unregister (own handle only),
// close the sink, close the connection, account for unwritten units.
func (s *Session) stop() {
	s.stopOnce.Do(func() {
		close(s.done)

		// Holding mu orders this against register: either the identity is
		// already in the registry and gets removed here, or register sees
		// done closed and never inserts it.
		s.mu.Lock()
		identity, registered := s.identity, s.registered
		if registered && s.registry.Unregister(identity, s.sink) {
			metrics.SetSessionsOnline(s.registry.Len())
			s.logger.Info("client offline", "identity", identity)
		}
		s.mu.Unlock()

		s.sink.Close()

		// Best effort; the peer may already be gone.
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = s.conn.Close()

		for _, u := range s.sink.DrainTo(0) {
			s.record(u, delivery.OutcomeDropped)
		}
	})
}

// readLoop waits for the identity frame, registers, then only keeps
// liveness. Its return is the disconnect signal.
func (s *Session) readLoop() error {
	if s.cfg.IdentifyTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.IdentifyTimeout))
	}

	messageType, data, err := s.conn.ReadMessage()
	if err != nil {
		if s.stopped() {
			return nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			metrics.RecordSession(metrics.SessionRejected)
			return ErrIdentifyTimeout
		}
		return fmt.Errorf("read identity: %w", err)
	}

	identity, err := delivery.ParseIdentity(messageType, data)
	if err != nil {
		metrics.RecordProtocolViolation(metrics.SideHub)
		metrics.RecordSession(metrics.SessionRejected)
		s.logger.Warn("rejecting client", "error", err)
		return err
	}

	if !s.register(identity) {
		return nil
	}

	s.extendReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.stopped() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		s.extendReadDeadline()

		s.logger.Debug("ignoring inbound frame",
			"identity", identity,
			"type", messageType,
			"bytes", len(data),
		)
	}
}

// register publishes the session's sink under identity. It reports false
// when teardown has already begun, in which case nothing is registered.
func (s *Session) register(identity string) bool {
	s.mu.Lock()
	if s.stopped() {
		s.mu.Unlock()
		return false
	}
	s.identity = identity
	s.registered = true
	prev := s.registry.Register(identity, s.sink)
	s.mu.Unlock()

	if prev != nil {
		s.logger.Warn("identity taken over by new connection", "identity", identity)
	}
	metrics.RecordSession(metrics.SessionRegistered)
	metrics.SetSessionsOnline(s.registry.Len())
	s.logger.Info("client online", "identity", identity)
	return true
}

func (s *Session) extendReadDeadline() {
	if s.cfg.PongWait > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	}
}

// writeLoop is the sink's only consumer and the connection's only data
// writer, so each unit's two frames go out back to back in FIFO order.
func (s *Session) writeLoop() error {
	for {
		u, ok := s.sink.Receive()
		if !ok {
			return nil
		}
		if s.stopped() {
			s.record(u, delivery.OutcomeDropped)
			continue
		}

		if s.cfg.WriteTimeout > 0 {
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := delivery.WriteUnit(s.conn, u); err != nil {
			s.record(u, delivery.OutcomeDropped)
			if s.stopped() {
				return nil
			}
			return err
		}

		s.record(u, delivery.OutcomeWritten)
		identity, _ := s.Identity()
		s.logger.Debug("delivered",
			"identity", identity,
			"delivery_id", u.ID,
			"filename", u.Filename,
			"bytes", u.Size(),
			"latency", time.Since(u.QueuedAt),
		)
	}
}

// heartbeatLoop pings the client. WriteControl may run concurrently with
// the write task's data frames.
func (s *Session) heartbeatLoop(ctx context.Context) error {
	if s.cfg.PingInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-ticker.C:
			wait := s.cfg.WriteTimeout
			if wait <= 0 {
				wait = 10 * time.Second
			}
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wait)); err != nil {
				if s.stopped() {
					return nil
				}
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (s *Session) record(u delivery.Unit, outcome delivery.Outcome) {
	identity, _ := s.Identity()
	s.recorder.Record(delivery.NewEvent(identity, u, outcome))
	metrics.RecordDelivery(string(outcome), u.Size())
}
