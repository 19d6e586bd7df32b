// Package router resolves a target identity to its session's sink and
// enqueues deliveries on it.
//
// Delivery is online-only and best-effort: a target that is not registered
// is reported immediately, nothing is held for clients that connect later,
// and a unit that loses a race with its session's teardown is dropped.
package router

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/rickgao/filedrop/internal/delivery"
	"github.com/rickgao/filedrop/internal/metrics"
	"github.com/rickgao/filedrop/internal/queue"
	"github.com/rickgao/filedrop/internal/registry"
)

// Router routes uploaded files to online clients.
type Router interface {
	// Deliver enqueues filename+payload for target. It never blocks on the
	// network; the target session's write task does the sending.
	Deliver(target, filename string, payload []byte) (Receipt, error)

	// ListOnline returns the identities that can currently be targeted.
	ListOnline() []string

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	registry *registry.Registry
	recorder delivery.Recorder
	logger   *slog.Logger

	mu    sync.Mutex
	stats RouterStats
}

// New creates a Router over reg. recorder may be nil.
func New(reg *registry.Registry, recorder delivery.Recorder, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = delivery.NopRecorder{}
	}

	return &router{
		registry: reg,
		recorder: recorder,
		logger:   logger,
	}
}

// Deliver looks up target and enqueues one Unit on its sink.
func (r *router) Deliver(target, filename string, payload []byte) (Receipt, error) {
	r.count(func(s *RouterStats) { s.Requests++ })

	unit, err := delivery.NewUnit(filename, payload)
	if err != nil {
		r.count(func(s *RouterStats) { s.Invalid++ })
		return Receipt{}, err
	}

	sink, ok := r.registry.Lookup(target)
	if !ok {
		r.count(func(s *RouterStats) { s.TargetNotFound++ })
		r.record(target, unit, delivery.OutcomeTargetNotFound)
		r.logger.Info("delivery target not online",
			"target", target,
			"filename", filename,
		)
		return Receipt{}, ErrTargetNotFound
	}

	receipt := Receipt{
		ID:       unit.ID,
		Target:   target,
		Filename: unit.Filename,
		Size:     unit.Size(),
		QueuedAt: unit.QueuedAt,
	}

	switch err := sink.Send(unit); {
	case err == nil:
		r.count(func(s *RouterStats) { s.Queued++ })
		r.record(target, unit, delivery.OutcomeQueued)
		r.logger.Debug("delivery queued",
			"delivery_id", unit.ID,
			"target", target,
			"filename", filename,
			"bytes", unit.Size(),
		)
		return receipt, nil

	case errors.Is(err, queue.ErrFull):
		r.count(func(s *RouterStats) { s.Rejected++ })
		r.record(target, unit, delivery.OutcomeRejected)
		r.logger.Warn("delivery queue full",
			"target", target,
			"filename", filename,
		)
		return Receipt{}, ErrQueueFull

	default:
		// Session tore down between Lookup and Send.
		r.count(func(s *RouterStats) { s.Dropped++ })
		r.record(target, unit, delivery.OutcomeDropped)
		r.logger.Warn("delivery dropped, target disconnecting",
			"delivery_id", unit.ID,
			"target", target,
			"filename", filename,
		)
		return receipt, nil
	}
}

// ListOnline returns the registered identities.
func (r *router) ListOnline() []string {
	return r.registry.ListOnline()
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *router) count(fn func(*RouterStats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

func (r *router) record(target string, u delivery.Unit, outcome delivery.Outcome) {
	r.recorder.Record(delivery.NewEvent(target, u, outcome))
	metrics.RecordDelivery(string(outcome), u.Size())
}
