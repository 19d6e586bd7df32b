// Package registry tracks which client devices are online.
//
// The Registry maps a client identity to the delivery sink of the session
// currently holding that identity. It is the single source of truth for
// routing: a client is online exactly when Lookup finds it.
package registry

import (
	"sort"
	"sync"

	"github.com/rickgao/filedrop/internal/delivery"
)

// Registry is a concurrency-safe identity -> sink map.
//
// Every operation takes the one RWMutex, so operations are linearizable.
// The Registry does not own sessions; it holds their sinks by reference.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*delivery.Sink
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		clients: make(map[string]*delivery.Sink),
	}
}

// Register maps identity to sink, replacing any earlier entry.
// It returns the replaced sink, or nil. The replaced session keeps running
// but is no longer reachable by the router.
func (r *Registry) Register(identity string, sink *delivery.Sink) *delivery.Sink {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.clients[identity]
	r.clients[identity] = sink
	if prev == sink {
		return nil
	}
	return prev
}

// Unregister removes identity only if it still maps to sink, so a late
// disconnect cannot evict a newer session under the same identity.
// It reports whether an entry was removed and is safe to call repeatedly.
func (r *Registry) Unregister(identity string, sink *delivery.Sink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[identity]
	if !ok || current != sink {
		return false
	}
	delete(r.clients, identity)
	return true
}

// Lookup returns the sink registered for identity.
func (r *Registry) Lookup(identity string) (*delivery.Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, ok := r.clients[identity]
	return sink, ok
}

// ListOnline returns the registered identities in sorted order.
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.clients))
	for identity := range r.clients {
		out = append(out, identity)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
