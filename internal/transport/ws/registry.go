package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Sink is the outbound half of a live connection. Implementations must be
// comparable (pointer types are) because Unregister matches by identity.
type Sink interface {
	Send(data []byte) error
}

// Registry maps each user to the single connection that currently receives
// their events. It is the only source of truth for "is this user reachable";
// the stored status column is a mirror.
//
// A second connection for the same user replaces the first without closing
// it. The replaced connection keeps running but no longer receives fan-out.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]Sink
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]Sink)}
}

// Register installs sink for userID and returns the sink it replaced, if any.
func (r *Registry) Register(userID uuid.UUID, sink Sink) (replaced Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced = r.conns[userID]
	r.conns[userID] = sink
	return replaced
}

// Unregister removes the entry for userID only if it still points at sink.
// It reports whether an entry was removed; a stale close racing a newer
// connection returns false and leaves the newer one in place.
func (r *Registry) Unregister(userID uuid.UUID, sink Sink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[userID]; ok && cur == sink {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *Registry) Lookup(userID uuid.UUID) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.conns[userID]
	return sink, ok
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Online returns a snapshot of every registered user id.
func (r *Registry) Online() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
