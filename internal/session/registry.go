// internal/session/registry.go
//
// In-memory index of live sessions.
//
// Characteristics:
//   - Sessions keyed by id in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Removing a session closes it.

package session

import (
	"sort"
	"sync"

	"github.com/robalobadob/wordleai/internal/metrics"
)

// Registry indexes live sessions by id. Removing a session closes it, so
// engine references are released when the session is torn down, not later.
type Registry struct {
	mu       sync.RWMutex // guards sessions
	sessions map[string]*Session
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers s under its id.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[s.ID()]; ok {
		old.Close()
	} else {
		metrics.SessionOpened()
	}
	r.sessions[s.ID()] = s
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// Remove closes and forgets a session.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	metrics.SessionClosed()
	return nil
}

// IDs lists registered session ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close tears down every session.
func (r *Registry) Close() {
	for _, id := range r.IDs() {
		_ = r.Remove(id)
	}
}
