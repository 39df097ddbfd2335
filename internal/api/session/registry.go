// Package session keeps the live sessions served over HTTP.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/cryptodash/internal/core"
	"github.com/newthinker/cryptodash/internal/live"
)

type entry struct {
	session   *live.Session
	createdAt time.Time
}

// Registry holds live sessions by id. It is bounded: when full, the oldest
// stopped session is evicted to make room. Running sessions are never
// evicted.
type Registry struct {
	sessions map[string]*entry
	order    []string // insertion order for eviction
	maxSize  int
	mu       sync.RWMutex
}

// NewRegistry creates a registry holding at most maxSize sessions. Zero means
// unbounded.
func NewRegistry(maxSize int) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		maxSize:  maxSize,
	}
}

// NewID returns a fresh session id.
func (r *Registry) NewID() string {
	return uuid.New().String()
}

// Add registers s.
func (r *Registry) Add(s *live.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID()]; exists {
		return core.WrapError(core.ErrSessionRunning, fmt.Errorf("duplicate session id %s", s.ID()))
	}
	if r.maxSize > 0 && len(r.sessions) >= r.maxSize && !r.evictLocked() {
		return core.WrapError(core.ErrTooManySessions, fmt.Errorf("%d sessions running", len(r.sessions)))
	}

	r.sessions[s.ID()] = &entry{session: s, createdAt: time.Now()}
	r.order = append(r.order, s.ID())
	return nil
}

func (r *Registry) evictLocked() bool {
	for i, id := range r.order {
		if r.sessions[id].session.State() != live.Stopped {
			continue
		}
		delete(r.sessions, id)
		r.order = append(r.order[:i:i], r.order[i+1:]...)
		return true
	}
	return false
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*live.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, core.WrapError(core.ErrSessionNotFound, fmt.Errorf("%s", id))
	}
	return e.session, nil
}

// Remove forgets the session with id without stopping it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// List returns snapshots of all sessions, oldest first.
func (r *Registry) List() []live.Snapshot {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].createdAt.Before(entries[j].createdAt)
	})

	out := make([]live.Snapshot, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.session.Snapshot())
	}
	return out
}

// Active returns the number of polling sessions.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.sessions {
		if e.session.State() == live.Polling {
			n++
		}
	}
	return n
}

// Len returns the number of sessions held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StopAll stops every session. Used on shutdown.
func (r *Registry) StopAll() {
	r.mu.RLock()
	sessions := make([]*live.Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		sessions = append(sessions, e.session)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.Stop()
	}
}
