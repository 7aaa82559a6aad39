// internal/store/memory.go
//
// In-memory registry of live game sessions.
// Sessions own timers and goroutines, so they never leave the process: the HTTP layer
// creates them, looks them up by ID and closes them on delete or when idle.
//
// Characteristics:
//   - Stores *game.Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Get refreshes the session's last-seen time; Sweep closes idle sessions.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/colormatch/internal/game"
)

// ErrNotFound is returned for unknown or already-deleted session IDs.
var ErrNotFound = errors.New("session not found")

// Store defines the registry interface for live sessions.
type Store interface {
	// Save registers or replaces a session under its ID.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by ID.
	// Returns ErrNotFound if the session is not registered.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete closes and removes a session.
	Delete(ctx context.Context, id string) error

	// Sweep closes and removes sessions not seen for longer than idle and returns their IDs.
	Sweep(ctx context.Context, idle time.Duration) []string

	// Len reports the number of registered sessions.
	Len() int
}

type entry struct {
	session  *game.Session
	lastSeen time.Time
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex      // guards sessions map
	sessions map[string]*entry // keyed by Session.ID()
	now      func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*entry), now: time.Now}
}

// Save adds or replaces the session. A replaced session is closed.
func (m *memory) Save(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	prev := m.sessions[s.ID()]
	m.sessions[s.ID()] = &entry{session: s, lastSeen: m.now()}
	m.mu.Unlock()
	if prev != nil && prev.session != s {
		prev.session.Close()
	}
	return nil
}

func (m *memory) Get(_ context.Context, id string) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e.session, nil
}

func (m *memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.session.Close()
	return nil
}

func (m *memory) Sweep(_ context.Context, idle time.Duration) []string {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	var ids []string
	var stale []*game.Session
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			ids = append(ids, id)
			stale = append(stale, e.session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return ids
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
