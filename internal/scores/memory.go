// internal/scores/memory.go
//
// In-memory implementation of Store.
// Used in tests and when SCORE_BACKEND=memory; state is lost on restart.
// Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).

package scores

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memory struct {
	mu      sync.RWMutex // guards entries
	entries []Entry      // kept sorted, len <= Cap
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{}
}

func (m *memory) Record(_ context.Context, playerName string, score int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{PlayerName: playerName, Score: score, At: at})
	sort.SliceStable(m.entries, func(i, j int) bool { return ranksAbove(m.entries[i], m.entries[j]) })
	if len(m.entries) > Cap {
		m.entries = m.entries[:Cap]
	}
	return nil
}

func (m *memory) Top(_ context.Context, n int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n = min(limit(n), len(m.entries))
	return append([]Entry{}, m.entries[:n]...), nil
}

func (m *memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}
