package scores

import (
	"context"
	"sync"
)

// Best tracks the highest score seen by this process. It satisfies game.BestTracker.
type Best struct {
	mu    sync.RWMutex
	score int
}

// NewBest starts the tracker at initial.
func NewBest(initial int) *Best { return &Best{score: initial} }

// LoadBest seeds a tracker from the store's current top entry.
func LoadBest(ctx context.Context, st Store) (*Best, error) {
	top, err := st.Top(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return NewBest(0), nil
	}
	return NewBest(top[0].Score), nil
}

// Offer records score if it beats the current best and reports whether it did.
func (b *Best) Offer(score int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if score <= b.score {
		return false
	}
	b.score = score
	return true
}

// Value returns the current best.
func (b *Best) Value() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.score
}

// Reset drops the best back to zero (used when the score list is cleared).
func (b *Best) Reset() {
	b.mu.Lock()
	b.score = 0
	b.mu.Unlock()
}
