// internal/scores/scores.go
//
// Score store: a bounded, descending list of finished-session scores.
//
// Characteristics shared by every backend:
//   - At most Cap entries are kept; on overflow the lowest score is dropped,
//     and among equal scores the oldest goes first.
//   - Top returns entries ordered by score DESC, then newest first.
//   - Everything lives under one fixed key (table / sorted set / slice).

package scores

import (
	"context"
	"time"
)

// Cap is the number of entries a store keeps.
const Cap = 50

// Key is the fixed storage key for backends that need one.
const Key = "colormatch:playerScores"

// Entry is one persisted score.
type Entry struct {
	PlayerName string    `json:"playerName"`
	Score      int       `json:"score"`
	At         time.Time `json:"at"`
}

// Store is implemented by every backend. It satisfies game.ScoreRecorder.
type Store interface {
	// Record appends a finished session's score, pruning to Cap.
	Record(ctx context.Context, playerName string, score int, at time.Time) error

	// Top returns up to n entries, best first. n <= 0 means Cap.
	Top(ctx context.Context, n int) ([]Entry, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// limit clamps a requested count to (0, Cap].
func limit(n int) int {
	if n <= 0 || n > Cap {
		return Cap
	}
	return n
}

// ranksAbove reports whether a sorts before b.
func ranksAbove(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.At.After(b.At)
}
