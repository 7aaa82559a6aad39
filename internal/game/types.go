// internal/game/types.go
//
// Core type definitions for the tile-matching session engine.
// Defines:
//   - Mode:     rule set governing failure conditions.
//   - Outcome:  playing → won/lost.
//   - Cue:      audio/haptic hint reported to the presentation layer.
//   - Tile:     one grid cell.
//   - Snapshot: read-only copy of a session for rendering.

package game

import (
	"strconv"
	"strings"
	"time"
)

// Mode selects the failure rules of a session.
//   - "no_mistakes":   a single wrong pair ends the session.
//   - "limited_lives": three lives, each wrong pair costs one.
//   - "timed":         sixty seconds on the clock, wrong pairs are free.
type Mode string

const (
	ModeNoMistakes   Mode = "no_mistakes"
	ModeLimitedLives Mode = "limited_lives"
	ModeTimed        Mode = "timed"
)

// ParseMode accepts the canonical names plus the menu titles
// ("classic", "survival", "time_attack").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "no_mistakes", "classic":
		return ModeNoMistakes, nil
	case "limited_lives", "survival", "lives":
		return ModeLimitedLives, nil
	case "timed", "time_attack", "timeattack":
		return ModeTimed, nil
	}
	return "", &ConfigurationError{Field: "mode", Reason: "unknown mode " + strconv.Quote(s)}
}

// Outcome is the terminal state of a session grid.
type Outcome string

const (
	OutcomePlaying Outcome = "playing"
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
)

// Cue names a feedback sound/haptic the presentation layer may play.
type Cue string

const (
	CueTap   Cue = "tap"
	CueMatch Cue = "match"
	CueCombo Cue = "combo"
	CueWrong Cue = "wrong"
)

// Tile is a single grid cell.
type Tile struct {
	ID         string `json:"id"`         // uuid, fresh per grid build
	ColorIndex int    `json:"colorIndex"` // index into the usable palette
	Matched    bool   `json:"matched"`
	Selected   bool   `json:"selected"`
	Wrong      bool   `json:"wrong"`
}

// Snapshot is a copy of the session state; mutating it has no effect on the session.
type Snapshot struct {
	ID            string    `json:"id"`
	Player        string    `json:"player"`
	Mode          Mode      `json:"mode"`
	Dimension     int       `json:"dimension"`
	Level         int       `json:"level"`
	Colors        []string  `json:"colors"`
	Grid          []Tile    `json:"grid"`
	Score         int       `json:"score"`
	Lives         int       `json:"lives"`
	TimeRemaining int       `json:"timeRemaining"`
	Combo         int       `json:"combo"`
	Remaining     int       `json:"remaining"`
	Outcome       Outcome   `json:"outcome"`
	Feedback      string    `json:"feedback,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
}

// Finished reports whether the snapshot is terminal.
func (s Snapshot) Finished() bool { return s.Outcome != OutcomePlaying }
