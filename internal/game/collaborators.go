package game

import (
	"context"
	"time"
)

// ScoreRecorder persists a finished session's score.
type ScoreRecorder interface {
	Record(ctx context.Context, playerName string, score int, at time.Time) error
}

// TelemetrySink receives fire-and-forget lifecycle events.
type TelemetrySink interface {
	Emit(eventType string, fields map[string]string)
}

// BestTracker keeps the best score seen across sessions.
type BestTracker interface {
	Offer(score int) bool
}

// Telemetry event types emitted by the engine.
const (
	EventSessionStart = "session_start"
	EventSessionEnd   = "session_end"
	EventCellClick    = "cell_click"
	EventCorrectMatch = "correct_match"
	EventWrongMatch   = "wrong_match"
	EventGameOver     = "game_over"
)

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, int, time.Time) error { return nil }

type nopSink struct{}

func (nopSink) Emit(string, map[string]string) {}

type nopBest struct{}

func (nopBest) Offer(int) bool { return false }
