// internal/telemetry/telemetry.go
//
// Fire-and-forget lifecycle events.
// Sinks never return errors to the engine: a failing sink logs and moves on.
//
// Implementations:
//   - LogSink    → zerolog line per event
//   - NATS       → JSON message on <prefix>.<event type>
//   - Recorder   → in-memory list (tests, debugging)
//   - Multi      → fan-out to several sinks
//   - Async      → bounded queue in front of a slow sink

package telemetry

import (
	"maps"
	"sync"
	"time"
)

// Sink satisfies game.TelemetrySink.
type Sink interface {
	Emit(eventType string, fields map[string]string)
}

// Event is the serialized form of one Emit call.
type Event struct {
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields"`
	At     time.Time         `json:"at"`
}

// Multi fans every event out to each sink in order.
type Multi []Sink

func (m Multi) Emit(eventType string, fields map[string]string) {
	for _, s := range m {
		s.Emit(eventType, fields)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(eventType string, fields map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Type: eventType, Fields: maps.Clone(fields), At: time.Now()})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
