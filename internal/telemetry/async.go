package telemetry

import (
	"maps"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Async queues events for a background goroutine so Emit never blocks the caller.
// When the queue is full the event is dropped and counted.
type Async struct {
	next  Sink
	queue chan Event

	mu      sync.RWMutex // guards closed against concurrent Emit
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

// NewAsync starts the drain goroutine. size <= 0 uses 256.
func NewAsync(next Sink, size int) *Async {
	if size <= 0 {
		size = 256
	}
	a := &Async{next: next, queue: make(chan Event, size), done: make(chan struct{})}
	go a.drain()
	return a
}

func (a *Async) Emit(eventType string, fields map[string]string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- Event{Type: eventType, Fields: maps.Clone(fields)}:
	default:
		if n := a.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Warn().Int64("dropped", n).Str("event", eventType).Msg("telemetry queue full")
		}
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting events and waits until the queue is drained.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	<-a.done
}

func (a *Async) drain() {
	defer close(a.done)
	for ev := range a.queue {
		a.next.Emit(ev.Type, ev.Fields)
	}
}
