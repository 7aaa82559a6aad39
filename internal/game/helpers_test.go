package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testPalette = []string{"#F02B1D", "#22A03B", "#1A73E8", "#FCC200", "#F47920", "#6F30D6", "#00BFD5", "#FF69B4"}

// scriptRand replays draws in order (cycling) and never reorders on Shuffle,
// so tile i gets a predictable color.
type scriptRand struct {
	draws []int
	i     int
}

func (r *scriptRand) IntN(n int) int {
	v := r.draws[r.i%len(r.draws)] % n
	r.i++
	return v
}

func (r *scriptRand) Shuffle(int, func(i, j int)) {}

type recordedScore struct {
	Player string
	Score  int
	At     time.Time
}

type fakeScores struct {
	mu   sync.Mutex
	got  []recordedScore
	fail bool
}

func (f *fakeScores) Record(_ context.Context, player string, score int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.got = append(f.got, recordedScore{Player: player, Score: score, At: at})
	return nil
}

func (f *fakeScores) records() []recordedScore {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedScore(nil), f.got...)
}

type event struct {
	Type   string
	Fields map[string]string
}

type fakeSink struct {
	mu     sync.Mutex
	events []event
}

func (f *fakeSink) Emit(eventType string, fields map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{Type: eventType, Fields: fields})
}

func (f *fakeSink) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func (f *fakeSink) last(eventType string) (event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Type == eventType {
			return f.events[i], true
		}
	}
	return event{}, false
}

type fakeBest struct {
	mu   sync.Mutex
	best int
}

func (f *fakeBest) Offer(score int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if score > f.best {
		f.best = score
		return true
	}
	return false
}

type harness struct {
	s      *Session
	scores *fakeScores
	sink   *fakeSink
	best   *fakeBest
}

// newHarness builds a headless, manually clocked session with recording collaborators.
func newHarness(t *testing.T, mode Mode, dim int, draws []int, tweak ...func(*Options)) *harness {
	t.Helper()
	h := &harness{scores: &fakeScores{}, sink: &fakeSink{}, best: &fakeBest{}}
	opts := Options{
		Dimension:   dim,
		Mode:        mode,
		PlayerName:  "ada",
		Palette:     testPalette,
		Rand:        &scriptRand{draws: draws},
		Scores:      h.scores,
		Telemetry:   h.sink,
		Best:        h.best,
		Headless:    true,
		ManualClock: true,
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	h.s = s
	return h
}

// pairsOf returns disjoint same-color pairs of unmatched tiles.
func pairsOf(snap Snapshot) [][2]int {
	open := map[int]int{}
	var out [][2]int
	for i, tile := range snap.Grid {
		if tile.Matched {
			continue
		}
		if j, ok := open[tile.ColorIndex]; ok {
			out = append(out, [2]int{j, i})
			delete(open, tile.ColorIndex)
			continue
		}
		open[tile.ColorIndex] = i
	}
	return out
}

// mismatchOf returns two unmatched tiles with different colors.
func mismatchOf(t *testing.T, snap Snapshot) (int, int) {
	t.Helper()
	for i, a := range snap.Grid {
		for j, b := range snap.Grid {
			if i != j && !a.Matched && !b.Matched && a.ColorIndex != b.ColorIndex {
				return i, j
			}
		}
	}
	t.Fatal("no mismatched pair on board")
	return -1, -1
}

func matchPair(t *testing.T, s *Session, p [2]int) {
	t.Helper()
	require.True(t, s.SelectCell(p[0]))
	require.True(t, s.SelectCell(p[1]))
}
