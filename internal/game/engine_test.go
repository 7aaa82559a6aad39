package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 2×2 board scripted with draws {0, 1} has colors [0 1 0 1]:
// pairs are (0,2) and (1,3), and (0,1) is a mismatch.
var twoByTwo = []int{0, 1}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "unknown mode", opts: Options{Dimension: 3, Mode: "zen", Palette: testPalette}},
		{name: "missing mode", opts: Options{Dimension: 3, Palette: testPalette}},
		{name: "one color", opts: Options{Dimension: 3, Mode: ModeTimed, Palette: []string{"red"}}},
		{name: "no palette", opts: Options{Dimension: 3, Mode: ModeTimed}},
		{name: "degenerate board", opts: Options{Dimension: 1, Mode: ModeNoMistakes, Palette: testPalette}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.opts)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	h := newHarness(t, ModeLimitedLives, 3, []int{0, 1, 2}, func(o *Options) { o.PlayerName = "  " })
	snap := h.s.Snapshot()

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "Player", snap.Player)
	assert.Equal(t, 1, snap.Level)
	assert.Equal(t, 3, snap.Lives)
	assert.Zero(t, snap.TimeRemaining)
	assert.Equal(t, OutcomePlaying, snap.Outcome)
	assert.Equal(t, testPalette[:3], snap.Colors)
	assert.Len(t, snap.Grid, 9)
}

func TestSession_PerfectGame(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want int
	}{
		// 10 (combo 1) + 15 (combo 2) + win bonus
		{name: "no mistakes", mode: ModeNoMistakes, want: 25},
		{name: "limited lives", mode: ModeLimitedLives, want: 25 + 3*10},
		{name: "timed", mode: ModeTimed, want: 25 + 60*2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.mode, 2, twoByTwo)

			matchPair(t, h.s, [2]int{0, 2})
			snap := h.s.Snapshot()
			assert.Equal(t, 10, snap.Score)
			assert.Equal(t, 1, snap.Combo)
			assert.Equal(t, OutcomePlaying, snap.Outcome)
			assert.Equal(t, "Perfect! +10", snap.Feedback)

			matchPair(t, h.s, [2]int{1, 3})
			snap = h.s.Snapshot()
			assert.Equal(t, OutcomeWon, snap.Outcome)
			assert.Equal(t, tt.want, snap.Score)
			assert.Zero(t, snap.Remaining)
			for _, tile := range snap.Grid {
				assert.True(t, tile.Matched)
				assert.False(t, tile.Selected)
			}

			recs := h.scores.records()
			require.Len(t, recs, 1)
			assert.Equal(t, "ada", recs[0].Player)
			assert.Equal(t, tt.want, recs[0].Score)
			assert.Equal(t, tt.want, h.best.best)

			assert.Equal(t, []string{
				EventSessionStart,
				EventCellClick, EventCellClick, EventCorrectMatch,
				EventCellClick, EventCellClick, EventCorrectMatch,
				EventGameOver, EventSessionEnd,
			}, h.sink.types())
		})
	}
}

func TestSession_NoMistakesWrongPairLoses(t *testing.T) {
	h := newHarness(t, ModeNoMistakes, 2, twoByTwo)

	require.True(t, h.s.SelectCell(0))
	require.True(t, h.s.SelectCell(1))

	snap := h.s.Snapshot()
	assert.Equal(t, OutcomeLost, snap.Outcome)
	assert.Zero(t, snap.Score)

	for i := range snap.Grid {
		assert.False(t, h.s.SelectCell(i))
	}
	assert.Equal(t, snap.Grid, h.s.Snapshot().Grid)
	assert.Equal(t, snap.Score, h.s.Snapshot().Score)

	ev, ok := h.sink.last(EventGameOver)
	require.True(t, ok)
	assert.Equal(t, "lost", ev.Fields["result"])
	assert.Equal(t, "0", ev.Fields["score"])
	assert.Len(t, h.scores.records(), 1)
}

func TestSession_LimitedLives(t *testing.T) {
	h := newHarness(t, ModeLimitedLives, 2, twoByTwo)

	require.True(t, h.s.SelectCell(0))
	require.True(t, h.s.SelectCell(1))
	snap := h.s.Snapshot()
	assert.Equal(t, 2, snap.Lives)
	assert.Equal(t, OutcomePlaying, snap.Outcome)
	assert.Equal(t, "Wrong! Try again", snap.Feedback)

	require.True(t, h.s.SelectCell(0))
	require.True(t, h.s.SelectCell(1))
	snap = h.s.Snapshot()
	assert.Equal(t, 1, snap.Lives)
	assert.Equal(t, OutcomePlaying, snap.Outcome)

	require.True(t, h.s.SelectCell(0))
	require.True(t, h.s.SelectCell(1))
	snap = h.s.Snapshot()
	assert.Zero(t, snap.Lives)
	assert.Equal(t, OutcomeLost, snap.Outcome)
	assert.Len(t, h.scores.records(), 1)
}

func TestSession_ComboResetsAfterWrongPair(t *testing.T) {
	// 4×4 board with draws {0,1,2,3}: tile i has color i%4.
	h := newHarness(t, ModeTimed, 4, []int{0, 1, 2, 3})

	matchPair(t, h.s, [2]int{0, 4})
	matchPair(t, h.s, [2]int{1, 5})
	assert.Equal(t, 2, h.s.Snapshot().Combo)
	assert.Equal(t, 25, h.s.Snapshot().Score)

	require.True(t, h.s.SelectCell(2))
	require.True(t, h.s.SelectCell(3))
	snap := h.s.Snapshot()
	assert.Zero(t, snap.Combo)
	assert.Equal(t, OutcomePlaying, snap.Outcome, "wrong pair never ends a timed session")

	matchPair(t, h.s, [2]int{2, 6})
	snap = h.s.Snapshot()
	assert.Equal(t, 1, snap.Combo)
	assert.Equal(t, 35, snap.Score)
	assert.Equal(t, "Perfect! +10", snap.Feedback)
}

func TestSession_TimedExpiry(t *testing.T) {
	h := newHarness(t, ModeTimed, 2, twoByTwo)
	matchPair(t, h.s, [2]int{0, 2})

	for i := 0; i < 59; i++ {
		h.s.Tick()
	}
	snap := h.s.Snapshot()
	assert.Equal(t, 1, snap.TimeRemaining)
	assert.Equal(t, OutcomePlaying, snap.Outcome)

	h.s.Tick()
	snap = h.s.Snapshot()
	assert.Zero(t, snap.TimeRemaining)
	assert.Equal(t, OutcomeLost, snap.Outcome)
	assert.Equal(t, 10, snap.Score, "no bonus and no penalty on expiry")

	h.s.Tick()
	assert.Zero(t, h.s.Snapshot().TimeRemaining)
	assert.False(t, h.s.SelectCell(1))

	recs := h.scores.records()
	require.Len(t, recs, 1)
	assert.Equal(t, 10, recs[0].Score)
}

func TestSession_TickIgnoredOutsideTimedMode(t *testing.T) {
	h := newHarness(t, ModeLimitedLives, 2, twoByTwo)
	for i := 0; i < 100; i++ {
		h.s.Tick()
	}
	snap := h.s.Snapshot()
	assert.Equal(t, OutcomePlaying, snap.Outcome)
	assert.Zero(t, snap.TimeRemaining)
}

func TestSession_OddBoardWinsWithLeftoverTile(t *testing.T) {
	h := newHarness(t, ModeNoMistakes, 3, []int{0, 1, 2, 0})

	pairs := pairsOf(h.s.Snapshot())
	require.Len(t, pairs, 4)
	for _, p := range pairs {
		matchPair(t, h.s, p)
	}

	snap := h.s.Snapshot()
	assert.Equal(t, OutcomeWon, snap.Outcome)
	assert.Equal(t, 1, snap.Remaining)
	assert.Equal(t, 10+15+25+40, snap.Score)
}

func TestSession_SelectNoOps(t *testing.T) {
	h := newHarness(t, ModeNoMistakes, 2, twoByTwo)

	assert.False(t, h.s.SelectCell(-1))
	assert.False(t, h.s.SelectCell(4))

	require.True(t, h.s.SelectCell(0))
	assert.False(t, h.s.SelectCell(0), "pending tile cannot be selected twice")
	assert.True(t, h.s.Snapshot().Grid[0].Selected)

	require.True(t, h.s.SelectCell(2))
	assert.False(t, h.s.SelectCell(0), "matched tile")
	assert.False(t, h.s.SelectCell(2), "matched tile")
	assert.Equal(t, 10, h.s.Snapshot().Score)
}

func TestSession_StartNewGameResets(t *testing.T) {
	h := newHarness(t, ModeLimitedLives, 2, twoByTwo)

	require.True(t, h.s.SelectCell(0))
	require.True(t, h.s.SelectCell(1))
	matchPair(t, h.s, [2]int{0, 2})
	before := h.s.Snapshot()
	require.Equal(t, 2, before.Lives)
	require.Equal(t, 10, before.Score)

	require.NoError(t, h.s.StartNewGame(3))
	first := h.s.Snapshot()
	require.NoError(t, h.s.StartNewGame(3))
	second := h.s.Snapshot()

	for _, snap := range []Snapshot{first, second} {
		assert.Zero(t, snap.Score)
		assert.Zero(t, snap.Combo)
		assert.Equal(t, 3, snap.Lives)
		assert.Equal(t, 1, snap.Level)
		assert.Equal(t, 3, snap.Dimension)
		assert.Equal(t, OutcomePlaying, snap.Outcome)
		assert.Empty(t, snap.Feedback)

		odd := 0
		for _, n := range ColorCounts(snap.Grid) {
			odd += n % 2
		}
		assert.Equal(t, 1, odd)
	}
	for i := range first.Grid {
		assert.NotEqual(t, first.Grid[i].ID, second.Grid[i].ID)
	}

	assert.Len(t, h.scores.records(), 0, "restart does not finalize")
	starts := 0
	for _, typ := range h.sink.types() {
		if typ == EventSessionStart {
			starts++
		}
	}
	assert.Equal(t, 3, starts)
}

func TestSession_StartNewGameResetsClock(t *testing.T) {
	h := newHarness(t, ModeTimed, 2, twoByTwo)
	for i := 0; i < 10; i++ {
		h.s.Tick()
	}
	require.Equal(t, 50, h.s.Snapshot().TimeRemaining)

	require.NoError(t, h.s.StartNewGame(2))
	assert.Equal(t, 60, h.s.Snapshot().TimeRemaining)
}

func TestSession_StartNewGameRejectsBadDimension(t *testing.T) {
	h := newHarness(t, ModeNoMistakes, 2, twoByTwo)
	matchPair(t, h.s, [2]int{0, 2})

	err := h.s.StartNewGame(0)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, 10, h.s.Snapshot().Score, "failed restart leaves the session untouched")
}

func TestSession_NextLevel(t *testing.T) {
	h := newHarness(t, ModeNoMistakes, 3, []int{0, 1, 2})

	want := []struct{ level, dim int }{{2, 5}, {3, 7}, {4, 7}}
	for _, w := range want {
		require.NoError(t, h.s.NextLevel())
		snap := h.s.Snapshot()
		assert.Equal(t, w.level, snap.Level)
		assert.Equal(t, w.dim, snap.Dimension)
		assert.Len(t, snap.Grid, w.dim*w.dim)
		assert.Zero(t, snap.Score)
	}
}

func TestSession_StaleTickIgnored(t *testing.T) {
	h := newHarness(t, ModeTimed, 2, twoByTwo)
	stale := h.s.gen

	require.NoError(t, h.s.StartNewGame(2))
	assert.False(t, h.s.tick(stale))
	assert.Equal(t, 60, h.s.Snapshot().TimeRemaining)

	assert.True(t, h.s.tick(h.s.gen))
	assert.Equal(t, 59, h.s.Snapshot().TimeRemaining)
}

func TestSession_CountdownGoroutine(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on the real one-second ticker")
	}
	h := newHarness(t, ModeTimed, 2, twoByTwo, func(o *Options) { o.ManualClock = false })

	require.Eventually(t, func() bool {
		return h.s.Snapshot().TimeRemaining == 59
	}, 3*time.Second, 20*time.Millisecond)

	h.s.Close()
	frozen := h.s.Snapshot().TimeRemaining
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, frozen, h.s.Snapshot().TimeRemaining)
}

func TestSession_ScoreStoreFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, ModeNoMistakes, 2, twoByTwo)
	h.scores.fail = true

	matchPair(t, h.s, [2]int{0, 2})
	matchPair(t, h.s, [2]int{1, 3})

	snap := h.s.Snapshot()
	assert.Equal(t, OutcomeWon, snap.Outcome)
	assert.Equal(t, 25, snap.Score)
	assert.Equal(t, 25, h.best.best)
	_, ok := h.sink.last(EventSessionEnd)
	assert.True(t, ok)
}

func TestSession_Cues(t *testing.T) {
	var mu sync.Mutex
	var cues []Cue
	h := newHarness(t, ModeTimed, 4, []int{0, 1, 2, 3}, func(o *Options) {
		o.OnCue = func(c Cue) {
			mu.Lock()
			cues = append(cues, c)
			mu.Unlock()
		}
	})

	matchPair(t, h.s, [2]int{0, 4})
	matchPair(t, h.s, [2]int{1, 5})
	matchPair(t, h.s, [2]int{2, 6})
	require.True(t, h.s.SelectCell(3))
	require.True(t, h.s.SelectCell(8))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Cue{
		CueTap, CueTap, CueMatch,
		CueTap, CueTap, CueMatch,
		CueTap, CueTap, CueCombo,
		CueTap, CueTap, CueWrong,
	}, cues)
}

func TestSession_OnChange(t *testing.T) {
	var mu sync.Mutex
	var snaps []Snapshot
	h := newHarness(t, ModeNoMistakes, 2, twoByTwo, func(o *Options) {
		o.OnChange = func(s Snapshot) {
			mu.Lock()
			snaps = append(snaps, s)
			mu.Unlock()
		}
	})

	matchPair(t, h.s, [2]int{0, 2})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snaps, 3) // start, first tap, resolved pair
	assert.Equal(t, h.s.Snapshot().Score, snaps[2].Score)
	assert.True(t, snaps[1].Grid[0].Selected)
}

func TestSession_TransientFlagsRevert(t *testing.T) {
	h := newHarness(t, ModeTimed, 2, twoByTwo, func(o *Options) { o.Headless = false })

	require.True(t, h.s.SelectCell(0))
	require.True(t, h.s.SelectCell(1))

	snap := h.s.Snapshot()
	assert.True(t, snap.Grid[0].Wrong && snap.Grid[1].Wrong)
	assert.True(t, snap.Grid[0].Selected && snap.Grid[1].Selected)
	assert.False(t, h.s.SelectCell(0), "tile is still showing the wrong mark")

	require.Eventually(t, func() bool {
		g := h.s.Snapshot().Grid
		return !g[0].Wrong && !g[0].Selected && !g[1].Wrong && !g[1].Selected
	}, 3*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return h.s.Snapshot().Feedback == ""
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSession_RestartCancelsReversions(t *testing.T) {
	h := newHarness(t, ModeTimed, 2, twoByTwo, func(o *Options) { o.Headless = false })

	require.True(t, h.s.SelectCell(0))
	require.True(t, h.s.SelectCell(1))
	require.NoError(t, h.s.StartNewGame(2))
	require.True(t, h.s.SelectCell(0))

	time.Sleep(time.Second)
	assert.True(t, h.s.Snapshot().Grid[0].Selected, "old reversion must not touch the new grid")
}

func TestSession_TelemetryFields(t *testing.T) {
	h := newHarness(t, ModeLimitedLives, 2, twoByTwo)
	matchPair(t, h.s, [2]int{0, 2})
	matchPair(t, h.s, [2]int{1, 3})

	for _, typ := range []string{EventSessionStart, EventCellClick, EventCorrectMatch, EventGameOver, EventSessionEnd} {
		ev, ok := h.sink.last(typ)
		require.True(t, ok, typ)
		assert.Equal(t, h.s.ID(), ev.Fields["session_id"], typ)
		assert.Equal(t, "ada", ev.Fields["player"], typ)
	}

	start, _ := h.sink.last(EventSessionStart)
	assert.Equal(t, "limited_lives", start.Fields["game_mode"])
	assert.Equal(t, "2", start.Fields["grid_size"])

	click, _ := h.sink.last(EventCellClick)
	assert.Equal(t, "3", click.Fields["cell_index"])

	match, _ := h.sink.last(EventCorrectMatch)
	assert.Equal(t, "2", match.Fields["combo"])

	over, _ := h.sink.last(EventGameOver)
	assert.Equal(t, map[string]string{
		"result": "won", "score": "55", "level": "1",
		"session_id": h.s.ID(), "player": "ada",
	}, over.Fields)

	end, _ := h.sink.last(EventSessionEnd)
	assert.Equal(t, "55", end.Fields["score"])
	assert.NotEmpty(t, end.Fields["duration"])
}

func TestSession_Close(t *testing.T) {
	h := newHarness(t, ModeTimed, 2, twoByTwo)
	h.s.Close()
	h.s.Close()

	assert.False(t, h.s.SelectCell(0))
	assert.ErrorIs(t, h.s.StartNewGame(2), ErrClosed)
	assert.ErrorIs(t, h.s.NextLevel(), ErrClosed)
	h.s.Tick()
	assert.Equal(t, 60, h.s.Snapshot().TimeRemaining)
}
