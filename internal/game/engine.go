// internal/game/engine.go
//
// Core session engine for the tile-matching game.
// Responsibilities:
//   - Build shuffled grids (grid.go) and reset per-mode counters.
//   - Resolve taps: first tap becomes pending, second tap resolves the pair.
//   - Score correct pairs with the combo tier table (scoring.go).
//   - Apply mode rules for wrong pairs: no-mistakes, limited-lives, timed.
//   - Run the timed-mode countdown and finalize the session exactly once.
//
// Notes:
//   - Every public operation runs under one mutex; the countdown goroutine and the
//     cosmetic reversion timers take the same mutex and carry the generation they
//     were started in, so nothing from a replaced grid can touch the current one.
//   - Collaborators (score store, telemetry, best tracker, cue/change callbacks) are
//     called after the lock is released and after the state transition is complete.
package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	matchRevertDelay = 300 * time.Millisecond
	wrongRevertDelay = 800 * time.Millisecond
	feedbackDuration = 1500 * time.Millisecond
	tickInterval     = time.Second
	recordTimeout    = 5 * time.Second

	defaultPlayer = "Player"
)

// Options configures a new Session. Zero-valued collaborators are replaced with no-ops.
type Options struct {
	ID         string // random hex when empty
	Dimension  int
	Mode       Mode
	PlayerName string
	Palette    []string
	Level      int // starting level; defaults to 1

	Rand      Rand
	Scores    ScoreRecorder
	Telemetry TelemetrySink
	Best      BestTracker
	Logger    *zerolog.Logger

	// OnCue and OnChange may be called from the countdown and reversion goroutines.
	OnCue    func(Cue)
	OnChange func(Snapshot)

	// Headless applies selected/wrong reversions immediately and keeps feedback text
	// until it is replaced.
	Headless bool
	// ManualClock skips the countdown goroutine; the caller drives Tick.
	ManualClock bool
	Now         func() time.Time
}

// Session is one player's game: a grid plus the counters of the active mode.
type Session struct {
	mu sync.Mutex

	id      string
	player  string
	mode    Mode
	palette []string
	colors  []string

	dimension int
	level     int
	grid      []Tile
	pending   int
	score     int
	lives     int
	seconds   int
	combo     int
	outcome   Outcome
	feedback  string
	startedAt time.Time

	gen      uint64
	stopTick chan struct{}
	timers   []*time.Timer
	closed   bool

	rng         Rand
	scores      ScoreRecorder
	telemetry   TelemetrySink
	best        BestTracker
	logger      zerolog.Logger
	onCue       func(Cue)
	onChange    func(Snapshot)
	headless    bool
	manualClock bool
	now         func() time.Time
}

// New validates opts, builds the first grid and, in timed mode, starts the countdown.
func New(opts Options) (*Session, error) {
	switch opts.Mode {
	case ModeNoMistakes, ModeLimitedLives, ModeTimed:
	default:
		return nil, &ConfigurationError{Field: "mode", Reason: "unknown mode " + strconv.Quote(string(opts.Mode))}
	}
	if err := validatePalette(opts.Palette); err != nil {
		return nil, err
	}

	s := &Session{
		id:          opts.ID,
		player:      strings.TrimSpace(opts.PlayerName),
		mode:        opts.Mode,
		palette:     append([]string(nil), opts.Palette...),
		level:       max(1, opts.Level),
		pending:     -1,
		rng:         opts.Rand,
		scores:      opts.Scores,
		telemetry:   opts.Telemetry,
		best:        opts.Best,
		logger:      log.Logger,
		onCue:       opts.OnCue,
		onChange:    opts.OnChange,
		headless:    opts.Headless,
		manualClock: opts.ManualClock,
		now:         opts.Now,
	}
	if s.id == "" {
		s.id = randomID()
	}
	if s.player == "" {
		s.player = defaultPlayer
	}
	if s.rng == nil {
		s.rng = mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
	}
	if s.scores == nil {
		s.scores = nopRecorder{}
	}
	if s.telemetry == nil {
		s.telemetry = nopSink{}
	}
	if s.best == nil {
		s.best = nopBest{}
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	if s.now == nil {
		s.now = time.Now
	}

	var fx effects
	s.mu.Lock()
	err := s.startLocked(opts.Dimension, &fx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	fx.run()
	return s, nil
}

// SeededRand returns a deterministic Rand for reproducible boards.
func SeededRand(seed uint64) Rand {
	return mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SelectCell registers a tap on grid[index].
// It returns false, changing nothing, when the session is over, the index is out of
// range, or the tile is already matched or selected.
func (s *Session) SelectCell(index int) bool {
	var fx effects
	s.mu.Lock()
	ok := s.selectLocked(index, &fx)
	s.mu.Unlock()
	fx.run()
	return ok
}

// StartNewGame replaces the grid with a fresh one of the given dimension and resets
// score, combo, lives and time to the mode defaults. The level is kept.
func (s *Session) StartNewGame(dimension int) error {
	var fx effects
	s.mu.Lock()
	var err error
	if s.closed {
		err = ErrClosed
	} else {
		err = s.startLocked(dimension, &fx)
	}
	s.mu.Unlock()
	fx.run()
	return err
}

// NextLevel bumps the level and starts a larger board (+2 per level, capped at 7×7).
func (s *Session) NextLevel() error {
	var fx effects
	s.mu.Lock()
	var err error
	if s.closed {
		err = ErrClosed
	} else {
		s.level++
		if err = s.startLocked(NextDimension(s.dimension), &fx); err != nil {
			s.level--
		}
	}
	s.mu.Unlock()
	fx.run()
	return err
}

// Tick advances the timed-mode countdown by one second. The countdown goroutine
// calls it once per second; with ManualClock the caller does.
func (s *Session) Tick() {
	var fx effects
	s.mu.Lock()
	if !s.closed && s.outcome == OutcomePlaying {
		s.tickLocked(&fx)
	}
	s.mu.Unlock()
	fx.run()
}

// Close stops the countdown and any pending reversions. Further operations are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.stopTimerLocked()
	s.cancelDeferredLocked()
}

// ---------------------------------------------------------------------------

func (s *Session) startLocked(dimension int, fx *effects) error {
	grid, err := BuildGrid(dimension, s.palette, s.rng)
	if err != nil {
		return err
	}

	s.gen++
	s.stopTimerLocked()
	s.cancelDeferredLocked()

	s.dimension = dimension
	s.colors = UsablePalette(s.palette, dimension)
	s.grid = grid
	s.pending = -1
	s.score, s.combo = 0, 0
	s.lives, s.seconds = 0, 0
	switch s.mode {
	case ModeLimitedLives:
		s.lives = startingLives
	case ModeTimed:
		s.seconds = startingSeconds
	}
	s.outcome = OutcomePlaying
	s.feedback = ""
	s.startedAt = s.now()

	s.emitLocked(fx, EventSessionStart, map[string]string{
		"game_mode": string(s.mode),
		"grid_size": strconv.Itoa(dimension),
		"level":     strconv.Itoa(s.level),
	})
	if s.mode == ModeTimed && !s.manualClock {
		s.startTimerLocked()
	}
	s.changedLocked(fx)
	return nil
}

func (s *Session) selectLocked(index int, fx *effects) bool {
	if s.closed || s.outcome != OutcomePlaying || index < 0 || index >= len(s.grid) {
		return false
	}
	tile := &s.grid[index]
	if tile.Matched || tile.Selected {
		return false
	}

	tile.Selected = true
	s.cueLocked(fx, CueTap)
	s.emitLocked(fx, EventCellClick, map[string]string{
		"cell_index": strconv.Itoa(index),
		"game_mode":  string(s.mode),
	})

	if s.pending < 0 {
		s.pending = index
		s.changedLocked(fx)
		return true
	}

	first := s.pending
	s.pending = -1
	if s.grid[first].ColorIndex == tile.ColorIndex {
		s.correctLocked(first, index, fx)
	} else {
		s.wrongLocked(first, index, fx)
	}
	s.changedLocked(fx)
	return true
}

func (s *Session) correctLocked(first, second int, fx *effects) {
	s.grid[first].Matched = true
	s.grid[second].Matched = true

	s.combo++
	points := MatchPoints(s.combo)
	s.score += points

	s.emitLocked(fx, EventCorrectMatch, map[string]string{"combo": strconv.Itoa(s.combo)})
	s.setFeedbackLocked(fmt.Sprintf("Perfect! +%d", points))
	if s.combo >= 3 {
		s.cueLocked(fx, CueCombo)
	} else {
		s.cueLocked(fx, CueMatch)
	}
	s.deferLocked(matchRevertDelay, func() {
		s.grid[first].Selected = false
		s.grid[second].Selected = false
	})

	// An odd board always leaves one tile without a partner.
	if s.unmatchedLocked() <= len(s.grid)%2 {
		s.finishLocked(true, fx)
	}
}

func (s *Session) wrongLocked(first, second int, fx *effects) {
	s.combo = 0
	s.emitLocked(fx, EventWrongMatch, map[string]string{"combo": "0"})

	switch s.mode {
	case ModeNoMistakes:
		s.finishLocked(false, fx)
		return
	case ModeLimitedLives:
		s.lives--
		if s.lives <= 0 {
			s.finishLocked(false, fx)
			return
		}
	}

	s.grid[first].Wrong = true
	s.grid[second].Wrong = true
	s.setFeedbackLocked("Wrong! Try again")
	s.cueLocked(fx, CueWrong)
	s.deferLocked(wrongRevertDelay, func() {
		for _, i := range [2]int{first, second} {
			s.grid[i].Selected = false
			s.grid[i].Wrong = false
		}
	})
}

func (s *Session) tickLocked(fx *effects) {
	if s.mode != ModeTimed {
		return
	}
	s.seconds--
	if s.seconds <= 0 {
		s.seconds = 0
		s.finishLocked(false, fx)
	}
	s.changedLocked(fx)
}

// finishLocked moves the session to a terminal outcome and queues the collaborator
// calls. It is a no-op once the outcome is set.
func (s *Session) finishLocked(won bool, fx *effects) {
	if s.outcome != OutcomePlaying {
		return
	}
	s.stopTimerLocked()
	s.cancelDeferredLocked()
	s.clearTransientLocked()

	result := "lost"
	s.outcome = OutcomeLost
	if won {
		result = "won"
		s.outcome = OutcomeWon
		s.score += WinBonus(s.mode, s.lives, s.seconds)
	}

	now := s.now()
	score, player := s.score, s.player
	s.emitLocked(fx, EventGameOver, map[string]string{
		"result": result,
		"score":  strconv.Itoa(score),
		"level":  strconv.Itoa(s.level),
	})
	s.emitLocked(fx, EventSessionEnd, map[string]string{
		"duration": fmt.Sprintf("%.2f", now.Sub(s.startedAt).Seconds()),
		"score":    strconv.Itoa(score),
	})

	logger, id := s.logger, s.id
	scores, best := s.scores, s.best
	fx.add(func() {
		logger.Info().Str("session", id).Str("player", player).Str("result", result).Int("score", score).Msg("session finished")

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := scores.Record(ctx, player, score, now); err != nil {
			logger.Warn().Err(err).Str("session", id).Msg("record score")
		}
		if best.Offer(score) {
			logger.Info().Str("player", player).Int("score", score).Msg("new best score")
		}
	})
}

func (s *Session) unmatchedLocked() int {
	n := 0
	for _, t := range s.grid {
		if !t.Matched {
			n++
		}
	}
	return n
}

func (s *Session) clearTransientLocked() {
	for i := range s.grid {
		s.grid[i].Selected = false
		s.grid[i].Wrong = false
	}
	s.pending = -1
}

func (s *Session) setFeedbackLocked(msg string) {
	s.feedback = msg
	if s.headless {
		return
	}
	s.deferLocked(feedbackDuration, func() {
		if s.feedback == msg {
			s.feedback = ""
		}
	})
}

// ---------------------------- timers ---------------------------------------

func (s *Session) startTimerLocked() {
	stop := make(chan struct{})
	s.stopTick = stop
	gen := s.gen
	go func() {
		t := time.NewTicker(tickInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if !s.tick(gen) {
					return
				}
			}
		}
	}()
}

// tick is the countdown goroutine's entry point; it reports whether to keep ticking.
func (s *Session) tick(gen uint64) bool {
	var fx effects
	s.mu.Lock()
	alive := s.gen == gen && !s.closed && s.outcome == OutcomePlaying
	if alive {
		s.tickLocked(&fx)
		alive = s.outcome == OutcomePlaying
	}
	s.mu.Unlock()
	fx.run()
	return alive
}

func (s *Session) stopTimerLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

// deferLocked schedules a cosmetic state change. It is dropped if the grid is
// replaced or the session finishes before it fires.
func (s *Session) deferLocked(d time.Duration, fn func()) {
	if s.headless {
		fn()
		return
	}
	gen := s.gen
	t := time.AfterFunc(d, func() {
		var fx effects
		s.mu.Lock()
		if s.gen != gen || s.closed || s.outcome != OutcomePlaying {
			s.mu.Unlock()
			return
		}
		fn()
		s.changedLocked(&fx)
		s.mu.Unlock()
		fx.run()
	})
	s.timers = append(s.timers, t)
}

func (s *Session) cancelDeferredLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// ---------------------------- side effects ---------------------------------

// effects are collected under the lock and run after it is released.
type effects []func()

func (fx *effects) add(f func()) { *fx = append(*fx, f) }

func (fx effects) run() {
	for _, f := range fx {
		f()
	}
}

func (s *Session) emitLocked(fx *effects, eventType string, fields map[string]string) {
	fields["session_id"] = s.id
	fields["player"] = s.player
	sink := s.telemetry
	fx.add(func() { sink.Emit(eventType, fields) })
}

func (s *Session) cueLocked(fx *effects, c Cue) {
	if s.onCue == nil {
		return
	}
	cb := s.onCue
	fx.add(func() { cb(c) })
}

func (s *Session) changedLocked(fx *effects) {
	if s.onChange == nil {
		return
	}
	snap := s.snapshotLocked()
	cb := s.onChange
	fx.add(func() { cb(snap) })
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:            s.id,
		Player:        s.player,
		Mode:          s.mode,
		Dimension:     s.dimension,
		Level:         s.level,
		Colors:        append([]string(nil), s.colors...),
		Grid:          append([]Tile(nil), s.grid...),
		Score:         s.score,
		Lives:         s.lives,
		TimeRemaining: s.seconds,
		Combo:         s.combo,
		Remaining:     s.unmatchedLocked(),
		Outcome:       s.outcome,
		Feedback:      s.feedback,
		StartedAt:     s.startedAt,
	}
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
