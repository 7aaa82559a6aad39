package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/colormatch/internal/daily"
	"github.com/robalobadob/colormatch/internal/game"
	"github.com/robalobadob/colormatch/internal/store"
)

// difficulties are the menu presets (board side length).
var difficulties = map[string]int{
	"easy":   3,
	"medium": 5,
	"hard":   7,
}

const defaultDifficulty = "easy"

type createSessionReq struct {
	Dimension  int    `json:"dimension"`  // wins over difficulty when set
	Difficulty string `json:"difficulty"` // easy | medium | hard
	Mode       string `json:"mode"`
	Player     string `json:"player"` // ignored when authenticated
	Palette    string `json:"palette"`
	Daily      bool   `json:"daily"` // same board for everyone today
}

type selectReq struct {
	Index *int `json:"index"`
}

type selectRes struct {
	Accepted bool          `json:"accepted"`
	Snapshot game.Snapshot `json:"snapshot"`
}

type restartReq struct {
	Dimension int `json:"dimension"` // current dimension when zero
}

// handleCreateSession builds a session, registers it, and returns its first snapshot.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeConfigError(w, err)
		return
	}

	dim := req.Dimension
	if dim == 0 {
		name := strings.ToLower(strings.TrimSpace(req.Difficulty))
		if name == "" {
			name = defaultDifficulty
		}
		var ok bool
		if dim, ok = difficulties[name]; !ok {
			http.Error(w, `{"error":"unknown_difficulty"}`, http.StatusBadRequest)
			return
		}
	}

	colors, ok := s.palettes.Get(req.Palette)
	if !ok {
		http.Error(w, `{"error":"unknown_palette"}`, http.StatusBadRequest)
		return
	}

	player := req.Player
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if me != nil {
		player = me.Username
	}

	var rng game.Rand
	if req.Daily {
		rng = game.SeededRand(daily.Seed(s.now(), s.cfg.DailySalt))
	}

	id := uuid.NewString()
	logger := hlog.FromRequest(r).With().Str("session", id).Logger()
	sess, err := game.New(game.Options{
		ID:          id,
		Dimension:   dim,
		Mode:        mode,
		PlayerName:  player,
		Palette:     colors,
		Rand:        rng,
		Scores:      s.scores,
		Telemetry:   s.sessionSink(me),
		Best:        s.best,
		Logger:      &logger,
		OnCue:       func(c game.Cue) { s.hub.broadcast(id, frame{Type: frameCue, Cue: c}) },
		OnChange:    func(snap game.Snapshot) { s.hub.broadcast(id, snapshotFrame(snap)) },
		Headless:    s.headless,
		ManualClock: s.manualClock,
		Now:         s.now,
	})
	if err != nil {
		writeConfigError(w, err)
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		sess.Close()
		logger.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	logger.Info().Str("mode", string(mode)).Int("dimension", dim).Bool("daily", req.Daily).Msg("session created")
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	s.hub.closeSession(id)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleSelect forwards one tap. Rejected taps still answer 200 with accepted=false.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	accepted := sess.SelectCell(*req.Index)
	writeJSON(w, http.StatusOK, selectRes{Accepted: accepted, Snapshot: sess.Snapshot()})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req restartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	dim := req.Dimension
	if dim == 0 {
		dim = sess.Snapshot().Dimension
	}
	if err := sess.StartNewGame(dim); err != nil {
		writeConfigError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleNextLevel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.NextLevel(); err != nil {
		writeConfigError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// lookup resolves {id} or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, `{"error":"lookup_failed"}`, http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

// writeConfigError maps engine errors to 400/410 bodies.
func writeConfigError(w http.ResponseWriter, err error) {
	var cfgErr *game.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "invalid_configuration",
			"field":  cfgErr.Field,
			"reason": cfgErr.Reason,
		})
	case errors.Is(err, game.ErrClosed):
		http.Error(w, `{"error":"session_closed"}`, http.StatusGone)
	default:
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}
}
