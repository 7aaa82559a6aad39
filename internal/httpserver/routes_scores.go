// internal/httpserver/routes_scores.go
//
// HTTP routes for the bounded score list.
//   - GET    /scores?limit=N → top N scores (default and max 50), best first
//   - GET    /scores/best    → best score seen by this process (seeded from the store)
//   - DELETE /scores         → clear every score (requires auth)

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/colormatch/internal/scores"
)

// mountScoreRoutes registers all /scores routes.
func (s *Server) mountScoreRoutes(r chi.Router) {
	r.Route("/scores", func(r chi.Router) {
		r.Get("/", s.handleTopScores)
		r.Get("/best", s.handleBestScore)
		r.With(s.requireAuth()).Delete("/", s.handleClearScores)
	})
}

func (s *Server) handleTopScores(w http.ResponseWriter, r *http.Request) {
	n := scores.Cap
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		n = parsed
	}
	entries, err := s.scores.Top(r.Context(), n)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("top scores")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": entries})
}

func (s *Server) handleBestScore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"best": s.best.Value()})
}

func (s *Server) handleClearScores(w http.ResponseWriter, r *http.Request) {
	if err := s.scores.Clear(r.Context()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("clear scores")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	s.best.Reset()
	hlog.FromRequest(r).Info().Msg("scores cleared")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
