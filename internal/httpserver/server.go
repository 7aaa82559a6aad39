// internal/httpserver/server.go
//
// HTTP server wiring for the colormatch backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/palettes".
//   - Session endpoints (optional auth): create, inspect, select, restart, next level, delete.
//   - Live session stream: GET /sessions/{id}/ws (gorilla websocket, see ws.go).
//   - Score endpoints: top list and best score; clearing requires auth.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me (see auth.go).
//   - Idle session sweeping while the server runs.
//
// Notes:
//   - CORS is origin‑aware and credentials‑enabled (so cookies work).
//   - The websocket route sits outside the timeout group; its connection outlives the handler.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colormatch/internal/config"
	"github.com/robalobadob/colormatch/internal/palette"
	"github.com/robalobadob/colormatch/internal/scores"
	"github.com/robalobadob/colormatch/internal/store"
	"github.com/robalobadob/colormatch/internal/telemetry"
)

const sweepInterval = time.Minute

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Config    config.Config
	DB        *sql.DB // players table
	Sessions  store.Store
	Scores    scores.Store
	Best      *scores.Best
	Telemetry telemetry.Sink
	Palettes  *palette.Set

	// Headless and ManualClock are passed to every session (tests, bots).
	Headless    bool
	ManualClock bool
	Now         func() time.Time
}

// Server bundles router, session registry, score store and DB handle.
type Server struct {
	r         *chi.Mux
	cfg       config.Config
	db        *sql.DB
	sessions  store.Store
	scores    scores.Store
	best      *scores.Best
	telemetry telemetry.Sink
	palettes  *palette.Set
	hub       *hub
	upgrader  websocket.Upgrader

	headless    bool
	manualClock bool
	now         func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:           chi.NewRouter(),
		cfg:         d.Config,
		db:          d.DB,
		sessions:    d.Sessions,
		scores:      d.Scores,
		best:        d.Best,
		telemetry:   d.Telemetry,
		palettes:    d.Palettes,
		hub:         newHub(),
		headless:    d.Headless,
		manualClock: d.ManualClock,
		now:         d.Now,
	}
	if s.best == nil {
		s.best = scores.NewBest(0)
	}
	if s.telemetry == nil {
		s.telemetry = telemetry.Multi{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	// --- middleware ---
	s.r.Use(chimw.RequestID)               // add X-Request-ID
	s.r.Use(chimw.RealIP)                  // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))   // request-scoped zerolog logger
	s.r.Use(hlog.AccessHandler(accessLog)) // one line per request
	s.r.Use(chimw.Recoverer)               // recover from panics
	s.r.Use(jsonContentType)               // default JSON responses
	s.r.Use(s.cors)                        // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"colormatch","endpoints":["/health","/palettes","POST /sessions","/scores","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/palettes", s.handlePalettes)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time

		// Sessions, OPTIONAL AUTH (guests can play)
		r.Group(func(r chi.Router) {
			r.Use(s.withOptionalAuth())
			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Delete("/sessions/{id}", s.handleDeleteSession)
			r.Post("/sessions/{id}/select", s.handleSelect)
			r.Post("/sessions/{id}/restart", s.handleRestart)
			r.Post("/sessions/{id}/next", s.handleNextLevel)
		})

		s.mountScoreRoutes(r)
		s.mountAuthRoutes(r)
	})

	s.r.Get("/sessions/{id}/ws", s.handleWS)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
// Idle sessions are swept once a minute while the server runs.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 10 * time.Second}

	go s.sweepLoop(ctx)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) sweepLoop(ctx context.Context) {
	if s.cfg.SessionIdle <= 0 {
		return
	}
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ids := s.sessions.Sweep(ctx, s.cfg.SessionIdle)
			for _, id := range ids {
				s.hub.closeSession(id)
			}
			if len(ids) > 0 {
				log.Info().Int("count", len(ids)).Msg("swept idle sessions")
			}
		}
	}
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("req_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// ------------------------------- palettes ----------------------------------

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	out := map[string][]string{}
	for _, name := range s.palettes.Names() {
		colors, _ := s.palettes.Get(name)
		out[name] = colors
	}
	writeJSON(w, http.StatusOK, map[string]any{"default": s.palettes.Default(), "palettes": out})
}

// ------------------------------- small util --------------------------------

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
