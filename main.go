// main.go
//
// Entry point for the colormatch game server.
// Responsibilities:
//   - Load .env and the environment into config.Config; set the zerolog level.
//   - Load palettes, open + migrate SQLite (players, and scores by default).
//   - Pick the score backend (sqlite | redis | memory) and seed the best-score tracker.
//   - Build the telemetry pipeline (zerolog, optional NATS) behind an async queue.
//   - Serve HTTP until SIGINT/SIGTERM, then shut down and flush telemetry.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colormatch/assets"
	"github.com/robalobadob/colormatch/internal/config"
	"github.com/robalobadob/colormatch/internal/httpserver"
	"github.com/robalobadob/colormatch/internal/palette"
	"github.com/robalobadob/colormatch/internal/scores"
	"github.com/robalobadob/colormatch/internal/store"
	"github.com/robalobadob/colormatch/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	if err := palette.Init(); err != nil {
		log.Fatal().Err(err).Str("file", cfg.PaletteFile).Msg("failed to load palettes")
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()
	migrations, err := assets.Migrations()
	if err != nil {
		log.Fatal().Err(err).Msg("embedded migrations")
	}
	if err := migrate(db, migrations); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scoreStore, closeScores, err := openScores(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.ScoreBackend).Msg("open score store")
	}
	defer closeScores()

	best, err := scores.LoadBest(ctx, scoreStore)
	if err != nil {
		log.Warn().Err(err).Msg("load best score; starting from zero")
		best = scores.NewBest(0)
	}

	sink, closeSink := openTelemetry(cfg)
	defer closeSink()

	srv := httpserver.New(httpserver.Deps{
		Config:    cfg,
		DB:        db,
		Sessions:  store.NewMemoryStore(),
		Scores:    scoreStore,
		Best:      best,
		Telemetry: sink,
		Palettes:  palette.Active(),
	})

	log.Info().
		Str("port", cfg.Port).
		Str("scores", cfg.ScoreBackend).
		Bool("nats", cfg.NATSURL != "").
		Int("best", best.Value()).
		Msg("starting colormatch server")
	if err := srv.Start(ctx, cfg.Addr()); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// openScores builds the configured score store and its cleanup func.
func openScores(ctx context.Context, cfg config.Config, db *sql.DB) (scores.Store, func(), error) {
	switch cfg.ScoreBackend {
	case config.BackendMemory:
		return scores.NewMemoryStore(), func() {}, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return scores.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		return scores.NewSQLiteStore(db), func() {}, nil
	}
}

// openTelemetry logs every event and, when NATS_URL is set, publishes it too.
// A NATS outage at startup degrades to log-only telemetry.
func openTelemetry(cfg config.Config) (telemetry.Sink, func()) {
	sinks := telemetry.Multi{telemetry.NewLogSink()}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		conn, err := telemetry.Connect(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATSURL).Msg("nats unavailable; telemetry is log-only")
		} else {
			nc = conn
			sinks = append(sinks, telemetry.NewNATSSink(nc, cfg.NATSSubject))
		}
	}

	async := telemetry.NewAsync(sinks, 1024)
	return async, func() {
		async.Close()
		if nc != nil {
			if err := nc.Drain(); err != nil {
				log.Warn().Err(err).Msg("nats drain")
			}
		}
		if n := async.Dropped(); n > 0 {
			log.Warn().Int64("dropped", n).Msg("telemetry events dropped")
		}
	}
}
