// internal/config/config.go
//
// Environment-driven configuration for the colormatch server.
// main loads .env via godotenv first; Load then reads the process environment,
// falling back to development defaults for anything unset.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Score backends accepted in SCORE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the fully resolved server configuration.
type Config struct {
	Port     string
	LogLevel zerolog.Level

	DBPath       string
	ScoreBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL     string // empty disables the NATS telemetry sink
	NATSSubject string

	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	ClientOrigin   string
	Production     bool

	PaletteFile string
	DailySalt   string
	SessionIdle time.Duration
}

// Load reads the environment. It only fails on values that are present but unusable.
func Load() (Config, error) {
	cfg := Config{
		Port:          getEnv("PORT", "5175"),
		DBPath:        getEnv("DB_PATH", "./data/colormatch.db"),
		ScoreBackend:  strings.ToLower(getEnv("SCORE_BACKEND", BackendSQLite)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		NATSURL:       os.Getenv("NATS_URL"),
		NATSSubject:   getEnv("NATS_SUBJECT", "colormatch.telemetry"),
		JWTSecret:     getEnv("JWT_SECRET", "dev_secret_change_me"),
		CookieName:    getEnv("COOKIE_NAME", "colormatch_token"),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:    os.Getenv("NODE_ENV") == "production",
		PaletteFile:   os.Getenv("PALETTE_FILE"),
		DailySalt:     getEnv("DAILY_SALT", "colormatch"),
	}

	lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = lvl

	switch cfg.ScoreBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return Config{}, fmt.Errorf("SCORE_BACKEND: unknown backend %q", cfg.ScoreBackend)
	}

	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.JWTExpiresDays, err = envInt("JWT_EXPIRES_DAYS", 14); err != nil {
		return Config{}, err
	}
	idle, err := envInt("SESSION_IDLE_MINUTES", 30)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdle = time.Duration(idle) * time.Minute

	return cfg, nil
}

// Addr is the listen address for http.ListenAndServe.
func (c Config) Addr() string { return ":" + c.Port }

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
