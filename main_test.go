package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/colormatch/assets"
	"github.com/robalobadob/colormatch/internal/config"
	"github.com/robalobadob/colormatch/internal/scores"
)

func TestOpenScoresBackends(t *testing.T) {
	ctx := context.Background()
	db, err := openDB(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer db.Close()
	migrations, err := assets.Migrations()
	require.NoError(t, err)
	require.NoError(t, migrate(db, migrations))

	st, done, err := openScores(ctx, config.Config{ScoreBackend: config.BackendSQLite}, db)
	require.NoError(t, err)
	defer done()
	assert.IsType(t, &scores.SQLite{}, st)
	require.NoError(t, st.Record(ctx, "ada", 12, time.Now()))
	top, err := st.Top(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, top[0].Score)

	mem, done, err := openScores(ctx, config.Config{ScoreBackend: config.BackendMemory}, db)
	require.NoError(t, err)
	defer done()
	top, err = mem.Top(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, top)

	_, _, err = openScores(ctx, config.Config{ScoreBackend: config.BackendRedis, RedisAddr: "127.0.0.1:1"}, db)
	assert.Error(t, err)
}

func TestOpenTelemetryLogOnly(t *testing.T) {
	sink, done := openTelemetry(config.Config{NATSSubject: "colormatch.telemetry"})
	assert.NotPanics(t, func() {
		sink.Emit("session_start", map[string]string{"session_id": "s1"})
	})
	done()
}
