package scores

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLite stores scores in the `scores` table created by the embedded migrations.
type SQLite struct{ db *sql.DB }

// NewSQLiteStore wraps an already-migrated database handle.
func NewSQLiteStore(db *sql.DB) *SQLite { return &SQLite{db: db} }

// Record inserts the score and prunes everything below the top Cap in one transaction.
func (s *SQLite) Record(ctx context.Context, playerName string, score int, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scores(player_name, score, created_at) VALUES(?,?,?)`,
		playerName, score, at.UnixNano(),
	); err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM scores WHERE id NOT IN (
			SELECT id FROM scores
			ORDER BY score DESC, created_at DESC, id DESC
			LIMIT ?)`, Cap,
	); err != nil {
		return fmt.Errorf("prune scores: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) Top(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_name, score, created_at
		FROM scores
		ORDER BY score DESC, created_at DESC, id DESC
		LIMIT ?`, limit(n),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.PlayerName, &e.Score, &at); err != nil {
			return nil, err
		}
		e.At = time.Unix(0, at).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scores`)
	return err
}
