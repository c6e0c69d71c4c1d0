// internal/store/sqlite.go
//
// SQLite-backed KV, stored in the best_scores table created by the embedded
// migrations (see assets/migrations).

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type sqliteKV struct{ db *sql.DB }

// NewSQLiteStore wraps an open database whose schema is already migrated.
func NewSQLiteStore(db *sql.DB) KV {
	return &sqliteKV{db: db}
}

func (s *sqliteKV) Get(ctx context.Context, ns, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM best_scores WHERE player_id=? AND key=?`, ns, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", ns, key, err)
	}
	return v, true, nil
}

func (s *sqliteKV) Set(ctx context.Context, ns, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO best_scores (player_id, key, value, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(player_id, key) DO UPDATE SET
            value = excluded.value,
            updated_at = excluded.updated_at`,
		ns, key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", ns, key, err)
	}
	return nil
}
