package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"live-orchestrator/internal/media"
)

// SQLiteStore is a Store backed by a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the history database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure history database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS watch_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     TEXT NOT NULL,
			asset_id    TEXT NOT NULL,
			selected_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_watch_history_user ON watch_history(user_id);
		CREATE TABLE IF NOT EXISTS watch_progress (
			user_id    TEXT NOT NULL,
			asset_id   TEXT NOT NULL,
			progress   REAL NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, asset_id)
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordSelection implements Store.RecordSelection.
func (s *SQLiteStore) RecordSelection(ctx context.Context, userID string, id media.AssetID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watch_history (user_id, asset_id, selected_at) VALUES (?, ?, ?)`,
		userID, string(id), at.UTC())
	if err != nil {
		return fmt.Errorf("record selection: %w", err)
	}
	return nil
}

// SaveProgress implements Store.SaveProgress.
func (s *SQLiteStore) SaveProgress(ctx context.Context, userID string, id media.AssetID, progress float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_progress (user_id, asset_id, progress, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, asset_id) DO UPDATE SET progress = excluded.progress, updated_at = excluded.updated_at`,
		userID, string(id), progress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Progress implements Store.Progress.
func (s *SQLiteStore) Progress(ctx context.Context, userID string) (map[media.AssetID]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT asset_id, progress FROM watch_progress WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := make(map[media.AssetID]float64)
	for rows.Next() {
		var id string
		var p float64
		if err := rows.Scan(&id, &p); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out[media.AssetID(id)] = p
	}
	return out, rows.Err()
}

// SelectionCount returns the number of history rows for userID.
func (s *SQLiteStore) SelectionCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watch_history WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count selections: %w", err)
	}
	return n, nil
}
