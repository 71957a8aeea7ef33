// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pollcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/boardlink/internal/persistence/sqlite"
)

const sqliteSchemaVersion = 1

const insertSeenSQL = `INSERT OR IGNORE INTO poll_seen (poller_key, item_id, seen_at) VALUES (?, ?, ?)`

// SQLiteStore implements Store on SQLite. Each seen ID is one row, so Put is
// an INSERT OR IGNORE and never rewrites the existing set.
type SQLiteStore struct {
	DB   *sql.DB
	path string
}

// NewSQLiteStore opens (and migrates) the poll database at dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sqlite.Open(ctx, dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{DB: db, path: dbPath}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("poll store: migration failed: %w", err)
	}
	return s, nil
}

// Path returns the database file, for integrity checks.
func (s *SQLiteStore) Path() string { return s.path }

// HealthCheck pings the database.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	var currentVersion int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= sqliteSchemaVersion {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS poll_entries (
		poller_key TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS poll_seen (
		poller_key TEXT NOT NULL REFERENCES poll_entries(poller_key) ON DELETE CASCADE,
		item_id TEXT NOT NULL,
		seen_at TEXT NOT NULL,
		PRIMARY KEY (poller_key, item_id)
	);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]string, bool, error) {
	var exists int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM poll_entries WHERE poller_key = ?`, key).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT item_id FROM poll_seen WHERE poller_key = ? ORDER BY rowid`, key)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, false, err
		}
		ids = append(ids, id)
	}
	return ids, true, rows.Err()
}

func (s *SQLiteStore) Put(ctx context.Context, key string, ids []string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertEntry(ctx, tx, key, now); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, insertSeenSQL)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, key, id, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddNew inserts every id in one transaction and reports the rows that were
// actually written.
func (s *SQLiteStore) AddNew(ctx context.Context, key string, ids []string) ([]string, int, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertEntry(ctx, tx, key, now); err != nil {
		return nil, 0, err
	}

	stmt, err := tx.PrepareContext(ctx, insertSeenSQL)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = stmt.Close() }()

	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, key, id, now)
		if err != nil {
			return nil, 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, 0, err
		}
		if n == 1 {
			fresh = append(fresh, id)
		}
	}

	var seen int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM poll_seen WHERE poller_key = ?`, key).Scan(&seen); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return fresh, seen, nil
}

func upsertEntry(ctx context.Context, tx *sql.Tx, key, now string) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO poll_entries (poller_key, created_at, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(poller_key) DO UPDATE SET updated_at = excluded.updated_at
	`, key, now, now)
	return err
}

func (s *SQLiteStore) Backend() string { return BackendSQLite }

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}
