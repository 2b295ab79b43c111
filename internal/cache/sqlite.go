// Package cache provides the SQLite-backed session cache for fetched
// messages. Analysis results are never stored here; only raw provider
// records, so a re-run within a session skips refetching.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inboxlens/inboxlens/internal/gmail"
)

// SQLiteStore implements gmail.Store backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ gmail.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at the given path and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL improves concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS raw_messages (
	id         TEXT PRIMARY KEY,
	fetched_at INTEGER NOT NULL,
	payload    BLOB NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the cached record for id, reporting whether it was present.
func (s *SQLiteStore) Get(ctx context.Context, id gmail.MessageID) (gmail.RawMessage, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM raw_messages WHERE id = ?", string(id)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return gmail.RawMessage{}, false, nil
	}
	if err != nil {
		return gmail.RawMessage{}, false, fmt.Errorf("select message: %w", err)
	}
	var msg gmail.RawMessage
	if err := json.Unmarshal(blob, &msg); err != nil {
		return gmail.RawMessage{}, false, fmt.Errorf("decode cached message: %w", err)
	}
	return msg, true, nil
}

// Put upserts the given records.
func (s *SQLiteStore) Put(ctx context.Context, msgs []gmail.RawMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_messages (id, fetched_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			payload    = excluded.payload
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().Unix()
	for _, m := range msgs {
		blob, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message %s: %w", m.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, string(m.ID), now, blob); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Count reports the number of cached records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM raw_messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// Clear wipes the session cache, e.g. on sign-out or an explicit refresh.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM raw_messages"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
