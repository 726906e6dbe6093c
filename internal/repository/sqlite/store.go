package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/DhruvK0/fynspo-mobile-sub000/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
) WITHOUT ROWID;
`

// Store implements repository.Store on a single SQLite table. Open the
// database with database.OpenSQLite.
type Store struct {
	db     *sql.DB
	prefix string
	now    func() time.Time
}

// NewStore creates the kv table if needed and returns a store whose keys are
// namespaced by prefix.
func NewStore(ctx context.Context, db *sql.DB, prefix string) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create kv_store: %w", err)
	}
	return &Store{db: db, prefix: prefix, now: time.Now}, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Get retrieves one value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, s.key(key)).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("key", key)
		}
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, nil
}

// MultiGet reads all keys in one query.
func (s *Store) MultiGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = s.key(k)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv_store WHERE key IN (`+placeholders(len(keys))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite multi get: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("sqlite multi get scan: %w", err)
		}
		out[strings.TrimPrefix(k, s.prefix)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite multi get: %w", err)
	}
	return out, nil
}

const upsert = `
INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Set stores one value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsert, s.key(key), value, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

// MultiSet writes all entries in one transaction.
func (s *Store) MultiSet(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite multi set begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("sqlite multi set prepare: %w", err)
	}
	defer stmt.Close()

	ts := s.now().UnixMilli()
	for k, v := range entries {
		if _, err := stmt.ExecContext(ctx, s.key(k), v, ts); err != nil {
			return fmt.Errorf("sqlite multi set %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite multi set commit: %w", err)
	}
	return nil
}

// MultiRemove deletes the keys in one statement.
func (s *Store) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = s.key(k)
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE key IN (`+placeholders(len(keys))+`)`, args...); err != nil {
		return fmt.Errorf("sqlite multi remove: %w", err)
	}
	return nil
}

// Ping checks that the database is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
