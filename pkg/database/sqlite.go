package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// SQLiteConfig holds on-device SQLite configuration.
type SQLiteConfig struct {
	// Path is the database file, or MemoryDSN.
	Path        string
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns defaults for a database under dataDir.
func DefaultSQLiteConfig(dataDir string) SQLiteConfig {
	return SQLiteConfig{
		Path:        filepath.Join(dataDir, "prefs.db"),
		BusyTimeout: 5 * time.Second,
	}
}

// OpenSQLite opens a SQLite database through the pure-Go modernc driver.
// SQLite has a single writer, so the pool is capped at one connection; this
// also keeps an in-memory database alive for the lifetime of the handle.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	if cfg.Path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d;", cfg.BusyTimeout.Milliseconds()),
		"PRAGMA synchronous = NORMAL;",
	}
	if cfg.Path != MemoryDSN {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL;")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}
