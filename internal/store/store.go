// Package store persists scene generations and session start times in SQLite.
// The scene JSON document is the payload; the other columns are metadata for
// listing without decoding.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"fivem/resonance/internal/errors"
)

const (
	// FileName is the database file looked for when walking up directories.
	FileName = ".resonance.db"
	// EnvVar overrides every other way of locating the database.
	EnvVar = "RESONANCE_DB"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at INTEGER NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	node_count INTEGER NOT NULL,
	edge_count INTEGER NOT NULL,
	payload    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scenes_created ON scenes(created_at);
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL
);
`

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

// Open opens (creating if needed) a SQLite database with WAL mode and applies
// the schema. ":memory:" opens a private in-memory database.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "setting WAL mode")
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "setting busy timeout")
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "applying schema")
	}

	return &DB{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Discover finds the database path using priority: env > flag > walk-up >
// a new file in the working directory.
func Discover(flagPath string) (string, error) {
	if envPath := os.Getenv(EnvVar); envPath != "" {
		return envPath, nil
	}
	if flagPath != "" {
		return flagPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "resolving working directory")
	}
	if found, ok := walkUp(cwd, FileName); ok {
		return found, nil
	}
	return filepath.Join(cwd, FileName), nil
}

// walkUp looks for name in dir and each of its parents.
func walkUp(dir, name string) (string, bool) {
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
