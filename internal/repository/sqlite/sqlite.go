// Package sqlite implements repository.Store on an embedded SQLite database.
//
// This is the development backend: a single file (or ":memory:" in tests), no
// server process to run. The driver is modernc.org/sqlite — a pure Go
// translation of SQLite, so builds need no C toolchain and cross-compile
// cleanly. The blank-ish import below registers it with database/sql under the
// driver name "sqlite".
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New opens (creating if necessary) the database at dbPath and runs
// migrations. Use ":memory:" for a throwaway in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// A single connection serializes all writes at the pool level, which
	// sidesteps SQLITE_BUSY churn under concurrent requests, and makes
	// ":memory:" behave as one database (every new pool connection would
	// otherwise get its own empty in-memory instance).
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight; busy_timeout makes
	// the engine wait out a held lock instead of failing immediately.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every startup.
//
// The UNIQUE(song_id, user_id) constraint is load-bearing: it is what makes
// concurrent first-votes for the same pair collapse into one row. The CHECK on
// rating mirrors the service-level validation so no other writer can store a
// bad value.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS ratings (
			id         TEXT PRIMARY KEY,
			song_id    TEXT NOT NULL,
			artist     TEXT,
			title      TEXT,
			user_id    TEXT NOT NULL,
			rating     TEXT NOT NULL CHECK(rating IN ('up', 'down')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(song_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_ratings_song_id ON ratings(song_id);
	`)
	if err != nil {
		return fmt.Errorf("creating ratings table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is SQLite telling us a UNIQUE or
// PRIMARY KEY constraint fired.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// now returns the timestamp we stamp rows with. Generated in Go rather than
// via column defaults so both storage backends order and serialize
// identically.
func now() time.Time {
	return time.Now().UTC()
}
