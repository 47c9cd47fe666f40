// Package postgres implements repository.Store on PostgreSQL.
//
// This is the production backend, reached through pgx's database/sql adapter
// so the code shape stays close to the sqlite backend. The two differ only in
// placeholder style ($n here) and in how the rating upsert reports
// insert-vs-update — each backend speaks its engine's native idiom instead of
// rewriting SQL strings.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// DB wraps a sql.DB pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New connects to the database at databaseURL and runs migrations.
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxIdleTime(30 * time.Second)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
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

// migrate creates the schema; identical shape to the sqlite backend so either
// engine can sit behind the repository interfaces.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
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
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(song_id, user_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating ratings table: %w", err)
	}

	_, err = db.conn.Exec(
		`CREATE INDEX IF NOT EXISTS idx_ratings_song_id ON ratings(song_id)`,
	)
	if err != nil {
		return fmt.Errorf("creating ratings index: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is Postgres signalling a unique
// constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func now() time.Time {
	return time.Now().UTC()
}
