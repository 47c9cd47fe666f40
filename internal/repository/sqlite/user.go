package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/radiocalico/server/internal/apperror"
	"github.com/radiocalico/server/internal/model"
	"github.com/radiocalico/server/internal/repository"
)

// compile-time check that *DB satisfies the full storage contract
var _ repository.Store = (*DB)(nil)

// CreateUser inserts a new directory user, generating its id and timestamp.
// The email UNIQUE constraint turns duplicate signups into apperror.Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("a user with this email already exists")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}
	return nil
}

// ListUsers returns all users, newest first. The id tiebreak keeps the order
// stable when timestamps collide (xids are themselves time-ordered).
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, email, created_at FROM users
		 ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}

	return users, nil
}

// GetUserByID returns apperror.ErrNotFound when no user has that id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &u, nil
}

// DeleteUser removes a user; apperror.ErrNotFound when nothing was deleted.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete result for user %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// SeedSampleUsers inserts a few demo listeners when the table is empty.
// Used only in development (SEED_SAMPLE_DATA=true).
func (db *DB) SeedSampleUsers(ctx context.Context) error {
	var count int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`,
	).Scan(&count); err != nil {
		return fmt.Errorf("sqlite: counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, sample := range sampleUsers() {
		u := sample
		if err := db.CreateUser(ctx, &u); err != nil {
			return fmt.Errorf("sqlite: seeding sample users: %w", err)
		}
	}
	return nil
}

func sampleUsers() []model.User {
	return []model.User{
		{Name: "Alice Johnson", Email: "alice@example.com"},
		{Name: "Bob Smith", Email: "bob@example.com"},
		{Name: "Carol Williams", Email: "carol@example.com"},
	}
}
