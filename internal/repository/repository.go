// Package repository declares the storage contracts the services depend on.
//
// Two implementations exist: repository/sqlite (embedded, development default)
// and repository/postgres (client-server, production). The backend is chosen
// once at startup in the server's composition root; no call site ever branches
// on which engine is behind the interface.
package repository

import (
	"context"

	"github.com/radiocalico/server/internal/model"
)

// UserRepository is the listener directory's storage contract.
type UserRepository interface {
	// CreateUser inserts a user, filling in ID and CreatedAt. A duplicate
	// email surfaces as apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error

	// ListUsers returns every user, newest first.
	ListUsers(ctx context.Context) ([]model.User, error)

	// GetUserByID returns apperror.ErrNotFound when no such user exists.
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// DeleteUser returns apperror.ErrNotFound when no such user exists.
	DeleteUser(ctx context.Context, id string) error
}

// RatingRepository is the rating table's storage contract.
//
// All concurrency correctness for votes rests on the backing store's
// UNIQUE(song_id, user_id) constraint: UpsertRating must be safe for
// concurrent callers on the same pair, with exactly one committing as an
// insert and the rest as updates — never two rows, never a lost update.
type RatingRepository interface {
	// UpsertRating records a vote. On first vote for the (SongID, UserID)
	// pair it inserts and returns updated=false; on a repeat vote it
	// overwrites the rating in place, refreshes CreatedAt, and returns
	// updated=true. In both cases rating.ID and rating.CreatedAt are set to
	// the canonical stored values on return.
	UpsertRating(ctx context.Context, rating *model.Rating) (updated bool, err error)

	// CountRatings tallies up/down votes for one song. A song nobody has
	// voted on yields (0, 0, nil).
	CountRatings(ctx context.Context, songID string) (up, down int, err error)

	// GetUserVote returns the rating value ("up"/"down") this user gave the
	// song, or "" when they haven't voted. Absence is not an error.
	GetUserVote(ctx context.Context, songID, userID string) (string, error)
}

// Store is the full capability set a backend provides: both repositories plus
// lifecycle and health hooks for the composition root.
type Store interface {
	UserRepository
	RatingRepository

	// SeedSampleUsers inserts a few demo listeners when the users table is
	// empty. No-op otherwise.
	SeedSampleUsers(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}
