package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/radiocalico/server/internal/model"
)

// UpsertRating records a vote with "last vote wins" semantics in a single
// atomic statement.
//
// ON CONFLICT resolves the race on UNIQUE(song_id, user_id): concurrent first
// votes for a pair collapse into one insert plus updates, never two rows.
// RETURNING (xmax = 0) distinguishes the two outcomes — xmax is zero on a row
// the statement freshly inserted and non-zero on one it updated. On the
// update path the existing row keeps its id, which RETURNING hands back to
// replace the discarded candidate. Artist/title are written on insert only.
func (db *DB) UpsertRating(ctx context.Context, rating *model.Rating) (bool, error) {
	stamp := now()

	var inserted bool
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO ratings (id, song_id, artist, title, user_id, rating, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (song_id, user_id)
		 DO UPDATE SET rating = EXCLUDED.rating, created_at = EXCLUDED.created_at
		 RETURNING id, (xmax = 0)`,
		xid.New().String(), rating.SongID,
		nullIfEmpty(rating.Artist), nullIfEmpty(rating.Title),
		rating.UserID, rating.Rating, stamp,
	).Scan(&rating.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("postgres: upserting rating: %w", err)
	}
	rating.CreatedAt = stamp

	return !inserted, nil
}

// CountRatings tallies the up and down votes for one song.
func (db *DB) CountRatings(ctx context.Context, songID string) (up, down int, err error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT rating, COUNT(*) FROM ratings WHERE song_id = $1 GROUP BY rating`,
		songID,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("postgres: counting ratings for %s: %w", songID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return 0, 0, fmt.Errorf("postgres: scanning rating count: %w", err)
		}
		switch value {
		case model.VoteUp:
			up = count
		case model.VoteDown:
			down = count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("postgres: iterating rating counts: %w", err)
	}

	return up, down, nil
}

// GetUserVote returns this user's vote on the song, or "" when they haven't
// voted.
func (db *DB) GetUserVote(ctx context.Context, songID, userID string) (string, error) {
	var vote string
	err := db.conn.QueryRowContext(ctx,
		`SELECT rating FROM ratings WHERE song_id = $1 AND user_id = $2`,
		songID, userID,
	).Scan(&vote)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: getting vote for %s/%s: %w", songID, userID, err)
	}
	return vote, nil
}

// nullIfEmpty maps "" to SQL NULL for the optional artist/title columns.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
