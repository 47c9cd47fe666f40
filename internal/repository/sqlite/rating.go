package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/radiocalico/server/internal/model"
)

// UpsertRating records a vote with "last vote wins" semantics.
//
// The write is anchored on UNIQUE(song_id, user_id): we attempt the insert
// with ON CONFLICT DO NOTHING and let RowsAffected tell us whether this was
// the pair's first vote. If the row already existed we overwrite its rating
// and refresh created_at. There is deliberately no SELECT-then-decide step —
// under concurrent first votes the constraint guarantees exactly one caller
// takes the insert branch and the rest fall through to the update, so two
// rows for one pair can never exist.
//
// Artist/title are stored on insert only; a repeat vote does not touch them
// (they are enrichment from the stream metadata, not part of the vote).
func (db *DB) UpsertRating(ctx context.Context, rating *model.Rating) (bool, error) {
	stamp := now()
	newID := xid.New().String()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO ratings (id, song_id, artist, title, user_id, rating, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(song_id, user_id) DO NOTHING`,
		newID, rating.SongID,
		nullIfEmpty(rating.Artist), nullIfEmpty(rating.Title),
		rating.UserID, rating.Rating, stamp,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting rating: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rating insert result: %w", err)
	}

	if n == 1 {
		rating.ID = newID
		rating.CreatedAt = stamp
		return false, nil
	}

	// The pair already has a row: last vote wins.
	_, err = db.conn.ExecContext(ctx,
		`UPDATE ratings SET rating = ?, created_at = ?
		 WHERE song_id = ? AND user_id = ?`,
		rating.Rating, stamp, rating.SongID, rating.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: updating rating: %w", err)
	}

	// Report the canonical row id, not the discarded candidate.
	err = db.conn.QueryRowContext(ctx,
		`SELECT id FROM ratings WHERE song_id = ? AND user_id = ?`,
		rating.SongID, rating.UserID,
	).Scan(&rating.ID)
	if err != nil {
		return false, fmt.Errorf("sqlite: reading back rating id: %w", err)
	}
	rating.CreatedAt = stamp

	return true, nil
}

// CountRatings tallies the up and down votes for one song.
func (db *DB) CountRatings(ctx context.Context, songID string) (up, down int, err error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT rating, COUNT(*) FROM ratings WHERE song_id = ? GROUP BY rating`,
		songID,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: counting ratings for %s: %w", songID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return 0, 0, fmt.Errorf("sqlite: scanning rating count: %w", err)
		}
		switch value {
		case model.VoteUp:
			up = count
		case model.VoteDown:
			down = count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("sqlite: iterating rating counts: %w", err)
	}

	return up, down, nil
}

// GetUserVote returns this user's vote on the song, or "" when they haven't
// voted. No vote is not an error.
func (db *DB) GetUserVote(ctx context.Context, songID, userID string) (string, error) {
	var vote string
	err := db.conn.QueryRowContext(ctx,
		`SELECT rating FROM ratings WHERE song_id = ? AND user_id = ?`,
		songID, userID,
	).Scan(&vote)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: getting vote for %s/%s: %w", songID, userID, err)
	}
	return vote, nil
}

// nullIfEmpty maps "" to SQL NULL for the optional artist/title columns.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
