package model

import "time"

// Rating values accepted by the API. These are the only two literals allowed —
// case-sensitive, no synonyms. The storage layer repeats this as a CHECK
// constraint so bad values can't sneak in through any other path.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// Rating is one listener's vote on one song.
//
// SongID and UserID are both opaque tokens minted by the client: the song id is
// typically a hash of "artist::title" derived from the stream metadata, and the
// user id is a pseudo-anonymous token the player stores in localStorage. The
// server never validates their provenance, only their presence.
//
// At most one row exists per (SongID, UserID) pair — enforced by a UNIQUE
// constraint. A repeat vote for the same pair overwrites Rating and refreshes
// CreatedAt in place; no history is kept.
type Rating struct {
	ID        string    `json:"id"`
	SongID    string    `json:"song_id"`
	Artist    string    `json:"artist,omitempty"`
	Title     string    `json:"title,omitempty"`
	UserID    string    `json:"user_id"`
	Rating    string    `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteResult is what recording a vote reports back: the canonical row id
// (the existing one when the vote overwrote an earlier row), the rating as
// stored, and whether an earlier vote was replaced.
type VoteResult struct {
	ID      string `json:"id"`
	Rating  string `json:"rating"`
	Updated bool   `json:"updated"`
}

// Aggregate is the per-song tally plus the requesting listener's own vote.
// UserVote is nil when the caller didn't identify themselves or hasn't voted.
type Aggregate struct {
	ThumbsUp   int     `json:"thumbsUp"`
	ThumbsDown int     `json:"thumbsDown"`
	UserVote   *string `json:"userVote"`
}
