package sqlite

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/radiocalico/server/internal/model"
)

// newTestDB returns a fresh in-memory database. The pool is capped at one
// connection (see New), so ":memory:" behaves as a single database for the
// whole test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func vote(t *testing.T, db *DB, songID, userID, value string) (*model.Rating, bool) {
	t.Helper()
	r := &model.Rating{SongID: songID, UserID: userID, Rating: value}
	updated, err := db.UpsertRating(context.Background(), r)
	if err != nil {
		t.Fatalf("UpsertRating(%s, %s, %s) error = %v", songID, userID, value, err)
	}
	return r, updated
}

func TestUpsertRating_FirstVoteInserts(t *testing.T) {
	db := newTestDB(t)

	r, updated := vote(t, db, "song1", "listener1", model.VoteUp)

	if updated {
		t.Error("first vote should report updated=false")
	}
	if r.ID == "" {
		t.Error("UpsertRating did not set rating.ID")
	}
	if r.CreatedAt.IsZero() {
		t.Error("UpsertRating did not set rating.CreatedAt")
	}
}

func TestUpsertRating_SecondVoteOverwrites(t *testing.T) {
	db := newTestDB(t)

	first, updated := vote(t, db, "song1", "listener1", model.VoteUp)
	if updated {
		t.Fatal("first vote should report updated=false")
	}

	second, updated := vote(t, db, "song1", "listener1", model.VoteDown)
	if !updated {
		t.Error("repeat vote should report updated=true")
	}
	if second.ID != first.ID {
		t.Errorf("repeat vote id = %q, want original row id %q", second.ID, first.ID)
	}

	// Only the second vote counts — no double count.
	up, down, err := db.CountRatings(context.Background(), "song1")
	if err != nil {
		t.Fatalf("CountRatings() error = %v", err)
	}
	if up != 0 || down != 1 {
		t.Errorf("counts = (%d, %d), want (0, 1)", up, down)
	}
}

func TestUpsertRating_SameVoteTwiceStillOneRow(t *testing.T) {
	db := newTestDB(t)

	vote(t, db, "song1", "listener1", model.VoteUp)
	_, updated := vote(t, db, "song1", "listener1", model.VoteUp)

	if !updated {
		t.Error("repeat vote with the same value should still report updated=true")
	}

	up, down, err := db.CountRatings(context.Background(), "song1")
	if err != nil {
		t.Fatalf("CountRatings() error = %v", err)
	}
	if up != 1 || down != 0 {
		t.Errorf("counts = (%d, %d), want (1, 0)", up, down)
	}
}

// Concurrent votes for the same (song, user) pair must collapse into a single
// row: exactly one caller observes the insert, everyone else the update.
func TestUpsertRating_ConcurrentSamePair(t *testing.T) {
	db := newTestDB(t)

	const callers = 16
	var inserts atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		value := model.VoteUp
		if i%2 == 1 {
			value = model.VoteDown
		}
		wg.Add(1)
		go func(value string) {
			defer wg.Done()
			r := &model.Rating{SongID: "contested", UserID: "listener1", Rating: value}
			updated, err := db.UpsertRating(context.Background(), r)
			if err != nil {
				t.Errorf("UpsertRating() error = %v", err)
				return
			}
			if !updated {
				inserts.Add(1)
			}
		}(value)
	}
	wg.Wait()

	if got := inserts.Load(); got != 1 {
		t.Errorf("inserts = %d, want exactly 1", got)
	}

	up, down, err := db.CountRatings(context.Background(), "contested")
	if err != nil {
		t.Fatalf("CountRatings() error = %v", err)
	}
	if up+down != 1 {
		t.Errorf("total rows for pair = %d, want 1 (up=%d down=%d)", up+down, up, down)
	}
}

func TestCountRatings_NoVotes(t *testing.T) {
	db := newTestDB(t)

	up, down, err := db.CountRatings(context.Background(), "silence")
	if err != nil {
		t.Fatalf("CountRatings() error = %v", err)
	}
	if up != 0 || down != 0 {
		t.Errorf("counts = (%d, %d), want (0, 0)", up, down)
	}
}

func TestCountRatings_IsolatedPerSong(t *testing.T) {
	db := newTestDB(t)

	vote(t, db, "songA", "l1", model.VoteUp)
	vote(t, db, "songA", "l2", model.VoteUp)
	vote(t, db, "songA", "l3", model.VoteDown)
	vote(t, db, "songB", "l1", model.VoteDown)

	up, down, err := db.CountRatings(context.Background(), "songA")
	if err != nil {
		t.Fatalf("CountRatings() error = %v", err)
	}
	if up != 2 || down != 1 {
		t.Errorf("songA counts = (%d, %d), want (2, 1)", up, down)
	}

	up, down, err = db.CountRatings(context.Background(), "songB")
	if err != nil {
		t.Fatalf("CountRatings() error = %v", err)
	}
	if up != 0 || down != 1 {
		t.Errorf("songB counts = (%d, %d), want (0, 1)", up, down)
	}
}

func TestGetUserVote(t *testing.T) {
	db := newTestDB(t)

	vote(t, db, "song1", "listener1", model.VoteDown)

	got, err := db.GetUserVote(context.Background(), "song1", "listener1")
	if err != nil {
		t.Fatalf("GetUserVote() error = %v", err)
	}
	if got != model.VoteDown {
		t.Errorf("vote = %q, want %q", got, model.VoteDown)
	}
}

func TestGetUserVote_NoVoteIsNotAnError(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetUserVote(context.Background(), "song1", "stranger")
	if err != nil {
		t.Fatalf("GetUserVote() error = %v", err)
	}
	if got != "" {
		t.Errorf("vote = %q, want empty", got)
	}
}

func TestUpsertRating_StoresOptionalMetadata(t *testing.T) {
	db := newTestDB(t)

	r := &model.Rating{
		SongID: "song1",
		UserID: "listener1",
		Rating: model.VoteUp,
		Artist: "Calico Cats",
		Title:  "Purring in D Minor",
	}
	if _, err := db.UpsertRating(context.Background(), r); err != nil {
		t.Fatalf("UpsertRating() error = %v", err)
	}

	var artist, title string
	err := db.conn.QueryRow(
		`SELECT COALESCE(artist, ''), COALESCE(title, '') FROM ratings WHERE id = ?`,
		r.ID,
	).Scan(&artist, &title)
	if err != nil {
		t.Fatalf("reading back rating: %v", err)
	}
	if artist != "Calico Cats" || title != "Purring in D Minor" {
		t.Errorf("stored metadata = (%q, %q), want original values", artist, title)
	}
}
