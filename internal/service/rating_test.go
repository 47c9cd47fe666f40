package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/radiocalico/server/internal/apperror"
	"github.com/radiocalico/server/internal/model"
)

// mockRatingRepo is an in-memory stand-in for the storage backend, keyed the
// same way the real UNIQUE constraint is: one entry per (song, user) pair.
type mockRatingRepo struct {
	votes     map[string]*model.Rating
	nextID    int
	upsertErr error // when set, UpsertRating fails with this
}

func newMockRatingRepo() *mockRatingRepo {
	return &mockRatingRepo{votes: make(map[string]*model.Rating)}
}

func pairKey(songID, userID string) string {
	return songID + "\x00" + userID
}

func (m *mockRatingRepo) UpsertRating(_ context.Context, rating *model.Rating) (bool, error) {
	if m.upsertErr != nil {
		return false, m.upsertErr
	}

	key := pairKey(rating.SongID, rating.UserID)
	if existing, ok := m.votes[key]; ok {
		existing.Rating = rating.Rating
		rating.ID = existing.ID
		return true, nil
	}

	m.nextID++
	rating.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *rating
	m.votes[key] = &stored
	return false, nil
}

func (m *mockRatingRepo) CountRatings(_ context.Context, songID string) (up, down int, err error) {
	for _, r := range m.votes {
		if r.SongID != songID {
			continue
		}
		switch r.Rating {
		case model.VoteUp:
			up++
		case model.VoteDown:
			down++
		}
	}
	return up, down, nil
}

func (m *mockRatingRepo) GetUserVote(_ context.Context, songID, userID string) (string, error) {
	if r, ok := m.votes[pairKey(songID, userID)]; ok {
		return r.Rating, nil
	}
	return "", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRatingService() (*RatingService, *mockRatingRepo) {
	repo := newMockRatingRepo()
	return NewRatingService(repo, testLogger()), repo
}

func TestRecordVote_FirstVote(t *testing.T) {
	svc, _ := newTestRatingService()

	res, err := svc.RecordVote(context.Background(), "s1", "u1", "up", "", "")
	if err != nil {
		t.Fatalf("RecordVote() error = %v", err)
	}
	if res.Updated {
		t.Error("first vote should report Updated=false")
	}
	if res.ID == "" {
		t.Error("expected a row id")
	}
	if res.Rating != "up" {
		t.Errorf("Rating = %q, want %q", res.Rating, "up")
	}
}

func TestRecordVote_LastVoteWins(t *testing.T) {
	svc, _ := newTestRatingService()

	first, err := svc.RecordVote(context.Background(), "s1", "u1", "up", "", "")
	if err != nil {
		t.Fatalf("RecordVote() error = %v", err)
	}
	second, err := svc.RecordVote(context.Background(), "s1", "u1", "down", "", "")
	if err != nil {
		t.Fatalf("RecordVote() error = %v", err)
	}

	if !second.Updated {
		t.Error("repeat vote should report Updated=true")
	}
	if second.ID != first.ID {
		t.Errorf("repeat vote id = %q, want original %q", second.ID, first.ID)
	}

	agg, err := svc.GetAggregate(context.Background(), "s1", "u1")
	if err != nil {
		t.Fatalf("GetAggregate() error = %v", err)
	}
	if agg.ThumbsUp != 0 || agg.ThumbsDown != 1 {
		t.Errorf("counts = (%d, %d), want (0, 1)", agg.ThumbsUp, agg.ThumbsDown)
	}
	if agg.UserVote == nil || *agg.UserVote != "down" {
		t.Errorf("UserVote = %v, want \"down\"", agg.UserVote)
	}
}

func TestRecordVote_RejectsBadRatings(t *testing.T) {
	svc, _ := newTestRatingService()

	// Exactly "up" or "down" — no synonyms, no case folding.
	for _, bad := range []string{"", "like", "UP", "Down", " up", "1", "thumbsup"} {
		_, err := svc.RecordVote(context.Background(), "s1", "u1", bad, "", "")
		if err == nil {
			t.Errorf("RecordVote(rating=%q) should fail", bad)
			continue
		}
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("RecordVote(rating=%q) error = %v, want ErrValidation", bad, err)
		}
	}
}

func TestRecordVote_RequiresIdentifiers(t *testing.T) {
	svc, _ := newTestRatingService()

	tests := []struct {
		name           string
		songID, userID string
	}{
		{"missing songId", "", "u1"},
		{"whitespace songId", "   ", "u1"},
		{"missing userId", "s1", ""},
		{"whitespace userId", "s1", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordVote(context.Background(), tt.songID, tt.userID, "up", "", "")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRecordVote_ValidatesBeforeStoreAccess(t *testing.T) {
	svc, repo := newTestRatingService()
	repo.upsertErr = errors.New("store is down")

	// Validation failures must never reach the repository.
	_, err := svc.RecordVote(context.Background(), "s1", "u1", "sideways", "", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation (not the store error)", err)
	}
}

func TestRecordVote_StoreErrorPropagates(t *testing.T) {
	svc, repo := newTestRatingService()
	repo.upsertErr = errors.New("connection refused")

	_, err := svc.RecordVote(context.Background(), "s1", "u1", "up", "", "")
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
	if errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("store error should stay unclassified, got %v", err)
	}
}

func TestGetAggregate_ZeroVotes(t *testing.T) {
	svc, _ := newTestRatingService()

	agg, err := svc.GetAggregate(context.Background(), "unheard", "")
	if err != nil {
		t.Fatalf("GetAggregate() error = %v", err)
	}
	if agg.ThumbsUp != 0 || agg.ThumbsDown != 0 || agg.UserVote != nil {
		t.Errorf("aggregate = %+v, want {0 0 <nil>}", agg)
	}
}

func TestGetAggregate_FiveListeners(t *testing.T) {
	svc, _ := newTestRatingService()

	for i, value := range []string{"up", "up", "up", "down", "down"} {
		userID := fmt.Sprintf("u%d", i+1)
		if _, err := svc.RecordVote(context.Background(), "hit", userID, value, "", ""); err != nil {
			t.Fatalf("RecordVote() error = %v", err)
		}
	}

	// No userId supplied: counts only, no personal vote.
	agg, err := svc.GetAggregate(context.Background(), "hit", "")
	if err != nil {
		t.Fatalf("GetAggregate() error = %v", err)
	}
	if agg.ThumbsUp != 3 || agg.ThumbsDown != 2 {
		t.Errorf("counts = (%d, %d), want (3, 2)", agg.ThumbsUp, agg.ThumbsDown)
	}
	if agg.UserVote != nil {
		t.Errorf("UserVote = %v, want nil without a userId", agg.UserVote)
	}
}

func TestGetAggregate_RequiresSongID(t *testing.T) {
	svc, _ := newTestRatingService()

	_, err := svc.GetAggregate(context.Background(), "  ", "u1")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
