// Package service contains the business logic layer: validation and
// orchestration, with no knowledge of HTTP or SQL. Services accept primitives
// plus a context, return domain models, and report failures through the
// apperror taxonomy; the handler layer translates those to status codes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/radiocalico/server/internal/apperror"
	"github.com/radiocalico/server/internal/model"
	"github.com/radiocalico/server/internal/repository"
)

// RatingService records listener votes and computes per-song aggregates.
type RatingService struct {
	repo   repository.RatingRepository
	logger *slog.Logger
}

func NewRatingService(repo repository.RatingRepository, logger *slog.Logger) *RatingService {
	return &RatingService{
		repo:   repo,
		logger: logger,
	}
}

// RecordVote validates and stores one vote with last-vote-wins semantics.
//
// songID and userID are opaque client-minted tokens — presence is validated,
// provenance is not. The rating value must be exactly "up" or "down":
// case-sensitive, no trimming, no synonyms. All validation happens before any
// store access; the store's uniqueness constraint handles every concurrency
// concern (see repository.RatingRepository).
//
// artist and title are optional enrichment from the stream metadata and may
// be empty.
func (s *RatingService) RecordVote(ctx context.Context, songID, userID, value, artist, title string) (*model.VoteResult, error) {
	songID = strings.TrimSpace(songID)
	userID = strings.TrimSpace(userID)

	if songID == "" {
		return nil, apperror.ValidationFailed("songId", "songId is required")
	}
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "userId is required")
	}
	if value == "" {
		return nil, apperror.ValidationFailed("rating", "rating is required")
	}
	if value != model.VoteUp && value != model.VoteDown {
		return nil, apperror.ValidationFailed("rating",
			fmt.Sprintf("rating must be %q or %q", model.VoteUp, model.VoteDown))
	}

	rating := &model.Rating{
		SongID: songID,
		UserID: userID,
		Rating: value,
		Artist: strings.TrimSpace(artist),
		Title:  strings.TrimSpace(title),
	}

	updated, err := s.repo.UpsertRating(ctx, rating)
	if err != nil {
		s.logger.Error("failed to record vote",
			slog.String("song_id", songID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("recording vote: %w", err)
	}

	s.logger.Info("vote recorded",
		slog.String("song_id", songID),
		slog.String("rating", value),
		slog.Bool("updated", updated),
	)

	return &model.VoteResult{
		ID:      rating.ID,
		Rating:  rating.Rating,
		Updated: updated,
	}, nil
}

// GetAggregate returns the song's up/down tally plus the caller's own vote.
// userID may be empty, in which case UserVote is nil. Read-only; a concurrent
// writer may land before or after this snapshot but never half-applied.
func (s *RatingService) GetAggregate(ctx context.Context, songID, userID string) (*model.Aggregate, error) {
	songID = strings.TrimSpace(songID)
	if songID == "" {
		return nil, apperror.ValidationFailed("songId", "songId is required")
	}

	up, down, err := s.repo.CountRatings(ctx, songID)
	if err != nil {
		s.logger.Error("failed to count ratings",
			slog.String("song_id", songID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("counting ratings: %w", err)
	}

	agg := &model.Aggregate{ThumbsUp: up, ThumbsDown: down}

	if userID = strings.TrimSpace(userID); userID != "" {
		vote, err := s.repo.GetUserVote(ctx, songID, userID)
		if err != nil {
			s.logger.Error("failed to look up user vote",
				slog.String("song_id", songID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("looking up user vote: %w", err)
		}
		if vote != "" {
			agg.UserVote = &vote
		}
	}

	return agg, nil
}
