// Package handler contains the HTTP layer: request parsing, response shaping,
// and the mapping from domain errors to status codes. No business logic lives
// here — every validation rule belongs to the service layer.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/radiocalico/server/internal/service"
)

// RatingHandler exposes the song-rating endpoints used by the player page.
type RatingHandler struct {
	ratings *service.RatingService
	logger  *slog.Logger
}

func NewRatingHandler(ratings *service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{ratings: ratings, logger: logger}
}

type voteRequest struct {
	SongID string `json:"songId"`
	Artist string `json:"artist"`
	Title  string `json:"title"`
	UserID string `json:"userId"`
	Rating string `json:"rating"`
}

type voteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Rating  string `json:"rating"`
	Updated bool   `json:"updated"`
}

// HandleVote records a vote.
//
// HTTP: POST /api/ratings
// BODY: {"songId": "...", "artist?": "...", "title?": "...", "userId": "...", "rating": "up"|"down"}
func (h *RatingHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid rating JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid JSON body",
		})
		return
	}

	result, err := h.ratings.RecordVote(r.Context(),
		req.SongID, req.UserID, req.Rating, req.Artist, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Rating saved successfully"
	if result.Updated {
		message = "Rating updated successfully"
	}

	writeJSON(w, http.StatusOK, voteResponse{
		Message: message,
		ID:      result.ID,
		Rating:  result.Rating,
		Updated: result.Updated,
	})
}

// HandleGet returns a song's aggregate plus the caller's own vote.
//
// HTTP: GET /api/ratings/{songId}?userId=...
//
// The listener identifies themselves via the userId query parameter, with the
// x-user-id header as a fallback; when both are present the query parameter
// wins. Neither is required — without one, userVote is simply null.
func (h *RatingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	songID := r.PathValue("songId")

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = r.Header.Get("x-user-id")
	}

	agg, err := h.ratings.GetAggregate(r.Context(), songID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, agg)
}
