package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is the slice of the store the health endpoint needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness of the process and its storage backend.
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

// HandleHealth answers GET /api/health. A reachable store yields
// {"status":"ok", ..., "database":"connected"}; an unreachable one a 503 so
// orchestrators take the instance out of rotation.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  "connected",
	}

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("health check: store unreachable", slog.String("error", err.Error()))
		resp.Status = "error"
		resp.Database = "disconnected"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
