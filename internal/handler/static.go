package handler

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// StaticHandler serves the player page and its assets from a directory, with
// a single-page-app fallback: any path that doesn't match a real file gets
// index.html, so deep links into the page still load. API routes never reach
// this handler — the router matches them first.
type StaticHandler struct {
	dir        string
	fileServer http.Handler
	logger     *slog.Logger
}

func NewStaticHandler(staticDir string, logger *slog.Logger) *StaticHandler {
	return &StaticHandler{
		dir:        staticDir,
		fileServer: http.FileServer(http.Dir(staticDir)),
		logger:     logger,
	}
}

// ServeHTTP serves the requested file if it exists, index.html otherwise.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Clean the path so "../" can't escape the static directory.
	rel := filepath.Clean(strings.TrimPrefix(r.URL.Path, "/"))
	if rel == "." {
		rel = "index.html"
	}

	full := filepath.Join(h.dir, rel)
	if info, err := os.Stat(full); err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
		return
	}

	h.fileServer.ServeHTTP(w, r)
}
