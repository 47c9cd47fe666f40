// Package server is the composition root: it wires the storage backend,
// services, handlers, and middleware together, and owns the HTTP listener's
// lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/radiocalico/server/internal/config"
	"github.com/radiocalico/server/internal/handler"
	"github.com/radiocalico/server/internal/middleware"
	"github.com/radiocalico/server/internal/repository"
	"github.com/radiocalico/server/internal/repository/postgres"
	"github.com/radiocalico/server/internal/repository/sqlite"
	"github.com/radiocalico/server/internal/service"
)

// Server owns the router, the configuration, and the storage backend. The
// store is closed during graceful shutdown, after in-flight requests drain.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// New assembles the dependency chain: store → services → handlers → routes.
//
// The storage backend is decided exactly once, here. Everything downstream
// sees only the repository interfaces — no call site ever knows or branches
// on which engine is underneath.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	var store repository.Store
	var err error
	if cfg.UsePostgres {
		store, err = postgres.New(cfg.DatabaseURL)
	} else {
		store, err = sqlite.New(cfg.DBPath)
	}
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if cfg.SeedSampleData {
		if err := store.SeedSampleUsers(context.Background()); err != nil {
			store.Close()
			return nil, fmt.Errorf("seeding sample data: %w", err)
		}
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	userService := service.NewUserService(s.store, s.logger)
	ratingService := service.NewRatingService(s.store, s.logger)

	userHandler := handler.NewUserHandler(userService, s.logger)
	ratingHandler := handler.NewRatingHandler(ratingService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/users", userHandler.HandleList)
		r.Get("/users/{id}", userHandler.HandleGet)
		r.Post("/users", userHandler.HandleCreate)
		r.Delete("/users/{id}", userHandler.HandleDelete)

		r.Get("/ratings/{songId}", ratingHandler.HandleGet)
		r.Post("/ratings", ratingHandler.HandleVote)

		r.Get("/health", healthHandler.HandleHealth)
	})

	// Everything else is the player page: real files served as-is, unknown
	// paths fall back to index.html.
	s.router.Handle("/*", handler.NewStaticHandler(s.config.StaticDir, s.logger))
}

// Start runs the HTTP server until SIGINT/SIGTERM or a listener error. On a
// shutdown signal, in-flight requests get 30 seconds to finish before the
// store is closed.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("postgres", s.config.UsePostgres),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
