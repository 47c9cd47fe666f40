package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/radiocalico/server/internal/apperror"
	"github.com/radiocalico/server/internal/model"
	"github.com/radiocalico/server/internal/repository"
)

// UserService handles the listener directory: create, list, fetch, delete.
// There is no update — directory entries are immutable once created.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and stores a new directory user. Name and email are both
// required; a duplicate email propagates as apperror.ErrConflict from the
// store's uniqueness constraint.
func (s *UserService) Create(ctx context.Context, name, email string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	user := &model.User{Name: name, Email: email}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// A duplicate email is a normal client mistake, not a store failure.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// List returns every directory user, newest first.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetByID fetches one user; apperror.ErrNotFound when absent.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user id is required")
	}
	return s.repo.GetUserByID(ctx, id)
}

// Delete removes one user; apperror.ErrNotFound when absent.
func (s *UserService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "user id is required")
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.String("id", id))
	return nil
}
