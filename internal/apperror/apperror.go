// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return these instead of HTTP status codes; the handler layer
// translates them in one place (writeError). errors.Is walks the chain via
// Unwrap, so a service can wrap an AppError with fmt.Errorf("...: %w", err)
// and the classification survives.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

type AppError struct {
	Err     error  // sentinel carried for errors.Is
	Message string // human-readable, safe to return to the client
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation the caller can act on, e.g. a
// directory signup with an email that is already registered.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}
