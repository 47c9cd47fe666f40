// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a row in the listener directory.
//
// Directory users are created through the API and never mutated afterwards —
// there is no update endpoint. Email carries a UNIQUE constraint in both
// storage backends; the constraint, not application code, is what rejects a
// duplicate registration.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
