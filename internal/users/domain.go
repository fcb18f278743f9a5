// Package users implements the user directory: CRUD over user records plus
// the CSV export pipeline.
package users

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested record does not exist, or an
	// export matched no records.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail indicates an email collision on create or update.
	ErrDuplicateEmail = errors.New("user with this email already exists")
	// ErrInvalidInput indicates missing or malformed required fields.
	ErrInvalidInput = errors.New("invalid user data")
)

// User is a single directory entry. The ID is assigned by the store and
// immutable; timestamps are store-managed and never taken from client input.
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	City      *string   `json:"city,omitempty"`
	State     *string   `json:"state,omitempty"`
	ZipCode   *string   `json:"zip_code,omitempty"`
	Country   *string   `json:"country,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
