// Package common defines the error taxonomy shared by the storage, service and
// transport layers. Callers should use errors.Is / errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Input validation.
	ErrInvalidInput = errors.New("invalid input")

	// Uniqueness, as reported to callers of the auth service.
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already taken")

	// Deliberately generic: never says whether the account exists.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Raised by the credential store when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")

	// Storage connectivity and driver failures.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Session lookups.
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// Unique columns reported by ConflictError.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// ConflictError reports which unique column rejected a create.
// It matches ErrConflict with errors.Is.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s: %s already exists", ErrConflict, e.Field)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// Unavailable wraps a low-level storage error so that it matches ErrStorageUnavailable
// while keeping the original cause reachable through errors.Is / errors.As.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
