package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable wraps any storage failure the caller may retry.
	ErrUnavailable = errors.New("storage unavailable")
)

// ConflictError reports a write rejected by a uniqueness constraint.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " already exists"
}
