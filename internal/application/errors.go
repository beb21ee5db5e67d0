package application

import (
	"errors"
	"fmt"
	"strings"

	repo "github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
)

var (
	ErrRateLimited              = errors.New("too many requests")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrEmailNotVerified         = errors.New("please verify your email before logging in")
	ErrInvalidToken             = helpers.ErrInvalidToken
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrSessionInvalid           = errors.New("invalid or expired session")
	ErrUserNotFound             = errors.New("user not found")
	ErrUnavailable              = errors.New("service temporarily unavailable")
	ErrAvatarStorageDisabled    = errors.New("avatar storage is not configured")
)

// ValidationError carries the first rule an input failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports a registrant-supplied value that is already taken.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "already exists"
	}
	return strings.ToUpper(e.Field[:1]) + e.Field[1:] + " already exists"
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// fromStorage maps repository outcomes onto the application taxonomy.
func fromStorage(err error) error {
	if err == nil {
		return nil
	}
	var conflict *repo.ConflictError
	switch {
	case errors.As(err, &conflict):
		return &ConflictError{Field: conflict.Field}
	case errors.Is(err, repo.ErrNotFound):
		return ErrUserNotFound
	default:
		return unavailable(err)
	}
}
