package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
)

// unique index name -> field reported to the caller
var constraintFields = map[string]string{
	"users_username_lower_key":       "username",
	"users_email_lower_key":          "email",
	"roles_name_key":                 "role",
	"roles_single_default_key":       "default_role",
	"password_resets_token_hash_key": "token",
	"user_sessions_pkey":             "session",
}

// mapError turns driver errors into repository outcomes: ErrNotFound,
// *ConflictError, or an oops error wrapping ErrUnavailable.
func mapError(code string, err error, kv ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		field, ok := constraintFields[pgErr.ConstraintName]
		if !ok {
			field = pgErr.ConstraintName
		}
		return &repository.ConflictError{Field: field}
	}
	return oops.Code(code).With(kv...).Wrap(fmt.Errorf("%w: %w", repository.ErrUnavailable, err))
}
