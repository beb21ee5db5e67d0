package postgres

import (
	"context"
	"time"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	"github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
)

type PasswordResetRepository struct {
	db *DB
}

func NewPasswordResetRepository(db *DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) Create(ctx context.Context, pr *entity.PasswordReset) error {
	err := r.db.conn(ctx).QueryRow(ctx, `
		INSERT INTO password_resets (user_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, pr.UserID, pr.TokenHash, pr.CreatedAt, pr.ExpiresAt).Scan(&pr.ID)
	if err != nil {
		return mapError("RESET_CREATE_FAILED", err, "user_id", pr.UserID)
	}
	return nil
}

// Consume is a single compare-and-set on the used flag; of two concurrent
// callers only one gets the row back.
func (r *PasswordResetRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var userID string
	err := r.db.conn(ctx).QueryRow(ctx, `
		UPDATE password_resets SET used = TRUE, used_at = $2
		WHERE token_hash = $1 AND NOT used AND expires_at > $2
		RETURNING user_id
	`, tokenHash, now).Scan(&userID)
	if err != nil {
		return "", mapError("RESET_CONSUME_FAILED", err)
	}
	return userID, nil
}

func (r *PasswordResetRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM password_resets WHERE expires_at < $1 OR (used AND used_at < $1)`, cutoff)
	if err != nil {
		return 0, mapError("RESET_PURGE_FAILED", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.PasswordResetRepository = (*PasswordResetRepository)(nil)
