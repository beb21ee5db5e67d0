package repository

import (
	"context"
	"time"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, r *entity.PasswordReset) error
	// Consume marks the unused, unexpired grant for tokenHash as used and returns
	// its user id in one atomic step. No match returns ErrNotFound.
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)
	// DeleteStale removes grants that expired or were used before cutoff.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}
