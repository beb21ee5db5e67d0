package repository

import (
	"context"
	"time"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
)

type SessionRepository interface {
	Create(ctx context.Context, s *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	// FindActiveByUser returns the newest active, unexpired session.
	FindActiveByUser(ctx context.Context, userID string, now time.Time) (*entity.Session, error)
	// Deactivate is idempotent.
	Deactivate(ctx context.Context, id string) error
	// DeactivateAllForUser ends every active session of userID except exceptID
	// and returns the ids it ended.
	DeactivateAllForUser(ctx context.Context, userID, exceptID string) ([]string, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
