package repository

import (
	"context"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
)

// UserRepository defines the storage operations on users.
// Username and email comparisons are case-insensitive.
type UserRepository interface {
	// Create inserts u and fills ID and timestamps. Duplicates return *ConflictError.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	MarkEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateProfile(ctx context.Context, u *entity.User) error
}
