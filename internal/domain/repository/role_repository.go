package repository

import (
	"context"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
)

type RoleRepository interface {
	GetDefault(ctx context.Context) (*entity.Role, error)
	// EnsureDefault creates the named default role unless a default already exists,
	// and returns the default. Safe to call concurrently and repeatedly.
	EnsureDefault(ctx context.Context, name string, permissions int) (*entity.Role, error)
	// Upsert creates or updates a non-default role by name.
	Upsert(ctx context.Context, name string, permissions int) (*entity.Role, error)
}
