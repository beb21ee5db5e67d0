package repository

import (
	"context"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
)

type AuditRepository interface {
	Insert(ctx context.Context, e *entity.AuditEntry) error
}

// Transactor runs fn inside one storage transaction carried by ctx.
// Returning an error from fn rolls back every write made through ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
