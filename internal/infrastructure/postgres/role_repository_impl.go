package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	"github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
)

const roleColumns = `id, name, permissions, is_default, created_at, updated_at`

type RoleRepository struct {
	db *DB
}

func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func scanRole(row pgx.Row) (*entity.Role, error) {
	r := &entity.Role{}
	if err := row.Scan(&r.ID, &r.Name, &r.Permissions, &r.IsDefault, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RoleRepository) GetDefault(ctx context.Context) (*entity.Role, error) {
	role, err := scanRole(r.db.conn(ctx).QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE is_default LIMIT 1`))
	if err != nil {
		return nil, mapError("ROLE_GET_DEFAULT_FAILED", err)
	}
	return role, nil
}

// EnsureDefault relies on the partial unique index on is_default: the insert
// is dropped if either the name or a default already exists, and an existing
// role of that name is promoted only while no default exists.
func (r *RoleRepository) EnsureDefault(ctx context.Context, name string, permissions int) (*entity.Role, error) {
	var role *entity.Role
	err := r.db.WithinTx(ctx, func(ctx context.Context) error {
		conn := r.db.conn(ctx)
		if _, err := conn.Exec(ctx, `
			INSERT INTO roles (name, permissions, is_default) VALUES ($1, $2, TRUE)
			ON CONFLICT DO NOTHING
		`, name, permissions); err != nil {
			return mapError("ROLE_BOOTSTRAP_FAILED", err, "role", name)
		}
		if _, err := conn.Exec(ctx, `
			UPDATE roles SET is_default = TRUE, updated_at = now()
			WHERE name = $1 AND NOT EXISTS (SELECT 1 FROM roles WHERE is_default)
		`, name); err != nil {
			return mapError("ROLE_BOOTSTRAP_FAILED", err, "role", name)
		}
		var err error
		role, err = r.GetDefault(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *RoleRepository) Upsert(ctx context.Context, name string, permissions int) (*entity.Role, error) {
	role, err := scanRole(r.db.conn(ctx).QueryRow(ctx, `
		INSERT INTO roles (name, permissions) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = now()
		RETURNING `+roleColumns, name, permissions))
	if err != nil {
		return nil, mapError("ROLE_UPSERT_FAILED", err, "role", name)
	}
	return role, nil
}

var _ repository.RoleRepository = (*RoleRepository)(nil)
