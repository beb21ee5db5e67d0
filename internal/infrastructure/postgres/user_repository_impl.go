package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	"github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, phone_number, bio, location,
		avatar_url, is_active, email_verified, is_admin, COALESCE(role_id::text, ''), created_at, updated_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.PhoneNumber, &u.Bio, &u.Location, &u.AvatarURL, &u.IsActive, &u.EmailVerified,
		&u.IsAdmin, &u.RoleID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.db.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, phone_number, bio, location,
			is_active, email_verified, is_admin, role_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, '')::uuid)
		RETURNING id, created_at, updated_at
	`, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber, u.Bio, u.Location,
		u.IsActive, u.EmailVerified, u.IsAdmin, u.RoleID)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapError("USER_CREATE_FAILED", err, "username", u.Username)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := scanUser(r.db.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("USER_GET_FAILED", err, "user_id", id)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := scanUser(r.db.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, mapError("USER_GET_FAILED", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`, username).Scan(&exists)
	if err != nil {
		return false, mapError("USER_EXISTS_FAILED", err)
	}
	return exists, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	if err != nil {
		return false, mapError("USER_EXISTS_FAILED", err)
	}
	return exists, nil
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE users SET email_verified = TRUE, is_active = TRUE, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return mapError("USER_VERIFY_FAILED", err, "user_id", id)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return mapError("USER_PASSWORD_UPDATE_FAILED", err, "user_id", id)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, u *entity.User) error {
	err := r.db.conn(ctx).QueryRow(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, phone_number = $4, bio = $5, location = $6, avatar_url = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.FirstName, u.LastName, u.PhoneNumber, u.Bio, u.Location, u.AvatarURL).Scan(&u.UpdatedAt)
	if err != nil {
		return mapError("USER_PROFILE_UPDATE_FAILED", err, "user_id", u.ID)
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
