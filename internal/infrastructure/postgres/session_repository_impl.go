package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	"github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
)

const sessionColumns = `id, user_id, ip_address, user_agent, created_at, expires_at, is_active`

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row) (*entity.Session, error) {
	s := &entity.Session{}
	if err := row.Scan(&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt, &s.IsActive); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) Create(ctx context.Context, s *entity.Session) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, ip_address, user_agent, created_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
	`, s.ID, s.UserID, s.IPAddress, s.UserAgent, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return mapError("SESSION_CREATE_FAILED", err, "user_id", s.UserID)
	}
	s.IsActive = true
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	s, err := scanSession(r.db.conn(ctx).QueryRow(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("SESSION_GET_FAILED", err, "session_id", id)
	}
	return s, nil
}

func (r *SessionRepository) FindActiveByUser(ctx context.Context, userID string, now time.Time) (*entity.Session, error) {
	s, err := scanSession(r.db.conn(ctx).QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM user_sessions
		WHERE user_id = $1 AND is_active AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, now))
	if err != nil {
		return nil, mapError("SESSION_FIND_FAILED", err, "user_id", userID)
	}
	return s, nil
}

// Deactivate never sets is_active back to true, so repeated calls are no-ops.
func (r *SessionRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.conn(ctx).Exec(ctx, `UPDATE user_sessions SET is_active = FALSE WHERE id = $1 AND is_active`, id); err != nil {
		return mapError("SESSION_DEACTIVATE_FAILED", err, "session_id", id)
	}
	return nil
}

func (r *SessionRepository) DeactivateAllForUser(ctx context.Context, userID, exceptID string) ([]string, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		UPDATE user_sessions SET is_active = FALSE
		WHERE user_id = $1 AND is_active AND id::text <> $2
		RETURNING id
	`, userID, exceptID)
	if err != nil {
		return nil, mapError("SESSION_DEACTIVATE_FAILED", err, "user_id", userID)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError("SESSION_DEACTIVATE_FAILED", err, "user_id", userID)
	}
	return ids, nil
}

func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, `UPDATE user_sessions SET is_active = FALSE WHERE is_active AND expires_at <= $1`, now)
	if err != nil {
		return 0, mapError("SESSION_EXPIRE_FAILED", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.SessionRepository = (*SessionRepository)(nil)
