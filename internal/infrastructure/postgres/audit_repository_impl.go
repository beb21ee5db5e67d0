package postgres

import (
	"context"
	"encoding/json"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	"github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
)

type AuditRepository struct {
	db *DB
}

func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, e *entity.AuditEntry) error {
	md := e.Metadata
	if md == nil {
		md = map[string]any{}
	}
	b, err := json.Marshal(md)
	if err != nil {
		return err
	}
	_, err = r.db.conn(ctx).Exec(ctx, `
		INSERT INTO auth_audit_logs (user_id, email, action, ip, user_agent, metadata)
		VALUES (NULLIF($1, '')::uuid, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), $6)
	`, e.UserID, e.Email, e.Action, e.IP, e.UserAgent, b)
	if err != nil {
		return mapError("AUDIT_INSERT_FAILED", err, "action", e.Action)
	}
	return nil
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
