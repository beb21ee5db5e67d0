package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	repo "github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
)

// sessionCacheTTL caps how long a cached session is trusted without the database.
const sessionCacheTTL = 2 * time.Minute

type cachedSession struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(id string) string {
	return "session:" + id
}

// SessionManager owns session records. Whether a user may hold several
// sessions at once is decided by the caller.
type SessionManager struct {
	repo   repo.SessionRepository
	cache  redis.Cmdable
	logger *logrus.Logger
	now    func() time.Time
}

func NewSessionManager(sessions repo.SessionRepository, cache redis.Cmdable, logger *logrus.Logger) *SessionManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SessionManager{repo: sessions, cache: cache, logger: logger, now: time.Now}
}

func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

func (m *SessionManager) Create(ctx context.Context, userID, ip, userAgent string, ttl time.Duration) (*entity.Session, error) {
	now := m.now().UTC()
	s := &entity.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		IsActive:  true,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, unavailable(err)
	}
	if m.cache != nil {
		cttl := min(ttl, sessionCacheTTL)
		if err := helpers.RedisSetJSON(ctx, m.cache, sessionKey(s.ID), cachedSession{UserID: userID, ExpiresAt: s.ExpiresAt}, cttl); err != nil {
			m.logger.WithError(err).WithField("session_id", s.ID).Warn("session cache write failed")
		}
	}
	return s, nil
}

// FindActive returns the user's newest active session, or nil when there is none.
func (m *SessionManager) FindActive(ctx context.Context, userID string) (*entity.Session, error) {
	s, err := m.repo.FindActiveByUser(ctx, userID, m.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return s, nil
}

// Invalidate ends s. Ending an already inactive session is a no-op.
func (m *SessionManager) Invalidate(ctx context.Context, s *entity.Session) error {
	if s == nil {
		return nil
	}
	if err := m.repo.Deactivate(ctx, s.ID); err != nil {
		return unavailable(err)
	}
	s.IsActive = false
	if err := m.evict(ctx, s.ID); err != nil {
		return unavailable(err)
	}
	return nil
}

// InvalidateAll ends every active session of userID except exceptID.
func (m *SessionManager) InvalidateAll(ctx context.Context, userID, exceptID string) (int, error) {
	ids, err := m.repo.DeactivateAllForUser(ctx, userID, exceptID)
	if err != nil {
		return 0, unavailable(err)
	}
	if err := m.evict(ctx, ids...); err != nil {
		return len(ids), unavailable(err)
	}
	return len(ids), nil
}

// Resolve returns the session behind a bearer if it still authenticates userID.
func (m *SessionManager) Resolve(ctx context.Context, sessionID, userID string) (*entity.Session, error) {
	now := m.now()
	if m.cache != nil {
		var c cachedSession
		found, err := helpers.RedisGetJSON(ctx, m.cache, sessionKey(sessionID), &c)
		if err != nil {
			m.logger.WithError(err).Debug("session cache read failed")
		}
		if found && c.UserID == userID && now.Before(c.ExpiresAt) {
			return &entity.Session{ID: sessionID, UserID: c.UserID, ExpiresAt: c.ExpiresAt, IsActive: true}, nil
		}
	}

	s, err := m.repo.GetByID(ctx, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, unavailable(err)
	}
	if s.UserID != userID || !s.Valid(now) {
		return nil, ErrSessionInvalid
	}
	return s, nil
}

// evict drops cached copies of ended sessions. An entry that survives would
// keep the session resolvable, so failures are returned.
func (m *SessionManager) evict(ctx context.Context, ids ...string) error {
	if m.cache == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	if err := helpers.RedisDel(ctx, m.cache, keys...); err != nil {
		m.logger.WithError(err).WithField("sessions", len(ids)).Error("session cache eviction failed")
		return err
	}
	return nil
}
