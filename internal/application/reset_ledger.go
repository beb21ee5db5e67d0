package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	repo "github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
)

// HashToken is the ledger's lookup key for an issued token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ResetLedger records single-use reset grants. A grant is spent by Consume,
// which the storage layer performs as one compare-and-set.
type ResetLedger struct {
	repo repo.PasswordResetRepository
	now  func() time.Time
}

func NewResetLedger(resets repo.PasswordResetRepository) *ResetLedger {
	return &ResetLedger{repo: resets, now: time.Now}
}

func (l *ResetLedger) WithClock(now func() time.Time) *ResetLedger {
	l.now = now
	return l
}

func (l *ResetLedger) Open(ctx context.Context, userID, token string, ttl time.Duration) (*entity.PasswordReset, error) {
	now := l.now().UTC()
	r := &entity.PasswordReset{
		UserID:    userID,
		TokenHash: HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := l.repo.Create(ctx, r); err != nil {
		return nil, unavailable(err)
	}
	return r, nil
}

// Consume spends the grant for token and returns its user id.
// Unknown, used and expired grants all yield ErrInvalidToken.
func (l *ResetLedger) Consume(ctx context.Context, token string) (string, error) {
	userID, err := l.repo.Consume(ctx, HashToken(token), l.now())
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", unavailable(err)
	}
	return userID, nil
}

// Purge deletes grants that expired or were used more than retention ago.
func (l *ResetLedger) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := l.repo.DeleteStale(ctx, l.now().Add(-retention))
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}
