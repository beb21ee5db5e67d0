package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	repo "github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
)

// Janitor reclaims expired sessions and spent reset grants. Expiry is already
// enforced on read; this only keeps the tables small.
type Janitor struct {
	Sessions  repo.SessionRepository
	Ledger    *ResetLedger
	Retention time.Duration
	Interval  time.Duration
	Logger    *logrus.Logger
	now       func() time.Time
}

func NewJanitor(sessions repo.SessionRepository, ledger *ResetLedger, retention, interval time.Duration, logger *logrus.Logger) *Janitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Janitor{Sessions: sessions, Ledger: ledger, Retention: retention, Interval: interval, Logger: logger, now: time.Now}
}

// Run sweeps every Interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	if j.Interval <= 0 {
		return
	}
	t := time.NewTicker(j.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			j.Sweep(ctx)
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) (sessions, grants int64) {
	var err error
	if sessions, err = j.Sessions.DeactivateExpired(ctx, j.now()); err != nil {
		j.Logger.WithError(err).Warn("expire sessions failed")
	}
	if grants, err = j.Ledger.Purge(ctx, j.Retention); err != nil {
		j.Logger.WithError(err).Warn("purge reset grants failed")
	}
	if sessions > 0 || grants > 0 {
		j.Logger.WithFields(logrus.Fields{"sessions": sessions, "grants": grants}).Info("janitor sweep")
	}
	return sessions, grants
}
