package application

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/config"
	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	"github.com/Freshwater0/Celestial-SphereX/pkg/mailer"
	mailtpl "github.com/Freshwater0/Celestial-SphereX/pkg/mailer/templates"
)

const defaultSendTimeout = 15 * time.Second

// Notifier renders and sends account emails in the background. A send never
// blocks or fails the flow that triggered it.
type Notifier struct {
	sender  mailer.Sender
	cfg     *config.Config
	geo     mailtpl.GeoResolver
	logger  *logrus.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotifier(sender mailer.Sender, cfg *config.Config, geo mailtpl.GeoResolver, logger *logrus.Logger) *Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Notifier{sender: sender, cfg: cfg, geo: geo, logger: logger, timeout: defaultSendTimeout}
}

// LinkWithToken appends token as the "token" query parameter of base.
func LinkWithToken(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (n *Notifier) SendVerification(ctx context.Context, u *entity.User, token string, expiresAt time.Time) {
	name, email := u.FullName(), u.Email
	n.dispatch(ctx, mailtpl.VerifyEmail, u, func(_ context.Context, cfg *config.Config) mailtpl.EmailData {
		return mailtpl.NewVerifyEmailData(cfg, name, email, LinkWithToken(cfg.VerifyEmailURL, token),
			mailtpl.WithExpiresAt(expiresAt))
	})
}

func (n *Notifier) SendPasswordReset(ctx context.Context, u *entity.User, token string, expiresAt time.Time, client ClientInfo) {
	name, email := u.FullName(), u.Email
	n.dispatch(ctx, mailtpl.ForgotPassword, u, func(c context.Context, cfg *config.Config) mailtpl.EmailData {
		return mailtpl.NewForgotPasswordData(cfg, name, email, LinkWithToken(cfg.ResetPasswordURL, token),
			mailtpl.WithExpiresAt(expiresAt),
			mailtpl.WithIP(client.IP),
			mailtpl.WithUserAgent(client.UserAgent),
			mailtpl.WithGeoFromIP(c, n.geo, client.IP))
	})
}

func (n *Notifier) SendPasswordChanged(ctx context.Context, u *entity.User, at time.Time, client ClientInfo) {
	name, email := u.FullName(), u.Email
	n.dispatch(ctx, mailtpl.PasswordChanged, u, func(c context.Context, cfg *config.Config) mailtpl.EmailData {
		return mailtpl.NewPasswordChangedData(cfg, name, email,
			mailtpl.WithTime(at),
			mailtpl.WithIP(client.IP),
			mailtpl.WithUserAgent(client.UserAgent),
			mailtpl.WithGeoFromIP(c, n.geo, client.IP))
	})
}

func (n *Notifier) SendProfileUpdated(ctx context.Context, u *entity.User, changes map[string]string, at time.Time) {
	name, email := u.FullName(), u.Email
	n.dispatch(ctx, mailtpl.ProfileUpdated, u, func(_ context.Context, cfg *config.Config) mailtpl.EmailData {
		return mailtpl.NewProfileUpdatedData(cfg, name, email, changes, mailtpl.WithTime(at))
	})
}

// Wait blocks until every dispatched email finished.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) dispatch(ctx context.Context, kind string, u *entity.User, build func(context.Context, *config.Config) mailtpl.EmailData) {
	if n == nil || n.sender == nil || n.cfg == nil || !n.cfg.MailSendEnabled {
		emailDispatchTotal.WithLabelValues(kind, "skipped").Inc()
		return
	}
	recipient := u.Email
	log := n.logger.WithFields(logrus.Fields{"kind": kind, "user_id": u.ID})

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		subject, text, html, err := mailtpl.Render(kind, build(c, n.cfg))
		if err == nil {
			err = n.sender.Send(c, subject, []string{recipient}, text, html)
		}
		if err != nil {
			emailDispatchTotal.WithLabelValues(kind, "failed").Inc()
			log.WithError(err).Error("email dispatch failed")
			return
		}
		emailDispatchTotal.WithLabelValues(kind, "sent").Inc()
		log.Debug("email dispatched")
	}()
}
