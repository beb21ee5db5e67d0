package templates

import (
	"context"
	"strings"
	"time"

	"github.com/Freshwater0/Celestial-SphereX/config"
)

// Option adjusts the data of a single notification.
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }

// WithTime stamps the event time in UTC. The worker may later localize it.
func WithTime(t time.Time) Option {
	return func(d *EmailData) { d.TimeAt, d.Time = stamp(t) }
}

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) { d.ExpiresAt, d.ExpiresAtText = stamp(t) }
}

// WithGeoFromIP fills Location when r knows where ip is. Lookup failures
// leave the field empty and the templates omit it.
func WithGeoFromIP(ctx context.Context, r GeoResolver, ip string) Option {
	return func(d *EmailData) {
		if r == nil || strings.TrimSpace(ip) == "" {
			return
		}
		g, err := r.Lookup(ctx, ip)
		if err != nil {
			return
		}
		if loc := FormatGeo(g); loc != "" {
			d.Location = loc
		}
	}
}

func stamp(t time.Time) (time.Time, string) {
	utc := t.UTC()
	return utc, utc.Format(TimeLayout)
}

// newData fills the branding fields every template needs.
func newData(cfg *config.Config, typ, name, email string) EmailData {
	return EmailData{
		Type:           typ,
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		AppName:        cfg.AppName,
		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
		PrivacyURL:     cfg.PrivacyURL,
		UnsubscribeURL: cfg.UnsubscribeURL,
		ResetURL:       cfg.ResetPasswordURL,
		VerifyURL:      cfg.VerifyEmailURL,
	}
}

func build(d EmailData, opts []Option) EmailData {
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyEmailData(cfg *config.Config, name, email, verifyURL string, opts ...Option) EmailData {
	d := newData(cfg, VerifyEmail, name, email)
	d.VerifyURL = verifyURL
	return build(d, opts)
}

func NewForgotPasswordData(cfg *config.Config, name, email, resetURL string, opts ...Option) EmailData {
	d := newData(cfg, ForgotPassword, name, email)
	d.ResetURL = resetURL
	return build(d, opts)
}

func NewPasswordChangedData(cfg *config.Config, name, email string, opts ...Option) EmailData {
	return build(newData(cfg, PasswordChanged, name, email), opts)
}

// NewProfileUpdatedData lists changed fields as field -> new value.
func NewProfileUpdatedData(cfg *config.Config, name, email string, changes map[string]string, opts ...Option) EmailData {
	d := newData(cfg, ProfileUpdated, name, email)
	d.Changes = changes
	return build(d, opts)
}
