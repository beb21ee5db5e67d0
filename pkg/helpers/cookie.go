package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie carrying the session bearer for browser clients.
const SessionCookie = "access_token"

type Manager struct {
	Domain string
	Secure bool
	now    func() time.Time
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure, now: time.Now}
}

// SetSession stores the bearer as an HttpOnly cookie that expires with the session.
func (m *Manager) SetSession(c *gin.Context, bearer string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, bearer, m.maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", m.Domain, m.Secure, true)
}

func (m *Manager) maxAgeFrom(exp time.Time) int {
	sec := int(exp.Sub(m.now()).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
