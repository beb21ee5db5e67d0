package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Freshwater0/Celestial-SphereX/internal/application"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// Authenticator resolves session bearers and answers admin checks.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (application.Principal, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// bearerFrom reads the Authorization header first and falls back to the
// session cookie set at login.
func bearerFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if tok, err := c.Cookie(helpers.SessionCookie); err == nil {
		return tok
	}
	return ""
}

// Auth admits requests whose bearer maps to an active session and stores the
// principal under CtxUserIDKey and CtxSessionIDKey.
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := bearerFrom(c)
		if bearer == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		p, err := authn.Authenticate(c.Request.Context(), bearer)
		if err != nil {
			abortAuth(c, err, http.StatusUnauthorized, application.ErrSessionInvalid.Error())
			return
		}
		c.Set(CtxUserIDKey, p.UserID)
		c.Set(CtxSessionIDKey, p.SessionID)
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := authn.IsAdmin(c.Request.Context(), c.GetString(CtxUserIDKey))
		if err != nil {
			abortAuth(c, err, http.StatusForbidden, "admin access required")
			return
		}
		if !ok {
			response.Abort(c, http.StatusForbidden, "admin access required", nil)
			return
		}
		c.Next()
	}
}

// abortAuth answers 503 while the session store is unreachable and status
// otherwise.
func abortAuth(c *gin.Context, err error, status int, message string) {
	if errors.Is(err, application.ErrUnavailable) {
		response.Abort(c, http.StatusServiceUnavailable, application.ErrUnavailable.Error(), nil)
		return
	}
	response.Abort(c, status, message, nil)
}

// PrincipalFrom returns the principal stored by Auth.
func PrincipalFrom(c *gin.Context) application.Principal {
	return application.Principal{
		UserID:    c.GetString(CtxUserIDKey),
		SessionID: c.GetString(CtxSessionIDKey),
	}
}
