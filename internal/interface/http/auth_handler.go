package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/internal/application"
	"github.com/Freshwater0/Celestial-SphereX/internal/interface/middleware"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/response"
)

// AuthFlows is the credential surface served over HTTP.
type AuthFlows interface {
	Register(ctx context.Context, in application.RegisterInput, client application.ClientInfo) (application.UserSummary, error)
	Login(ctx context.Context, email, password string, client application.ClientInfo) (*application.LoginResult, error)
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string, client application.ClientInfo) error
	ResetPassword(ctx context.Context, token, newPassword string, client application.ClientInfo) error
	ChangePassword(ctx context.Context, p application.Principal, current, newPassword string, client application.ClientInfo) error
	Logout(ctx context.Context, p application.Principal, client application.ClientInfo) error
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type AuthHandler struct {
	Svc     AuthFlows
	DB      Pinger
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc AuthFlows, db Pinger, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, DB: db, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

func clientInfo(c *gin.Context) application.ClientInfo {
	return application.ClientInfo{IP: middleware.ClientIP(c), UserAgent: c.GetHeader("User-Agent")}
}

func badPayload(c *gin.Context) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", nil)
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req application.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), req, clientInfo(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, u, "registration successful, check your email to verify your account", nil)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/auth/login
// The bearer is returned in the body and also set as an HttpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetSession(c, res.Token, res.ExpiresAt)
	response.Success(c, http.StatusOK, res, "login successful", nil)
}

type tokenRequest struct {
	Token string `json:"token"`
}

// VerifyEmail GET /api/auth/verify-email?token=... or POST {token}
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if c.Request.Method == http.MethodPost {
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badPayload(c)
			return
		}
		token = req.Token
	}
	if err := h.Svc.VerifyEmail(c.Request.Context(), token); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verified": true}, "email verified", nil)
}

// ForgotPassword POST /api/auth/forgot-password {email}
// The reply is identical whether or not the address is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email, clientInfo(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "if that email is registered, a reset link has been sent", nil)
}

// ResetPassword POST /api/auth/reset-password {token, new_password}
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword, clientInfo(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
}

// ChangePassword POST /api/auth/change-password (auth required)
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	err := h.Svc.ChangePassword(c.Request.Context(), middleware.PrincipalFrom(c), req.CurrentPassword, req.NewPassword, clientInfo(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"changed": true}, "password changed", nil)
}

// Logout POST /api/auth/logout (auth required)
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.PrincipalFrom(c), clientInfo(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// Health GET /api/health
func (h *AuthHandler) Health(c *gin.Context) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			if h.Logger != nil {
				h.Logger.WithError(err).Warn("health check: database unreachable")
			}
			response.Error[any](c, http.StatusServiceUnavailable, "database unreachable", nil)
			return
		}
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "healthy", nil)
}
