package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/Freshwater0/Celestial-SphereX/internal/interface/http"
	"github.com/Freshwater0/Celestial-SphereX/internal/interface/middleware"
	"github.com/Freshwater0/Celestial-SphereX/pkg/ratelimit"
)

// AuthModule exposes the credential flows under /auth.
// Register, login, forgot and reset are throttled per action inside the
// service, so only verify-email and the session routes get HTTP limiters here.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Authn   middleware.Authenticator
	Counter ratelimit.Counter
}

func NewAuthModule(h *handlers.AuthHandler, authn middleware.Authenticator, counter ratelimit.Counter) *AuthModule {
	return &AuthModule{Handler: h, Authn: authn, Counter: counter}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Handler.Health)

	a := rg.Group("/auth")
	a.POST("/register", m.Handler.Register)
	a.POST("/login", m.Handler.Login)
	a.POST("/forgot-password", m.Handler.ForgotPassword)
	a.POST("/reset-password", m.Handler.ResetPassword)

	verifyLimiter := middleware.RateLimit(m.Counter, ratelimit.Rule{Max: 30, Window: time.Minute}, middleware.KeyByIPAndPath(), nil)
	a.GET("/verify-email", verifyLimiter, m.Handler.VerifyEmail)
	a.POST("/verify-email", verifyLimiter, m.Handler.VerifyEmail)

	protected := a.Group("/")
	protected.Use(
		middleware.Auth(m.Authn),
		middleware.RateLimit(m.Counter, ratelimit.Rule{Max: 60, Window: time.Minute}, middleware.KeyByUserID(), nil),
	)
	{
		protected.POST("/change-password", m.Handler.ChangePassword)
		protected.POST("/logout", m.Handler.Logout)
	}
}
