package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/Freshwater0/Celestial-SphereX/internal/interface/http"
	"github.com/Freshwater0/Celestial-SphereX/internal/interface/middleware"
	"github.com/Freshwater0/Celestial-SphereX/pkg/ratelimit"
)

// UserModule wires profile and search routes. All of them need a session.
// GET/PUT /api/profile, POST /api/profile/avatar, GET /api/users/search
type UserModule struct {
	Handler *handlers.UserHandler
	Authn   middleware.Authenticator
	Counter ratelimit.Counter
}

func NewUserModule(h *handlers.UserHandler, authn middleware.Authenticator, counter ratelimit.Counter) *UserModule {
	return &UserModule{Handler: h, Authn: authn, Counter: counter}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Authn))
	// softer per-IP limiter plus a per-user one
	auth.Use(
		middleware.RateLimit(m.Counter, ratelimit.Rule{Max: 300, Window: time.Minute}, middleware.KeyByIP(), nil),
		middleware.RateLimit(m.Counter, ratelimit.Rule{Max: 120, Window: time.Minute}, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/profile", m.Handler.GetProfile)
		auth.PUT("/profile", m.Handler.UpdateProfile)
		auth.POST("/profile/avatar",
			middleware.RateLimit(m.Counter, ratelimit.Rule{Max: 10, Window: time.Hour}, middleware.KeyByUserID(), nil),
			m.Handler.UploadAvatar)
		auth.GET("/users/search", m.Handler.Search)
	}
}
