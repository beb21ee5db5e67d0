package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/Freshwater0/Celestial-SphereX/internal/interface/http"
	"github.com/Freshwater0/Celestial-SphereX/internal/interface/middleware"
	"github.com/Freshwater0/Celestial-SphereX/pkg/ratelimit"
)

type EmailModule struct {
	Handler *handlers.EmailHandler
	Authn   middleware.Authenticator
	Counter ratelimit.Counter
}

func NewEmailModule(h *handlers.EmailHandler, authn middleware.Authenticator, counter ratelimit.Counter) *EmailModule {
	return &EmailModule{Handler: h, Authn: authn, Counter: counter}
}

func (m *EmailModule) Register(rg *gin.RouterGroup) {
	// Admin-only email endpoints
	admin := rg.Group("/")
	admin.Use(
		middleware.Auth(m.Authn),
		middleware.AdminOnly(m.Authn),
		middleware.RateLimit(m.Counter, ratelimit.Rule{Max: 60, Window: time.Minute}, middleware.KeyByUserID(), nil),
	)
	{
		admin.POST("/email/send", m.Handler.Send)
	}
}
