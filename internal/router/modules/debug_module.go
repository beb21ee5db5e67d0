package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Freshwater0/Celestial-SphereX/internal/interface/middleware"
	"github.com/Freshwater0/Celestial-SphereX/pkg/ratelimit"
)

type DebugModule struct {
	Counter ratelimit.Counter
}

func NewDebugModule(counter ratelimit.Counter) *DebugModule { return &DebugModule{Counter: counter} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// expvar and Prometheus, rate-limited per IP; private scrapers bypass
	rl := middleware.RateLimit(m.Counter, ratelimit.Rule{Max: 120, Window: time.Minute}, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	rg.GET("/metrics", rl, gin.WrapH(promhttp.Handler()))
}
