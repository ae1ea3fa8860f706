package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"buildmycv-backend/internal/flows"
	"buildmycv-backend/internal/shared/config"
	"buildmycv-backend/internal/shared/metrics"
	"buildmycv-backend/internal/shared/server/middleware"
	"buildmycv-backend/internal/shared/server/respond"
	"buildmycv-backend/internal/shared/telemetry"
)

const flowRateLimitGroup = "FLOW"

// RouterDeps are the handlers and collaborators the router mounts.
type RouterDeps struct {
	Config      config.Config
	FlowHandler *flows.Handler
	Metrics     *metrics.Registry
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	// ClientIP keys the rate limiter, so forwarded headers count only from known proxies
	if err := r.SetTrustedProxies(deps.Config.TrustedProxies); err != nil {
		telemetry.Warn("router.trusted_proxies_invalid", map[string]any{"error": err.Error()})
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(
		middleware.RequestID(),
		middleware.Identity(),
		middleware.Logging(),
		middleware.Recovery(),
	)
	if deps.Metrics != nil {
		// ahead of CORS so rejected preflights are counted
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.CORS(deps.Config.CORSAllowOrigin))
	if deps.Metrics != nil {
		r.GET("/metrics", deps.Metrics.Handler())
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.FlowHandler != nil {
		// every flow POST costs a model call; reads are free
		api.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				flowRateLimitGroup: {Rate: deps.Config.RateLimitRPS, Burst: deps.Config.RateLimitBurst},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost {
					return flowRateLimitGroup
				}
				return ""
			},
			Limiter: deps.RateLimiter,
		}))
		deps.FlowHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
