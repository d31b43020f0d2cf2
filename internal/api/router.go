package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/auth"
	"machine-ledger-backend/internal/ledger"
	"machine-ledger-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. A nil Authenticator
// runs every request as the default actor.
func NewRouter(cfg *config.Config, l *ledger.Ledger, a *auth.Authenticator) *gin.Engine {
	RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(), cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	responses := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)
	handler := NewHandler(l, a, cfg.Auth.CookieName, responses)

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	rateLimiter := mw.RateLimiter(limiter, cfg.Server.RequestIPHeader)

	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/login", handler.Login)

		secured := api.Group("")
		secured.Use(auth.Middleware(a, cfg.Auth.CookieName))
		secured.GET("/machines", handler.GetMachines)
		secured.GET("/history", handler.GetHistory)
		secured.GET("/dashboard", responses.Handler(), handler.GetDashboard)
		secured.POST("/movements/check-out-in", handler.CheckOutIn)
		secured.POST("/status-adjust", handler.StatusAdjust)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", mw.RequestIDHeader)
	c.ExposeHeaders = []string{mw.RequestIDHeader, mw.CacheHeader}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
