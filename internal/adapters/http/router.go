package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/adapters/signal"
	"github.com/mindlink/peerhub/internal/app"
	"github.com/mindlink/peerhub/internal/auth"
	"github.com/mindlink/peerhub/internal/config"
	"github.com/mindlink/peerhub/internal/metrics"
)

// AuthMiddleware resolves the bearer credential once, before any event
// handling; a missing or invalid token refuses the connection attempt.
func AuthMiddleware(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		ident, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("handshake auth failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication failed"})
			return
		}
		c.Set("identity", *ident)
		c.Next()
	}
}

// bearerToken pulls the credential from the Authorization header or, for
// browser WebSocket clients that cannot set headers, the token query param.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

func SetupRouter(ctx context.Context, cfg *config.Config, router *app.Router, resolver *auth.Resolver) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limiter := signal.NewMessageRateLimiter(cfg.MessageRateLimit, cfg.MessageRateInterval)
	ctrl := signal.NewController(router, cfg.ReadLimit, cfg.PingPeriod, limiter)

	api := r.Group("/api")
	api.Use(AuthMiddleware(resolver))

	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"connections": router.Registry().Count(),
			"rooms":       router.Presence().RoomCount(),
		})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
