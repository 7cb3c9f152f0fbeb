package middleware

import (
	"net/http"

	"github.com/Sokol111/hrms-commons/pkg/http/problems"
	"github.com/Sokol111/hrms-commons/pkg/http/server"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

// NewRateLimitMiddleware rejects requests above the configured rate with 429.
func NewRateLimitMiddleware(serverConfig server.Config, priority int) Middleware {
	config := serverConfig.RateLimit
	if config.Enabled == nil || !*config.Enabled {
		return Middleware{Priority: priority}
	}

	limiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)

	return Middleware{
		Priority: priority,
		Handler: func(c *gin.Context) {
			if isHealthPath(c.Request.URL.Path) {
				c.Next()
				return
			}

			if !limiter.Allow() {
				c.Abort()
				problems.Write(c, problems.New(http.StatusTooManyRequests, "rate limit exceeded, please try again later"))
				return
			}

			c.Next()
		},
	}
}

// RateLimitModule adds rate limiting middleware to the application.
func RateLimitModule(priority int) fx.Option {
	return fx.Provide(
		fx.Annotate(
			func(serverConfig server.Config) Middleware {
				return NewRateLimitMiddleware(serverConfig, priority)
			},
			fx.ResultTags(`group:"gin_mw"`),
		),
	)
}
