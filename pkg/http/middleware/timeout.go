package middleware

import (
	"context"
	"errors"

	"github.com/Sokol111/hrms-commons/pkg/http/problems"
	"github.com/Sokol111/hrms-commons/pkg/http/server"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewTimeoutMiddleware puts a deadline on the request context. A handler that
// returns after the deadline without writing a response gets a 504 problem.
func NewTimeoutMiddleware(serverConfig server.Config, log *zap.Logger, priority int) Middleware {
	config := serverConfig.Timeout
	if config.Enabled == nil || !*config.Enabled || config.RequestTimeout <= 0 {
		return Middleware{Priority: priority}
	}

	log.Info("HTTP timeout middleware initialized",
		zap.Duration("request-timeout", config.RequestTimeout),
	)

	return Middleware{
		Priority: priority,
		Handler: func(c *gin.Context) {
			if isHealthPath(c.Request.URL.Path) {
				c.Next()
				return
			}

			ctx, cancel := context.WithTimeout(c.Request.Context(), config.RequestTimeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)

			c.Next()

			if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Writer.Written() {
				return
			}
			log.Warn("HTTP request timeout", append(requestFields(c),
				zap.Duration("timeout", config.RequestTimeout))...)

			c.Abort()
			problems.Write(c, problems.GatewayTimeout("request took too long to process"))
		},
	}
}

// TimeoutModule adds timeout middleware to the application.
func TimeoutModule(priority int) fx.Option {
	return fx.Provide(
		fx.Annotate(
			func(serverConfig server.Config, log *zap.Logger) Middleware {
				return NewTimeoutMiddleware(serverConfig, log, priority)
			},
			fx.ResultTags(`group:"gin_mw"`),
		),
	)
}
