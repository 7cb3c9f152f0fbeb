package middleware

import (
	"context"

	"github.com/Sokol111/hrms-commons/pkg/http/problems"
	"github.com/Sokol111/hrms-commons/pkg/http/server"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// NewBulkheadMiddleware limits concurrent requests. A request that cannot get
// a slot within the configured wait is rejected with 503.
func NewBulkheadMiddleware(serverConfig server.Config, log *zap.Logger, priority int) Middleware {
	config := serverConfig.Bulkhead
	if config.Enabled == nil || !*config.Enabled {
		return Middleware{Priority: priority}
	}

	sem := semaphore.NewWeighted(int64(config.MaxConcurrent))

	log.Info("HTTP bulkhead initialized",
		zap.Int("max-concurrent", config.MaxConcurrent),
		zap.Duration("timeout", config.Timeout),
	)

	return Middleware{
		Priority: priority,
		Handler: func(c *gin.Context) {
			if isHealthPath(c.Request.URL.Path) {
				c.Next()
				return
			}

			ctx, cancel := context.WithTimeout(c.Request.Context(), config.Timeout)
			err := sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				log.Warn("HTTP bulkhead full, rejecting request",
					zap.Int("max-concurrent", config.MaxConcurrent),
					zap.Error(err),
				)
				c.Abort()
				problems.Write(c, problems.ServiceUnavailable("too many concurrent requests, please try again later"))
				return
			}
			defer sem.Release(1)

			c.Next()
		},
	}
}

// BulkheadModule adds HTTP bulkhead middleware to the application.
func BulkheadModule(priority int) fx.Option {
	return fx.Provide(
		fx.Annotate(
			func(serverConfig server.Config, log *zap.Logger) Middleware {
				return NewBulkheadMiddleware(serverConfig, log, priority)
			},
			fx.ResultTags(`group:"gin_mw"`),
		),
	)
}
