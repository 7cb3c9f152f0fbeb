package middleware

import (
	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// errorLoggerMiddleware logs errors handlers attached to the gin context.
func errorLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		log := logger.Get(c)
		for _, e := range c.Errors {
			fields := append(requestFields(c),
				zap.Int("status", c.Writer.Status()),
				zap.String("error", e.Error()),
			)
			log.Warn("Request error", fields...)
		}
	}
}

// ErrorLoggerModule provides error logger middleware.
func ErrorLoggerModule(priority int) fx.Option {
	return provide(func() Middleware {
		return Middleware{Priority: priority, Handler: errorLoggerMiddleware()}
	})
}
