package middleware

import (
	"net/http"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// loggerMiddleware puts a request scoped logger into the request context and
// logs every request except health checks.
func loggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := log.With(zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))
		c.Request = c.Request.WithContext(logger.With(c.Request.Context(), reqLog))

		start := time.Now()
		c.Next()

		if isHealthPath(c.Request.URL.Path) {
			return
		}
		status := c.Writer.Status()
		fields := append(requestFields(c),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
			return
		}
		log.Info("request handled", fields...)
	}
}

// LoggerModule provides logger middleware.
func LoggerModule(priority int) fx.Option {
	return fx.Provide(
		fx.Annotate(
			func(log *zap.Logger) Middleware {
				return Middleware{Priority: priority, Handler: loggerMiddleware(log)}
			},
			fx.ResultTags(`group:"gin_mw"`),
		),
	)
}
