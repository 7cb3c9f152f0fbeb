package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/Sokol111/hrms-commons/pkg/http/problems"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// recoveryMiddleware converts handler panics into 500 problems.
func recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if r == http.ErrAbortHandler {
					panic(r)
				}
				fields := append(requestFields(c),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				logger.Get(c).Error("Panic recovered", fields...)

				c.Abort()
				problems.Write(c, problems.New(http.StatusInternalServerError, "internal error"))
			}
		}()
		c.Next()
	}
}

// RecoveryModule provides recovery middleware.
func RecoveryModule(priority int) fx.Option {
	return provide(func() Middleware {
		return Middleware{Priority: priority, Handler: recoveryMiddleware()}
	})
}
