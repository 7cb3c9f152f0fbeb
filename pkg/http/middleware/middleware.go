package middleware

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Middleware represents a Gin middleware with priority.
type Middleware struct {
	Priority int
	Handler  gin.HandlerFunc
}

type mwIn struct {
	fx.In
	Middlewares []Middleware `group:"gin_mw"`
}

// NewMiddlewareModule provides the gin engine and the standard middleware.
// Execution order (by priority, lower = earlier):
//
//	10 - Timeout      - request deadline, 504 when it passes
//	20 - RateLimit    - limits requests/second
//	30 - Bulkhead     - limits concurrent requests
//	40 - Recovery     - catches panics
//	50 - Logger       - request scoped logger, access log
//	70 - ErrorLogger  - logs errors from handlers
//	80 - Problem      - converts errors to RFC 7807
//
// Observability adds otelgin at 0 and trace log fields at 55.
func NewMiddlewareModule() fx.Option {
	return fx.Options(
		TimeoutModule(10),
		RateLimitModule(20),
		BulkheadModule(30),
		RecoveryModule(40),
		LoggerModule(50),
		ErrorLoggerModule(70),
		ProblemModule(80),
		fx.Provide(provideGinAndHandler),
	)
}

func provideGinAndHandler(in mwIn) (*gin.Engine, http.Handler) {
	e := NewEngine(in.Middlewares...)
	return e, e
}

// NewEngine returns a gin engine using mws in priority order. Middlewares
// without a handler are skipped.
func NewEngine(mws ...Middleware) *gin.Engine {
	engine := gin.New(func(e *gin.Engine) {
		e.ContextWithFallback = true
		e.HandleMethodNotAllowed = true
	})

	sorted := append([]Middleware(nil), mws...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	for _, m := range sorted {
		if m.Handler == nil {
			continue
		}
		engine.Use(m.Handler)
	}

	return engine
}

func provide(build func() Middleware) fx.Option {
	return fx.Provide(fx.Annotate(build, fx.ResultTags(`group:"gin_mw"`)))
}

func isHealthPath(path string) bool {
	return path == "/health/live" || path == "/health/ready"
}

// requestFields returns common request fields for logging.
func requestFields(c *gin.Context) []zap.Field {
	return []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("query", c.Request.URL.RawQuery),
		zap.String("client_ip", c.ClientIP()),
	}
}
