package tracing

import (
	"context"

	appconfig "github.com/Sokol111/hrms-commons/pkg/core/config"
	"github.com/Sokol111/hrms-commons/pkg/core/health"
	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/Sokol111/hrms-commons/pkg/http/middleware"
	otelconfig "github.com/Sokol111/hrms-commons/pkg/observability/config"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// LoggerMiddlewarePriority runs trace enrichment after the request logger
// has put its logger into the context.
const LoggerMiddlewarePriority = 55

type providerParams struct {
	fx.In
	Lc        fx.Lifecycle
	Log       *zap.Logger
	Cfg       otelconfig.Config
	AppCfg    appconfig.AppConfig
	Readiness health.ComponentManager
}

// NewTracingModule provides the trace.TracerProvider and installs it as the
// global provider, so the kafka tracing helpers and otelgin pick it up.
// A disabled module provides a noop provider.
func NewTracingModule() fx.Option {
	return fx.Options(
		fx.Provide(
			func(p providerParams) (trace.TracerProvider, error) {
				if !p.Cfg.Tracing.Enabled {
					p.Log.Info("tracing: disabled")
					return noop.NewTracerProvider(), nil
				}
				return provideTracerProvider(p)
			},
			fx.Annotate(
				func(cfg otelconfig.Config) middleware.Middleware {
					if !cfg.Tracing.Enabled {
						return middleware.Middleware{Priority: LoggerMiddlewarePriority}
					}
					return middleware.Middleware{Priority: LoggerMiddlewarePriority, Handler: LoggerMiddleware()}
				},
				fx.ResultTags(`group:"gin_mw"`),
			),
		),
		fx.Invoke(func(trace.TracerProvider) {}),
	)
}

func provideTracerProvider(p providerParams) (trace.TracerProvider, error) {
	tp, err := newTracerProvider(context.Background(), p.Log, p.Cfg, p.AppCfg)
	if err != nil {
		return nil, err
	}

	markReady := p.Readiness.AddComponent(otelconfig.TracingComponentName)

	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetTracerProvider(tp)
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))
			p.Log.Info("tracing initialized", zap.String("endpoint", p.Cfg.OtelCollectorEndpoint))
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, otelconfig.DefaultShutdownTimeout)
			defer cancel()
			return tp.Shutdown(shutdownCtx)
		},
	})

	return tp, nil
}

// LoggerMiddleware adds the request's trace and span id to the context logger.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if traceID, spanID := TraceIDs(ctx); traceID != "" {
			ctx, _ = logger.WithFields(ctx, zap.String("trace_id", traceID), zap.String("span_id", spanID))
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
