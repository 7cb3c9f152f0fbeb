// Package observability wires OpenTelemetry tracing and metrics into a
// service.
//
//	observability.NewObservabilityModule()
//
//	// tests
//	observability.NewObservabilityModule(
//	    observability.WithoutTracing(),
//	    observability.WithoutMetrics(),
//	)
package observability

import (
	appconfig "github.com/Sokol111/hrms-commons/pkg/core/config"
	"github.com/Sokol111/hrms-commons/pkg/http/middleware"
	"github.com/Sokol111/hrms-commons/pkg/observability/config"
	otelinternal "github.com/Sokol111/hrms-commons/pkg/observability/internal"
	"github.com/Sokol111/hrms-commons/pkg/observability/metrics"
	"github.com/Sokol111/hrms-commons/pkg/observability/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// HTTPMiddlewarePriority makes the request span the outermost layer.
const HTTPMiddlewarePriority = 0

type observabilityOptions struct {
	config         *config.Config
	disableTracing bool
	disableMetrics bool
}

// Option configures the observability module.
type Option func(*observabilityOptions)

// WithConfig provides a static observability Config (useful for tests).
func WithConfig(cfg config.Config) Option {
	return func(opts *observabilityOptions) {
		opts.config = &cfg
	}
}

// WithoutTracing disables tracing regardless of configuration.
func WithoutTracing() Option {
	return func(opts *observabilityOptions) {
		opts.disableTracing = true
	}
}

// WithoutMetrics disables metrics regardless of configuration.
func WithoutMetrics() Option {
	return func(opts *observabilityOptions) {
		opts.disableMetrics = true
	}
}

// NewObservabilityModule provides tracing, metrics and the otelgin server
// middleware that starts a span and records request metrics for every
// non-health request.
func NewObservabilityModule(opts ...Option) fx.Option {
	o := &observabilityOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Options(
		configModule(o),
		tracing.NewTracingModule(),
		metrics.NewMetricsModule(),
		fx.Provide(fx.Annotate(httpMiddleware, fx.ResultTags(`group:"gin_mw"`))),
	)
}

func configModule(o *observabilityOptions) fx.Option {
	var configOpts []config.Option
	if o.config != nil {
		configOpts = append(configOpts, config.WithConfig(*o.config))
	}
	if o.disableTracing {
		configOpts = append(configOpts, config.WithDisableTracing())
	}
	if o.disableMetrics {
		configOpts = append(configOpts, config.WithDisableMetrics())
	}
	return config.NewObservabilityConfigModule(configOpts...)
}

func httpMiddleware(cfg config.Config, appCfg appconfig.AppConfig, tp trace.TracerProvider, mp metric.MeterProvider) middleware.Middleware {
	if !cfg.Tracing.Enabled && !cfg.Metrics.Enabled {
		return middleware.Middleware{Priority: HTTPMiddlewarePriority}
	}
	return middleware.Middleware{
		Priority: HTTPMiddlewarePriority,
		Handler: otelgin.Middleware(appCfg.ServiceName,
			otelgin.WithTracerProvider(tp),
			otelgin.WithMeterProvider(mp),
			otelgin.WithFilter(otelinternal.FilterRequest),
		),
	}
}
