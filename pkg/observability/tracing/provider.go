package tracing

import (
	"context"

	appconfig "github.com/Sokol111/hrms-commons/pkg/core/config"
	otelconfig "github.com/Sokol111/hrms-commons/pkg/observability/config"
	otelinternal "github.com/Sokol111/hrms-commons/pkg/observability/internal"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// deadLetterSpanName is the span opened around a DLQ redirect.
const deadLetterSpanName = "kafka.send_to_dlq"

func newTracerProvider(ctx context.Context, log *zap.Logger, cfg otelconfig.Config, appCfg appconfig.AppConfig) (*sdktrace.TracerProvider, error) {
	res, err := otelinternal.NewResource(ctx, appCfg)
	if err != nil {
		return nil, err
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(newSampler(cfg.Tracing.SampleRatio)),
		sdktrace.WithResource(res),
	}

	if cfg.OtelCollectorEndpoint == "" {
		log.Info("tracing: no collector endpoint, spans stay in process")
		return sdktrace.NewTracerProvider(opts...), nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelCollectorEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(append(opts, sdktrace.WithBatcher(exp))...), nil
}

// newSampler samples by trace id ratio, following the parent's decision,
// but always keeps dead letter redirects.
func newSampler(ratio float64) sdktrace.Sampler {
	return deadLetterSampler{base: sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))}
}

type deadLetterSampler struct {
	base sdktrace.Sampler
}

func (s deadLetterSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	res := s.base.ShouldSample(p)
	if p.Name == deadLetterSpanName && res.Decision != sdktrace.RecordAndSample {
		res.Decision = sdktrace.RecordAndSample
	}
	return res
}

func (s deadLetterSampler) Description() string {
	return "DeadLetter{" + s.base.Description() + "}"
}
