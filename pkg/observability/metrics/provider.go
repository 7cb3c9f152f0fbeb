package metrics

import (
	"context"
	"fmt"
	"time"

	appconfig "github.com/Sokol111/hrms-commons/pkg/core/config"
	otelinternal "github.com/Sokol111/hrms-commons/pkg/observability/internal"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// requestDurationBuckets covers ingest requests up to the 10s request timeout.
var requestDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

func newProvider(ctx context.Context, endpoint string, interval time.Duration, appCfg appconfig.AppConfig) (*sdkmetric.MeterProvider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("metrics: otel-collector-endpoint is required")
	}

	res, err := otelinternal.NewResource(ctx, appCfg)
	if err != nil {
		return nil, err
	}

	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	return newMeterProvider(res, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))), nil
}

func newMeterProvider(res *resource.Resource, reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "http.server.request.duration"},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: requestDurationBuckets}},
		)),
	)
}
