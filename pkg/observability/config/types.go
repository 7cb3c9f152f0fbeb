package config

import "time"

const (
	DefaultMetricsInterval      = 10 * time.Second
	DefaultShutdownTimeout      = 5 * time.Second
	DefaultRuntimeStatsInterval = time.Second
	DefaultSampleRatio          = 1.0

	// TracingComponentName is the name used for readiness registration.
	TracingComponentName = "tracing"
	// MetricsComponentName is the name used for readiness registration.
	MetricsComponentName = "metrics"
)

// Config holds all observability configuration.
type Config struct {
	OtelCollectorEndpoint string        `mapstructure:"otel-collector-endpoint"`
	Tracing               TracingConfig `mapstructure:"tracing"`
	Metrics               MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// SampleRatio applies to root spans; child spans follow their parent.
	SampleRatio float64 `mapstructure:"sample-ratio"`
}

type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}
