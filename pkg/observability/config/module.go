package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type configOptions struct {
	config         *Config
	disableTracing bool
	disableMetrics bool
}

// Option configures the observability config module.
type Option func(*configOptions)

// WithConfig provides a static Config (useful for tests).
func WithConfig(cfg Config) Option {
	return func(opts *configOptions) {
		opts.config = &cfg
	}
}

// WithDisableTracing disables tracing regardless of configuration.
func WithDisableTracing() Option {
	return func(opts *configOptions) {
		opts.disableTracing = true
	}
}

// WithDisableMetrics disables metrics regardless of configuration.
func WithDisableMetrics() Option {
	return func(opts *configOptions) {
		opts.disableMetrics = true
	}
}

// NewObservabilityConfigModule provides the observability section of the
// service config.
func NewObservabilityConfigModule(opts ...Option) fx.Option {
	cfg := &configOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(provideConfig),
	)
}

func provideConfig(opts *configOptions, v *viper.Viper, logger *zap.Logger) (Config, error) {
	cfg, err := load(opts, v)
	if err != nil {
		return cfg, err
	}
	logger.Info("loaded observability config",
		zap.Bool("tracing", cfg.Tracing.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)
	return cfg, nil
}

func load(opts *configOptions, v *viper.Viper) (Config, error) {
	var cfg Config
	if opts.config != nil {
		cfg = *opts.config
	} else if sub := v.Sub("observability"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load observability config: %w", err)
		}
	}

	applyDefaults(&cfg)
	if opts.disableTracing {
		cfg.Tracing.Enabled = false
	}
	if opts.disableMetrics {
		cfg.Metrics.Enabled = false
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return cfg, fmt.Errorf("observability.tracing.sample-ratio must be within [0, 1], got %v", cfg.Tracing.SampleRatio)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Metrics.Interval == 0 {
		cfg.Metrics.Interval = DefaultMetricsInterval
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultSampleRatio
	}
}
