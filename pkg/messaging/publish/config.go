package publish

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Mode selects how events leave the service.
type Mode string

const (
	ModeKafka             Mode = "kafka"
	ModeHTTP              Mode = "http"
	ModeKafkaHTTPFallback Mode = "kafka-with-http-fallback"
	ModeDisabled          Mode = "disabled"
)

type Config struct {
	Mode           Mode          `mapstructure:"mode"`
	MaxInFlight    int           `mapstructure:"max-in-flight"`
	EnqueueTimeout time.Duration `mapstructure:"enqueue-timeout"`
	PublishTimeout time.Duration `mapstructure:"publish-timeout"`
	// HTTPClient names the clients.<name> entry used in http modes.
	HTTPClient  string `mapstructure:"http-client"`
	HTTPRetries *int   `mapstructure:"http-retries"`
}

const defaultHTTPClient = "event-ingest"

func (c Config) usesKafka() bool {
	return c.Mode == ModeKafka || c.Mode == ModeKafkaHTTPFallback
}

func (c Config) usesHTTP() bool {
	return c.Mode == ModeHTTP || c.Mode == ModeKafkaHTTPFallback
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.UnmarshalKey("publish", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load publish config: %w", err)
	}
	if mode := v.GetString("publish.mode"); mode != "" {
		cfg.Mode = Mode(mode)
	}
	applyDefaults(&cfg)
	return cfg, validate(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModeKafka
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if cfg.EnqueueTimeout == 0 {
		cfg.EnqueueTimeout = DefaultEnqueueTimeout
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.HTTPClient == "" {
		cfg.HTTPClient = defaultHTTPClient
	}
	if cfg.HTTPRetries == nil {
		cfg.HTTPRetries = lo.ToPtr(3)
	}
}

func validate(cfg Config) error {
	switch cfg.Mode {
	case ModeKafka, ModeHTTP, ModeKafkaHTTPFallback, ModeDisabled:
	default:
		return fmt.Errorf("publish.mode must be one of %s, %s, %s, %s; got %q",
			ModeKafka, ModeHTTP, ModeKafkaHTTPFallback, ModeDisabled, cfg.Mode)
	}
	if cfg.MaxInFlight < 0 {
		return fmt.Errorf("publish.max-in-flight must be positive")
	}
	if *cfg.HTTPRetries < 0 {
		return fmt.Errorf("publish.http-retries must not be negative")
	}
	return nil
}
