package server

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port int `mapstructure:"port"`

	// Server connection settings
	Connection ConnectionConfig `mapstructure:"connection"`

	// Request Timeout (middleware-based, returns proper HTTP response)
	Timeout TimeoutConfig `mapstructure:"timeout"`

	// Rate Limiting
	RateLimit RateLimitConfig `mapstructure:"rate-limit"`

	// HTTP Bulkhead
	Bulkhead BulkheadConfig `mapstructure:"bulkhead"`
}

// ConnectionConfig contains low-level HTTP server connection settings.
// These are "hard" timeouts that close the connection without HTTP response.
type ConnectionConfig struct {
	ReadHeaderTimeout time.Duration `mapstructure:"read-header-timeout"`
	ReadTimeout       time.Duration `mapstructure:"read-timeout"`
	WriteTimeout      time.Duration `mapstructure:"write-timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle-timeout"`
	MaxHeaderBytes    int           `mapstructure:"max-header-bytes"`
}

type TimeoutConfig struct {
	Enabled        *bool         `mapstructure:"enabled"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

type RateLimitConfig struct {
	Enabled           *bool `mapstructure:"enabled"`
	RequestsPerSecond int   `mapstructure:"requests-per-second"`
	Burst             int   `mapstructure:"burst"`
}

type BulkheadConfig struct {
	Enabled       *bool         `mapstructure:"enabled"`
	MaxConcurrent int           `mapstructure:"max-concurrent"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

const defaultPort = 8080

func newConfig(v *viper.Viper, logger *zap.Logger) (Config, error) {
	var cfg Config
	if sub := v.Sub("server"); sub != nil {
		if err := sub.UnmarshalExact(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load server config: %w", err)
		}
	}
	if port := v.GetInt("server.port"); port != 0 {
		cfg.Port = port
	}

	cfg.ApplyDefaults()
	if cfg.Port < 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid server port %d", cfg.Port)
	}

	logger.Info("loaded server config", zap.Any("config", cfg))
	return cfg, nil
}

// ApplyDefaults fills unset fields. Tests building a Config by hand call it too.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	c.Timeout.setDefaults()
	c.Connection.setDefaults(c.Timeout)
	c.RateLimit.setDefaults()
	c.Bulkhead.setDefaults()
}

func (c *ConnectionConfig) setDefaults(timeout TimeoutConfig) {
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = 10 * time.Second // Slowloris protection
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		// must outlive the request timeout so the middleware can still answer
		if *timeout.Enabled && timeout.RequestTimeout > 0 {
			c.WriteTimeout = timeout.RequestTimeout + 10*time.Second
		} else {
			c.WriteTimeout = 40 * time.Second
		}
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.MaxHeaderBytes == 0 {
		c.MaxHeaderBytes = 1 << 20
	}
}

func (c *TimeoutConfig) setDefaults() {
	if c.Enabled == nil {
		c.Enabled = lo.ToPtr(true)
	}
	if *c.Enabled && c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

func (c *RateLimitConfig) setDefaults() {
	if c.Enabled == nil {
		c.Enabled = lo.ToPtr(true)
	}
	if !*c.Enabled {
		return
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 1000
	}
	if c.Burst == 0 {
		c.Burst = 100
	}
}

func (c *BulkheadConfig) setDefaults() {
	if c.Enabled == nil {
		c.Enabled = lo.ToPtr(true)
	}
	if !*c.Enabled {
		return
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 500
	}
	if c.Timeout == 0 {
		c.Timeout = 100 * time.Millisecond
	}
}
