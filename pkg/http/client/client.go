package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Default values for HTTP client configuration. Connections are recycled
// after DefaultMaxConnLifetime so that new pods behind a service get traffic.
const (
	DefaultTimeout             = 10 * time.Second
	DefaultMaxIdleConnsPerHost = 100
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultMaxConnLifetime     = 60 * time.Second
	MaxRetriesCap              = 5
)

// Config holds configuration for an HTTP client loaded from config file
// yaml example:
//
//	clients:
//	  audit-service:
//	    base-url: http://audit-service:8080
//	    timeout: 10s
//	    max-idle-conns-per-host: 10
//	    idle-conn-timeout: 10s
//	    max-conn-lifetime: 60s
//
// Omit timeout fields to use defaults. Set to 0 to disable.
type Config struct {
	BaseURL             string         `mapstructure:"base-url"`
	Timeout             *time.Duration `mapstructure:"timeout"`
	MaxIdleConnsPerHost *int           `mapstructure:"max-idle-conns-per-host"`
	IdleConnTimeout     *time.Duration `mapstructure:"idle-conn-timeout"`
	MaxConnLifetime     *time.Duration `mapstructure:"max-conn-lifetime"`
}

// New builds a client with connection lifetime limits and otelhttp client
// spans carrying trace context. Requests that fail on a broken pooled
// connection are retried at most once per idle connection, capped at
// MaxRetriesCap. Unset fields take their defaults.
func New(cfg Config) *http.Client {
	cfg.ApplyDefaults()

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	transport := &http.Transport{
		MaxIdleConnsPerHost: *cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     *cfg.IdleConnTimeout,
	}
	if lifetime := *cfg.MaxConnLifetime; lifetime > 0 {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &timedConn{Conn: conn, createdAt: time.Now(), maxLifetime: lifetime}, nil
		}
	}

	return &http.Client{
		Timeout: *cfg.Timeout,
		Transport: otelhttp.NewTransport(&retryTransport{
			base:       transport,
			transport:  transport,
			maxRetries: min(*cfg.MaxIdleConnsPerHost, MaxRetriesCap),
		}),
	}
}

// Load reads clients.<name> from v and validates it.
func Load(v *viper.Viper, name string) (Config, error) {
	var cfg Config
	if err := v.UnmarshalKey("clients."+name, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal client config %q: %w", name, err)
	}
	if url := v.GetString("clients." + name + ".base-url"); url != "" {
		cfg.BaseURL = url
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid client config %q: %w", name, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ProvideHTTPClient returns an fx constructor for the client named name.
//
//	fx.Provide(fx.Private, client.ProvideHTTPClient("audit-service"))
func ProvideHTTPClient(name string) func(*viper.Viper) (*http.Client, Config, error) {
	return func(v *viper.Viper) (*http.Client, Config, error) {
		cfg, err := Load(v, name)
		if err != nil {
			return nil, Config{}, err
		}
		return New(cfg), cfg, nil
	}
}

func (c *Config) ApplyDefaults() {
	if c.Timeout == nil {
		c.Timeout = lo.ToPtr(DefaultTimeout)
	}
	if c.MaxIdleConnsPerHost == nil {
		c.MaxIdleConnsPerHost = lo.ToPtr(DefaultMaxIdleConnsPerHost)
	}
	if c.IdleConnTimeout == nil {
		c.IdleConnTimeout = lo.ToPtr(DefaultIdleConnTimeout)
	}
	if c.MaxConnLifetime == nil {
		c.MaxConnLifetime = lo.ToPtr(DefaultMaxConnLifetime)
	}
}

func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base-url is required")
	}
	return nil
}
