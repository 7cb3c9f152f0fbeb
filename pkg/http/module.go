// Package http assembles the service's HTTP surface: server, middleware,
// health checks and the event ingest endpoint.
package http

import (
	"github.com/Sokol111/hrms-commons/pkg/http/health"
	"github.com/Sokol111/hrms-commons/pkg/http/ingest"
	"github.com/Sokol111/hrms-commons/pkg/http/middleware"
	"github.com/Sokol111/hrms-commons/pkg/http/server"
	"go.uber.org/fx"
)

type httpOptions struct {
	serverConfig *server.Config
}

// HTTPOption is a functional option for configuring the HTTP module.
type HTTPOption func(*httpOptions)

// WithServerConfig provides a static server Config (useful for tests).
// When set, the server configuration will not be loaded from viper.
func WithServerConfig(cfg server.Config) HTTPOption {
	return func(opts *httpOptions) {
		opts.serverConfig = &cfg
	}
}

// NewHTTPModule provides the HTTP server with the standard middleware chain,
// health routes and the event ingest endpoint.
//
//	// Production - loads config from viper
//	http.NewHTTPModule()
//
//	// Testing - with static config
//	http.NewHTTPModule(http.WithServerConfig(server.Config{Port: 18080}))
func NewHTTPModule(opts ...HTTPOption) fx.Option {
	cfg := &httpOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	var serverOpts []server.ModuleOption
	if cfg.serverConfig != nil {
		serverOpts = append(serverOpts, server.WithServerConfig(*cfg.serverConfig))
	}

	return fx.Options(
		server.NewHTTPServerModule(serverOpts...),
		middleware.NewMiddlewareModule(),
		health.NewHealthRoutesModule(),
		ingest.NewIngestModule(),
	)
}
