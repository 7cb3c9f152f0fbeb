package server

import (
	"context"
	"net/http"

	"github.com/Sokol111/hrms-commons/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// ModuleOption configures the server module.
type ModuleOption func(*moduleOptions)

// WithServerConfig provides a static server Config (useful for tests).
func WithServerConfig(cfg Config) ModuleOption {
	return func(o *moduleOptions) {
		cfg.ApplyDefaults()
		o.config = &cfg
	}
}

// NewHTTPServerModule serves the application's http.Handler, the gin engine
// of the middleware module.
func NewHTTPServerModule(opts ...ModuleOption) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		configProvider = fx.Supply(*o.config)
	}

	return fx.Options(
		configProvider,
		fx.Invoke(startHTTPServer),
	)
}

func startHTTPServer(lc fx.Lifecycle, log *zap.Logger, conf Config, handler http.Handler, readiness health.ComponentManager, shutdowner fx.Shutdowner) {
	var srv Server
	markReady := readiness.AddComponent("http-server")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// all routes are registered by now
			srv = newServer(log, conf, handler)

			go func() {
				if err := srv.ServeWithReadyCallback(markReady); err != nil {
					log.Error("HTTP server failed, shutting down application", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if srv != nil {
				return srv.Shutdown(ctx)
			}
			return nil
		},
	})
}
