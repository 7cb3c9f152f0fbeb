package config

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type dotenvConfig struct {
	path   string
	loaded []string
}

// DotEnvOption is a functional option for configuring the dotenv module.
type DotEnvOption func(*dotenvConfig)

// WithDotEnvPath sets a custom path to the .env file.
func WithDotEnvPath(path string) DotEnvOption {
	return func(cfg *dotenvConfig) {
		cfg.path = path
	}
}

// NewDotEnvModule loads environment variables from "<path>.<APP_ENV>" and
// then from "<path>". Variables already present in the process environment
// are never overridden, so the environment specific file wins over the
// shared one. Loading happens when the module is created, before any
// provider reads the environment.
func NewDotEnvModule(opts ...DotEnvOption) fx.Option {
	cfg := &dotenvConfig{path: ".env"}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.loaded = loadDotEnv(cfg.path, os.Getenv(envAppEnv))

	return fx.Module("dotenv",
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if len(cfg.loaded) == 0 {
						logger.Debug("No .env file loaded", zap.String("path", cfg.path))
						return nil
					}
					logger.Info("Loaded .env files", zap.Strings("paths", cfg.loaded))
					return nil
				},
			})
		}),
	)
}

func loadDotEnv(path, env string) []string {
	candidates := []string{path}
	if env != "" {
		candidates = []string{path + "." + env, path}
	}
	return lo.Filter(candidates, func(p string, _ int) bool {
		return godotenv.Load(p) == nil
	})
}
