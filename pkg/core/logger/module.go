package logger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type moduleOptions struct {
	static *Config
}

// ModuleOption configures the logging module.
type ModuleOption func(*moduleOptions)

// WithLoggerConfig supplies a static logger config instead of reading viper.
func WithLoggerConfig(cfg Config) ModuleOption {
	return func(o *moduleOptions) {
		o.static = &cfg
	}
}

// NewZapLoggingModule provides a configured *zap.Logger bound to the fx lifecycle
// and routes fx's own events through it.
func NewZapLoggingModule(opts ...ModuleOption) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.static != nil {
		configProvider = fx.Supply(*o.static)
	}

	return fx.Options(
		configProvider,
		fx.Provide(provideLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
}

func provideLogger(lc fx.Lifecycle, conf Config) (*zap.Logger, error) {
	logger, err := newLogger(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			err := logger.Sync()
			var pathErr *os.PathError
			if errors.As(err, &pathErr) && (errors.Is(pathErr.Err, syscall.EINVAL) || errors.Is(pathErr.Err, syscall.ENOTTY)) {
				return nil
			}
			return err
		},
	})

	return logger, nil
}
