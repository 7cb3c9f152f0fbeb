package core

import (
	"time"

	"github.com/Sokol111/hrms-commons/pkg/core/config"
	"github.com/Sokol111/hrms-commons/pkg/core/health"
	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/Sokol111/hrms-commons/pkg/core/worker"
	"go.uber.org/fx"
)

type coreOptions struct {
	appConfig          *config.AppConfig
	loggerConfig       *logger.Config
	configPath         string
	disableDotEnv      bool
	disableViperConfig bool
}

// Option is a functional option for configuring the core module.
type Option func(*coreOptions)

// WithAppConfig provides a static AppConfig instead of reading the environment.
func WithAppConfig(cfg config.AppConfig) Option {
	return func(opts *coreOptions) {
		opts.appConfig = &cfg
	}
}

// WithLoggerConfig provides a static logger Config instead of reading viper.
func WithLoggerConfig(cfg logger.Config) Option {
	return func(opts *coreOptions) {
		opts.loggerConfig = &cfg
	}
}

// WithConfigFile loads configuration from the given file.
func WithConfigFile(path string) Option {
	return func(opts *coreOptions) {
		opts.configPath = path
	}
}

// WithoutEnvFile disables loading of the .env file.
func WithoutEnvFile() Option {
	return func(opts *coreOptions) {
		opts.disableDotEnv = true
	}
}

// WithoutConfigFile disables loading of the config file.
func WithoutConfigFile() Option {
	return func(opts *coreOptions) {
		opts.disableViperConfig = true
	}
}

// NewCoreModule provides config, logger, readiness tracking and starts the
// registered workers.
//
//	// Production: config from environment and CONFIG_FILE
//	core.NewCoreModule()
//
//	// Tests: static configs
//	core.NewCoreModule(
//	    core.WithAppConfig(config.AppConfig{ServiceName: "audit-service"}),
//	    core.WithoutEnvFile(),
//	    core.WithoutConfigFile(),
//	)
func NewCoreModule(opts ...Option) fx.Option {
	cfg := &coreOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Options(
		fx.StartTimeout(2*time.Minute),
		fx.StopTimeout(time.Minute),

		dotEnvModule(cfg),
		viperModule(cfg),
		appConfigModule(cfg),
		loggerModule(cfg),
		health.NewReadinessModule(),
		worker.NewWorkersModule(),
	)
}

func dotEnvModule(cfg *coreOptions) fx.Option {
	if cfg.disableDotEnv {
		return fx.Options()
	}
	return config.NewDotEnvModule()
}

func viperModule(cfg *coreOptions) fx.Option {
	switch {
	case cfg.disableViperConfig:
		return config.NewViperModule(config.WithoutConfigFile())
	case cfg.configPath != "":
		return config.NewViperModule(config.WithConfigPath(cfg.configPath))
	default:
		return config.NewViperModule()
	}
}

func appConfigModule(cfg *coreOptions) fx.Option {
	if cfg.appConfig != nil {
		return config.NewAppConfigModule(config.WithAppConfig(*cfg.appConfig))
	}
	return config.NewAppConfigModule()
}

func loggerModule(cfg *coreOptions) fx.Option {
	if cfg.loggerConfig != nil {
		return logger.NewZapLoggingModule(logger.WithLoggerConfig(*cfg.loggerConfig))
	}
	return logger.NewZapLoggingModule()
}
