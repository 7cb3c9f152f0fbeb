package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Environment variable names
const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
	envConfigFile        = "CONFIG_FILE"
	envConfigDir         = "CONFIG_DIR"
	envConfigName        = "CONFIG_NAME"
)

const (
	defaultConfigDir      = "./configs"
	defaultServiceVersion = "dev"
)

// AppConfig represents the core application metadata and configuration paths.
type AppConfig struct {
	// ConfigFile is the full path to the config file
	ConfigFile string
	// ServiceName is the human readable name of the service, e.g. "Notification Service".
	// It is stamped into every event produced by the service.
	ServiceName string
	// ServiceVersion is the version of the service
	ServiceVersion string
	// Environment is the deployment environment (e.g., "local", "staging", "pro")
	Environment string
}

type appConfigOptions struct {
	static *AppConfig
}

// AppConfigOption configures the application config module.
type AppConfigOption func(*appConfigOptions)

// WithAppConfig supplies a static AppConfig instead of reading the environment.
func WithAppConfig(cfg AppConfig) AppConfigOption {
	return func(o *appConfigOptions) {
		o.static = &cfg
	}
}

// NewAppConfigModule creates a new fx module for application configuration.
//
// Required environment variables:
//   - APP_ENV: Environment name (e.g., "local", "staging", "pro")
//   - APP_SERVICE_NAME: Service name
//
// Optional environment variables:
//   - APP_SERVICE_VERSION: Service version (default: dev)
//   - CONFIG_FILE: Full path to config file (default: ./configs/config.{env}.yaml)
func NewAppConfigModule(opts ...AppConfigOption) fx.Option {
	o := &appConfigOptions{}
	for _, opt := range opts {
		opt(o)
	}

	provide := fx.Provide(newAppConfig)
	if o.static != nil {
		provide = fx.Supply(*o.static)
	}

	return fx.Module("appconfig",
		provide,
		fx.Invoke(func(logger *zap.Logger, conf AppConfig) {
			logger.Info("Loaded application configuration",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment),
				zap.String("configFile", conf.ConfigFile),
			)
		}),
	)
}

func newAppConfig() (AppConfig, error) {
	env := os.Getenv(envAppEnv)
	if env == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppEnv)
	}

	serviceName := os.Getenv(envAppServiceName)
	if serviceName == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceName)
	}

	serviceVersion := os.Getenv(envAppServiceVersion)
	if serviceVersion == "" {
		serviceVersion = defaultServiceVersion
	}

	configFile := os.Getenv(envConfigFile)
	if configFile == "" {
		configDir := os.Getenv(envConfigDir)
		if configDir == "" {
			configDir = defaultConfigDir
		}

		configName := os.Getenv(envConfigName)
		if configName == "" {
			configName = "config." + env
		}

		configFile = filepath.Join(configDir, configName+".yaml")
	}

	return AppConfig{
		ConfigFile:     configFile,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    env,
	}, nil
}
