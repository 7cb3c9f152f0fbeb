package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type viperConfig struct {
	configPath   *string
	noConfigFile bool
}

// ViperOption is a functional option for configuring the Viper module.
type ViperOption func(*viperConfig)

// WithConfigPath sets a direct path to the configuration file.
func WithConfigPath(path string) ViperOption {
	return func(cfg *viperConfig) {
		cfg.configPath = &path
	}
}

// WithoutConfigFile disables loading of any config file.
// Viper is still provided and reads the environment.
func WithoutConfigFile() ViperOption {
	return func(cfg *viperConfig) {
		cfg.noConfigFile = true
	}
}

// FilePath represents the path to a configuration file.
// Empty string means no config file will be loaded.
type FilePath string

// NewViperModule creates an fx module for Viper configuration.
// By default the config path is resolved from the CONFIG_FILE environment variable.
// A sibling "<name>.<APP_ENV><ext>" file, when present, is merged over it.
func NewViperModule(opts ...ViperOption) fx.Option {
	cfg := &viperConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Module("viper",
		fx.Supply(resolveConfigPath(cfg)),
		fx.Provide(func(configFile FilePath, logger *zap.Logger) (*viper.Viper, error) {
			v, overlay, err := newViper(configFile, os.Getenv(envAppEnv))
			if err != nil {
				return nil, err
			}
			logger.Info("Configuration loaded",
				zap.String("configFile", string(configFile)),
				zap.String("overlay", overlay),
				zap.Int("settingsCount", len(v.AllSettings())),
			)
			return v, nil
		}),
	)
}

func resolveConfigPath(cfg *viperConfig) FilePath {
	if cfg.noConfigFile {
		return ""
	}
	if cfg.configPath != nil {
		return FilePath(*cfg.configPath)
	}
	if configFile := os.Getenv(envConfigFile); configFile != "" {
		return FilePath(configFile)
	}
	return ""
}

// newViper reads configFile and merges the overlay for env over it. It
// returns the overlay path, empty when none was merged.
func newViper(configFile FilePath, env string) (*viper.Viper, string, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile == "" {
		return v, "", nil
	}

	v.SetConfigFile(string(configFile))
	if err := v.ReadInConfig(); err != nil {
		return nil, "", fmt.Errorf("failed to read config file [%s]: %w", configFile, err)
	}

	overlay := overlayPath(string(configFile), env)
	if overlay == "" {
		return v, "", nil
	}
	if _, err := os.Stat(overlay); err != nil {
		return v, "", nil
	}
	v.SetConfigFile(overlay)
	if err := v.MergeInConfig(); err != nil {
		return nil, "", fmt.Errorf("failed to merge config overlay [%s]: %w", overlay, err)
	}
	return v, overlay, nil
}

// overlayPath maps "configs/config.yaml" and "staging" to "configs/config.staging.yaml".
func overlayPath(configFile, env string) string {
	if env == "" {
		return ""
	}
	ext := filepath.Ext(configFile)
	return strings.TrimSuffix(configFile, ext) + "." + env + ext
}
