package logger

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level specifies the minimum logging level.
	Level zapcore.Level `mapstructure:"level"`

	// Development enables console encoding and human-readable timestamps.
	Development bool `mapstructure:"development"`

	// OutputPaths is a list of URLs or file paths to write logging output to.
	// If empty, defaults to stderr.
	OutputPaths []string `mapstructure:"outputPaths"`

	// ErrorOutputPaths is a list of URLs or file paths to write internal logger errors to.
	ErrorOutputPaths []string `mapstructure:"errorOutputPaths"`

	// StacktraceLevel sets the minimum level at which stacktraces are captured.
	// Defaults to ErrorLevel.
	StacktraceLevel zapcore.Level `mapstructure:"stacktraceLevel"`
}

func (c Config) Validate() error {
	if err := validatePaths(c.OutputPaths, "outputPaths"); err != nil {
		return err
	}
	return validatePaths(c.ErrorOutputPaths, "errorOutputPaths")
}

func validatePaths(paths []string, fieldName string) error {
	for i, path := range paths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%s[%d] cannot be empty or whitespace", fieldName, i)
		}
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Level:           zapcore.InfoLevel,
		StacktraceLevel: zapcore.ErrorLevel,
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := v.Sub("logger")
	if sub == nil {
		return defaultConfig(), nil
	}

	var rawCfg struct {
		Level            string   `mapstructure:"level"`
		Development      bool     `mapstructure:"development"`
		OutputPaths      []string `mapstructure:"outputPaths"`
		ErrorOutputPaths []string `mapstructure:"errorOutputPaths"`
		StacktraceLevel  string   `mapstructure:"stacktraceLevel"`
	}

	if err := sub.Unmarshal(&rawCfg); err != nil {
		return Config{}, fmt.Errorf("failed to load logger config: %w", err)
	}

	cfg := defaultConfig()
	cfg.Development = rawCfg.Development
	cfg.OutputPaths = rawCfg.OutputPaths
	cfg.ErrorOutputPaths = rawCfg.ErrorOutputPaths

	if rawCfg.Level != "" {
		level, err := zapcore.ParseLevel(rawCfg.Level)
		if err != nil {
			return Config{}, fmt.Errorf("invalid log level '%s': %w", rawCfg.Level, err)
		}
		cfg.Level = level
	}

	if rawCfg.StacktraceLevel != "" {
		level, err := zapcore.ParseLevel(rawCfg.StacktraceLevel)
		if err != nil {
			return Config{}, fmt.Errorf("invalid stacktrace level '%s': %w", rawCfg.StacktraceLevel, err)
		}
		cfg.StacktraceLevel = level
	}

	return cfg, nil
}
