package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultDSN             = "file:hrms.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	DefaultMigrationsTable = "schema_migrations"
	DefaultMaxOpenConns    = 4
	DefaultConnMaxIdleTime = 5 * time.Minute
	DefaultTxRetries       = 3
)

type Config struct {
	// DSN is a modernc sqlite data source, e.g. "file:audit.db" or ":memory:".
	DSN             string        `mapstructure:"dsn"`
	AutoMigrate     *bool         `mapstructure:"auto-migrate"`
	MigrationsTable string        `mapstructure:"migrations-table"`
	MaxOpenConns    int           `mapstructure:"max-open-conns"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn-max-idle-time"`
	TxRetries       int           `mapstructure:"tx-retries"`
}

// InMemory reports whether the database lives in process memory. Every
// connection to such a database sees its own copy, so the pool is pinned to
// one connection.
func (c Config) InMemory() bool {
	return c.DSN == ":memory:" || strings.Contains(c.DSN, "mode=memory")
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("database"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load database config: %w", err)
		}
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

func ApplyDefaults(cfg *Config) {
	if cfg.DSN == "" {
		cfg.DSN = DefaultDSN
	}
	if cfg.AutoMigrate == nil {
		auto := true
		cfg.AutoMigrate = &auto
	}
	if cfg.MigrationsTable == "" {
		cfg.MigrationsTable = DefaultMigrationsTable
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = DefaultConnMaxIdleTime
	}
	if cfg.InMemory() {
		// closing the only connection would drop the database
		cfg.MaxOpenConns = 1
		cfg.ConnMaxIdleTime = -1
	}
	if cfg.TxRetries == 0 {
		cfg.TxRetries = DefaultTxRetries
	}
}
