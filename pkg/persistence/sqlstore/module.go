package sqlstore

import (
	"context"
	"fmt"

	"github.com/Sokol111/hrms-commons/pkg/core/health"
	"github.com/Sokol111/hrms-commons/pkg/persistence"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// ModuleOption configures the sqlstore module.
type ModuleOption func(*moduleOptions)

// WithConfig provides a static Config instead of the database section.
func WithConfig(cfg Config) ModuleOption {
	return func(o *moduleOptions) {
		ApplyDefaults(&cfg)
		o.config = &cfg
	}
}

// NewSQLStoreModule provides *Store and persistence.TxManager. The store is
// pinged and, unless auto-migrate is off, migrated on start.
func NewSQLStoreModule(opts ...ModuleOption) fx.Option {
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
		fx.Provide(
			provideStore,
			func(s *Store) persistence.TxManager { return s.TxManager() },
		),
	)
}

func provideStore(lc fx.Lifecycle, log *zap.Logger, cfg Config, readiness health.ComponentManager) (*Store, error) {
	log = log.With(zap.String("component", "sql-store"))
	store, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("sql-store")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("database unreachable: %w", err)
			}
			if *cfg.AutoMigrate {
				if err := store.Migrate(); err != nil {
					return err
				}
			}
			markReady()
			return nil
		},
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}
