package consumer

import (
	"context"

	"github.com/Sokol111/hrms-commons/pkg/core/health"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	sourceFactory SourceFactory
}

// ModuleOption configures the consumer module.
type ModuleOption func(*moduleOptions)

// WithSourceFactory replaces the librdkafka consumer, e.g. with an in-memory broker.
func WithSourceFactory(f SourceFactory) ModuleOption {
	return func(o *moduleOptions) {
		o.sourceFactory = f
	}
}

// NewConsumerModule provides the *Factory services use to build their
// consumers. Each service registers its own consumer with Attach.
func NewConsumerModule(opts ...ModuleOption) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("kafka-consumer",
		fx.Provide(
			func() SourceFactory {
				if o.sourceFactory != nil {
					return o.sourceFactory
				}
				return NewConfluentSourceFactory()
			},
			func(conf config.Config, newSource SourceFactory, log *zap.Logger) *Factory {
				return NewFactory(conf, newSource, log.With(zap.String("component", "kafka-consumer")))
			},
		),
	)
}

// Attach ties c to the application lifecycle: the consumer is reported ready
// once started and stopped on shutdown. The returned bool is false when
// consumers are disabled by configuration, in which case the caller must not
// run it.
func Attach(lc fx.Lifecycle, conf config.Config, readiness health.ComponentManager, c *Consumer) bool {
	if !conf.ConsumerEnabled() {
		c.log.Info("kafka consumer disabled by configuration")
		return false
	}

	markReady := readiness.AddComponent("kafka-consumer-" + c.Name())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return c.Stop(ctx)
		},
	})
	return true
}
