package producer

import (
	"context"

	"github.com/Sokol111/hrms-commons/pkg/core/health"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const componentName = "kafka-producer"

type moduleOptions struct {
	clientFactory ClientFactory
}

// ModuleOption configures the producer module.
type ModuleOption func(*moduleOptions)

// WithClientFactory replaces the librdkafka client, e.g. with an in-memory broker.
func WithClientFactory(f ClientFactory) ModuleOption {
	return func(o *moduleOptions) {
		o.clientFactory = f
	}
}

// NewProducerModule provides the service's shared *Producer. The composition
// root owns it: it is started with the application and flushed and closed on
// shutdown. Short-lived producers come from *Factory.
func NewProducerModule(opts ...ModuleOption) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("kafka-producer",
		fx.Provide(
			func(log *zap.Logger) ClientFactory {
				if o.clientFactory != nil {
					return o.clientFactory
				}
				return NewConfluentClientFactory(log.Named("kafka"))
			},
			func(conf config.Config, newClient ClientFactory, log *zap.Logger) *Factory {
				return NewFactory(conf, newClient, log.With(zap.String("component", componentName)))
			},
			provideProducer,
		),
	)
}

func provideProducer(lc fx.Lifecycle, log *zap.Logger, conf config.Config, factory *Factory, readiness health.ComponentManager) *Producer {
	p := factory.New()
	log = log.With(zap.String("component", componentName))

	if !conf.ProducerEnabled() {
		log.Info("kafka producer disabled by configuration")
		return p
	}

	markReady := readiness.AddComponent(componentName)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Start(ctx); err != nil {
				if conf.Producer.FailOnBrokerError != nil && *conf.Producer.FailOnBrokerError {
					return err
				}
				log.Error("kafka producer unavailable, continuing without events", zap.Error(err))
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return p.Stop(ctx)
		},
	})

	return p
}
