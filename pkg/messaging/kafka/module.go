// Package kafka composes the event bus modules: config, the shared producer
// and the consumer factory.
package kafka

import (
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/consumer"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"go.uber.org/fx"
)

type kafkaOptions struct {
	config        *config.Config
	clientFactory producer.ClientFactory
	sourceFactory consumer.SourceFactory
}

// Option configures the kafka module.
type Option func(*kafkaOptions)

// WithKafkaConfig provides a static Config instead of the kafka section.
// Defaults and validation still apply.
func WithKafkaConfig(cfg config.Config) Option {
	return func(o *kafkaOptions) {
		o.config = &cfg
	}
}

// WithClientFactory replaces the producer client.
func WithClientFactory(f producer.ClientFactory) Option {
	return func(o *kafkaOptions) {
		o.clientFactory = f
	}
}

// WithSourceFactory replaces the consumer source.
func WithSourceFactory(f consumer.SourceFactory) Option {
	return func(o *kafkaOptions) {
		o.sourceFactory = f
	}
}

// NewKafkaModule provides config.Config, the shared *producer.Producer,
// *producer.Factory and *consumer.Factory.
//
//	kafka.NewKafkaModule()
//
//	// tests
//	broker := kafkamem.New()
//	kafka.NewKafkaModule(
//	    kafka.WithKafkaConfig(config.Config{Brokers: "memory:9092"}),
//	    kafka.WithClientFactory(broker.ClientFactory()),
//	    kafka.WithSourceFactory(broker.SourceFactory()),
//	)
func NewKafkaModule(opts ...Option) fx.Option {
	o := &kafkaOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configModule := config.NewKafkaConfigModule()
	if o.config != nil {
		configModule = config.NewStaticKafkaConfigModule(*o.config)
	}

	var producerOpts []producer.ModuleOption
	if o.clientFactory != nil {
		producerOpts = append(producerOpts, producer.WithClientFactory(o.clientFactory))
	}
	var consumerOpts []consumer.ModuleOption
	if o.sourceFactory != nil {
		consumerOpts = append(consumerOpts, consumer.WithSourceFactory(o.sourceFactory))
	}

	return fx.Options(
		configModule,
		producer.NewProducerModule(producerOpts...),
		consumer.NewConsumerModule(consumerOpts...),
	)
}
