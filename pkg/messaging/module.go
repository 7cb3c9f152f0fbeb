// Package messaging assembles the event bus side of a service: the Kafka
// producer and consumers plus the Publisher selected by publish.mode.
package messaging

import (
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/Sokol111/hrms-commons/pkg/messaging/publish"
	"go.uber.org/fx"
)

// messagingOptions holds internal configuration for the messaging module.
type messagingOptions struct {
	kafka      []kafka.Option
	publish    []publish.ModuleOption
	withoutPub bool
}

// MessagingOption is a functional option for configuring the messaging module.
type MessagingOption func(*messagingOptions)

// WithKafkaConfig provides a static Kafka Config (useful for tests).
// When set, the Kafka configuration will not be loaded from viper.
func WithKafkaConfig(cfg config.Config) MessagingOption {
	return func(opts *messagingOptions) {
		opts.kafka = append(opts.kafka, kafka.WithKafkaConfig(cfg))
	}
}

// WithKafkaOptions passes options through to the kafka module, e.g. an
// in-memory broker in tests.
func WithKafkaOptions(o ...kafka.Option) MessagingOption {
	return func(opts *messagingOptions) {
		opts.kafka = append(opts.kafka, o...)
	}
}

// WithPublishConfig provides a static publish Config.
func WithPublishConfig(cfg publish.Config) MessagingOption {
	return func(opts *messagingOptions) {
		opts.publish = append(opts.publish, publish.WithPublishConfig(cfg))
	}
}

// WithoutPublisher leaves out the Publisher and Dispatcher, for processes
// that only consume.
func WithoutPublisher() MessagingOption {
	return func(opts *messagingOptions) {
		opts.withoutPub = true
	}
}

// NewMessagingModule provides messaging functionality: kafka producer,
// consumers and the publisher.
//
// Example usage:
//
//	// Production - loads config from viper
//	messaging.NewMessagingModule()
//
//	// Consumers only
//	messaging.NewMessagingModule(messaging.WithoutPublisher())
func NewMessagingModule(opts ...MessagingOption) fx.Option {
	cfg := &messagingOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	modules := []fx.Option{kafka.NewKafkaModule(cfg.kafka...)}
	if !cfg.withoutPub {
		modules = append(modules, publish.NewPublishModule(cfg.publish...))
	}
	return fx.Options(modules...)
}
