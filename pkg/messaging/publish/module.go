package publish

import (
	"context"
	"fmt"

	"github.com/Sokol111/hrms-commons/pkg/http/client"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// ModuleOption configures the publish module.
type ModuleOption func(*moduleOptions)

// WithPublishConfig provides a static Config instead of the publish section.
func WithPublishConfig(cfg Config) ModuleOption {
	return func(o *moduleOptions) {
		applyDefaults(&cfg)
		o.config = &cfg
	}
}

// NewPublishModule provides the Publisher selected by publish.mode and the
// *Dispatcher services use to publish from request handlers. Kafka modes need
// the producer module.
func NewPublishModule(opts ...ModuleOption) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		cfg := *o.config
		configProvider = fx.Provide(func() (Config, error) { return cfg, validate(cfg) })
	}

	return fx.Module("publish",
		configProvider,
		fx.Provide(
			newPublisher,
			provideDispatcher,
		),
	)
}

type publisherParams struct {
	fx.In

	Config      Config
	KafkaConfig config.Config
	Producer    *producer.Producer `optional:"true"`
	Viper       *viper.Viper       `optional:"true"`
	Log         *zap.Logger
}

func newPublisher(p publisherParams) (Publisher, error) {
	log := p.Log.With(zap.String("component", "publisher"), zap.String("mode", string(p.Config.Mode)))
	if p.Config.Mode == ModeDisabled {
		log.Warn("event publishing disabled by configuration")
		return nopPublisher{log: log}, nil
	}

	var kafkaPub, httpPub Publisher
	if p.Config.usesKafka() {
		if p.Producer == nil {
			return nil, fmt.Errorf("publish.mode %s needs the kafka producer module", p.Config.Mode)
		}
		if !p.KafkaConfig.ProducerEnabled() {
			log.Warn("kafka producer disabled, kafka publishes will fail")
		}
		kafkaPub = NewKafkaPublisher(p.Producer)
	}
	if p.Config.usesHTTP() {
		if p.Viper == nil {
			return nil, fmt.Errorf("publish.mode %s needs client config", p.Config.Mode)
		}
		cfg, err := client.Load(p.Viper, p.Config.HTTPClient)
		if err != nil {
			return nil, err
		}
		httpPub = NewHTTPPublisher(client.New(cfg), cfg.BaseURL, *p.Config.HTTPRetries, log)
	}

	switch p.Config.Mode {
	case ModeKafka:
		return kafkaPub, nil
	case ModeHTTP:
		return httpPub, nil
	default:
		return NewFallbackPublisher(kafkaPub, httpPub, log), nil
	}
}

func provideDispatcher(lc fx.Lifecycle, cfg Config, kafkaConf config.Config, p Publisher, log *zap.Logger) *Dispatcher {
	d := NewDispatcher(p, log.With(zap.String("component", "dispatcher")),
		WithMaxInFlight(cfg.MaxInFlight),
		WithEnqueueTimeout(cfg.EnqueueTimeout),
		WithPublishTimeout(cfg.PublishTimeout),
		WithTopics(kafkaConf.Topic),
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return d.Close(ctx)
		},
	})
	return d
}
