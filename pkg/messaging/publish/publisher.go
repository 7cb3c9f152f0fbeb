// Package publish is how services hand events to other services. A Publisher
// delivers one event; the Dispatcher runs publishes in the background,
// detached from the request that triggered them.
package publish

import (
	"context"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"go.uber.org/zap"
)

// Publisher delivers env to topic. false means the event was not delivered;
// implementations log the reason and never panic.
type Publisher interface {
	Publish(ctx context.Context, topic string, env *events.Envelope) bool
}

// KafkaPublisher publishes through the service's shared producer.
type KafkaPublisher struct {
	producer *producer.Producer
}

func NewKafkaPublisher(p *producer.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (k *KafkaPublisher) Publish(ctx context.Context, topic string, env *events.Envelope) bool {
	return k.producer.SendEvent(ctx, topic, env)
}

// FallbackPublisher tries primary first and secondary only when primary did
// not deliver.
type FallbackPublisher struct {
	primary   Publisher
	secondary Publisher
	log       *zap.Logger
}

func NewFallbackPublisher(primary, secondary Publisher, log *zap.Logger) *FallbackPublisher {
	return &FallbackPublisher{primary: primary, secondary: secondary, log: log}
}

func (f *FallbackPublisher) Publish(ctx context.Context, topic string, env *events.Envelope) bool {
	if f.primary.Publish(ctx, topic, env) {
		return true
	}
	f.log.Warn("primary publish failed, using fallback",
		zap.String("topic", topic),
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType.String()),
	)
	if f.secondary.Publish(ctx, topic, env) {
		return true
	}
	f.log.Error("event not delivered by any publisher",
		zap.String("topic", topic),
		zap.String("event_id", env.EventID),
	)
	return false
}

// nopPublisher drops events when publishing is switched off.
type nopPublisher struct {
	log *zap.Logger
}

func (n nopPublisher) Publish(_ context.Context, topic string, env *events.Envelope) bool {
	n.log.Debug("publishing disabled, event dropped",
		zap.String("topic", topic),
		zap.String("event_id", env.EventID),
	)
	return false
}
