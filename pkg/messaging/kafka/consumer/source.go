package consumer

import (
	"time"

	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Source is the part of *kafka.Consumer the Consumer relies on.
type Source interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error)
	Close() error
}

// SourceFactory opens a new subscription connection.
type SourceFactory func(cm *kafka.ConfigMap) (Source, error)

// NewConfluentSourceFactory returns a factory for librdkafka-backed sources.
func NewConfluentSourceFactory() SourceFactory {
	return func(cm *kafka.ConfigMap) (Source, error) {
		c, err := kafka.NewConsumer(cm)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// ConfigMap translates consumer settings into librdkafka properties.
func ConfigMap(brokers string, cfg config.ConsumerConfig) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers":        brokers,
		"group.id":                 cfg.GroupID,
		"client.id":                cfg.ClientID,
		"auto.offset.reset":        cfg.AutoOffsetReset,
		"enable.auto.commit":       cfg.EnableAutoCommit,
		"enable.auto.offset.store": true,
		"session.timeout.ms":       int(cfg.SessionTimeout.Milliseconds()),
		"heartbeat.interval.ms":    int(cfg.HeartbeatInterval.Milliseconds()),
	}
}
