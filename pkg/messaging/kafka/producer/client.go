package producer

import (
	"fmt"

	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Client is the part of *kafka.Producer the Producer relies on.
type Client interface {
	Produce(message *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
}

// ClientFactory opens a new bus connection.
type ClientFactory func(cm *kafka.ConfigMap) (Client, error)

// NewConfluentClientFactory returns a factory for librdkafka-backed clients.
// Client-level events that are not delivery reports are drained and logged.
func NewConfluentClientFactory(log *zap.Logger) ClientFactory {
	return func(cm *kafka.ConfigMap) (Client, error) {
		p, err := kafka.NewProducer(cm)
		if err != nil {
			return nil, err
		}
		go func() {
			for e := range p.Events() {
				switch ev := e.(type) {
				case kafka.Error:
					log.Warn("kafka producer error", zap.Error(ev), zap.Bool("fatal", ev.IsFatal()))
				case *kafka.Message:
					if ev.TopicPartition.Error != nil {
						log.Warn("undelivered message", zap.Error(ev.TopicPartition.Error))
					}
				}
			}
		}()
		return p, nil
	}
}

// ConfigMap translates producer settings into librdkafka properties.
func ConfigMap(brokers string, cfg config.ProducerConfig) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers":   brokers,
		"client.id":           cfg.ClientID,
		"acks":                cfg.Acks,
		"compression.type":    cfg.Compression,
		"retries":             lo.FromPtr(cfg.Retries),
		"message.max.bytes":   cfg.MaxRequestSize,
		"request.timeout.ms":  int(cfg.RequestTimeout.Milliseconds()),
		"go.delivery.reports": true,
	}
}

func describe(cm *kafka.ConfigMap) string {
	clientID, _ := cm.Get("client.id", "")
	servers, _ := cm.Get("bootstrap.servers", "")
	return fmt.Sprintf("%v@%v", clientID, servers)
}
