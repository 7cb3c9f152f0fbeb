package producer

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type metadataProvider interface {
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
}

const brokerPollInterval = 500 * time.Millisecond

func waitForBrokers(ctx context.Context, p metadataProvider, log *zap.Logger, timeoutSec int, failOnError bool) error {
	if timeoutSec <= 0 {
		return nil
	}

	log.Info("waiting for kafka brokers", zap.Int("timeout_seconds", timeoutSec))

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	if err := pollBrokers(ctx, p); err != nil {
		if failOnError {
			return err
		}
		log.Warn("brokers not ready, continuing", zap.Error(err))
		return nil
	}

	log.Info("kafka brokers available")
	return nil
}

func pollBrokers(ctx context.Context, p metadataProvider) error {
	for {
		if meta, err := p.GetMetadata(nil, false, int(brokerPollInterval.Milliseconds())); err == nil && len(meta.Brokers) > 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(brokerPollInterval):
		}
	}
}
