package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/tracing"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

func (c *Consumer) process(ctx context.Context, msg *kafka.Message, handler Handler, dlq DLQHandler) {
	ctx = tracing.Extract(ctx, msg)
	ctx, span := tracing.StartConsume(ctx, msg)
	defer span.End()

	log := c.log.With(
		zap.String("topic", topicOf(msg)),
		zap.Int32("partition", msg.TopicPartition.Partition),
		zap.Int64("offset", int64(msg.TopicPartition.Offset)),
	)
	ctx = logger.With(ctx, log)

	err := safeCall(func() error {
		env, err := c.decode(msg.Value)
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		return handler(ctx, env)
	})
	if err == nil {
		c.metrics.addProcessed(ctx, 1)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "handler failed")
	c.metrics.addFailed(ctx, 1)
	log.Error("failed to process message", zap.Error(err))

	if dlq == nil {
		return
	}
	c.redirect(ctx, log, 1, func() error {
		return dlq(ctx, json.RawMessage(msg.Value), err)
	})
}

// processBatch dead-letters undecodable messages one by one and hands the
// rest to the batch handler.
func (c *Consumer) processBatch(ctx context.Context, batch []*kafka.Message, handler BatchHandler, dlq BatchDLQHandler) {
	ctx, span := tracing.StartConsumeBatch(ctx, c.cfg.Topics, len(batch))
	defer span.End()

	log := c.log.With(zap.Int("batch_size", len(batch)))
	ctx = logger.With(ctx, log)

	envs := make([]*events.Envelope, 0, len(batch))
	raws := make([]json.RawMessage, 0, len(batch))
	for _, msg := range batch {
		env, err := c.decode(msg.Value)
		if err != nil {
			err = fmt.Errorf("decode event at offset %d: %w", msg.TopicPartition.Offset, err)
			span.RecordError(err)
			c.metrics.addFailed(ctx, 1)
			log.Error("failed to decode message", zap.Error(err), zap.String("topic", topicOf(msg)))
			if dlq != nil {
				raw := json.RawMessage(msg.Value)
				c.redirect(ctx, log, 1, func() error {
					return dlq(ctx, []json.RawMessage{raw}, err)
				})
			}
			continue
		}
		envs = append(envs, env)
		raws = append(raws, json.RawMessage(msg.Value))
	}
	if len(envs) == 0 {
		span.SetStatus(codes.Error, "no decodable messages")
		return
	}

	err := safeCall(func() error {
		return handler(ctx, envs)
	})
	if err == nil {
		c.metrics.addProcessed(ctx, len(envs))
		log.Debug("batch processed", zap.Int("handled", len(envs)))
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "batch handler failed")
	c.metrics.addFailed(ctx, len(envs))
	log.Error("failed to process batch", zap.Error(err))

	if dlq == nil {
		return
	}
	c.redirect(ctx, log, len(raws), func() error {
		return dlq(ctx, raws, err)
	})
}

// redirect runs a dead letter handler. Its failures are logged and swallowed.
func (c *Consumer) redirect(ctx context.Context, log *zap.Logger, n int, fn func() error) {
	if err := safeCall(fn); err != nil {
		log.Error("failed to redirect to dead letter queue", zap.Error(err))
		return
	}
	c.metrics.addDLQ(ctx, n)
}

func topicOf(msg *kafka.Message) string {
	if msg.TopicPartition.Topic == nil {
		return ""
	}
	return *msg.TopicPartition.Topic
}
