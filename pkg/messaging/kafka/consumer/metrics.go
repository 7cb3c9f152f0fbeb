package consumer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type consumerMetrics struct {
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dlq       metric.Int64Counter
	group     attribute.KeyValue
}

func newConsumerMetrics(groupID string) *consumerMetrics {
	meter := otel.Meter("github.com/Sokol111/hrms-commons/pkg/messaging/kafka/consumer")
	processed, _ := meter.Int64Counter("messaging.consumer.processed",
		metric.WithDescription("Messages handled successfully"))
	failed, _ := meter.Int64Counter("messaging.consumer.failed",
		metric.WithDescription("Messages whose handler failed"))
	dlq, _ := meter.Int64Counter("messaging.consumer.dlq",
		metric.WithDescription("Messages redirected to a dead letter handler"))
	return &consumerMetrics{
		processed: processed,
		failed:    failed,
		dlq:       dlq,
		group:     attribute.String("messaging.consumer.group.name", groupID),
	}
}

func (m *consumerMetrics) addProcessed(ctx context.Context, n int) {
	m.processed.Add(ctx, int64(n), metric.WithAttributes(m.group))
}

func (m *consumerMetrics) addFailed(ctx context.Context, n int) {
	m.failed.Add(ctx, int64(n), metric.WithAttributes(m.group))
}

func (m *consumerMetrics) addDLQ(ctx context.Context, n int) {
	m.dlq.Add(ctx, int64(n), metric.WithAttributes(m.group))
}
