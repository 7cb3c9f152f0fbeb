package producer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type producerMetrics struct {
	sent   metric.Int64Counter
	failed metric.Int64Counter
}

func newProducerMetrics() *producerMetrics {
	meter := otel.Meter("github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer")
	sent, _ := meter.Int64Counter("messaging.producer.sent",
		metric.WithDescription("Messages acknowledged by the broker"))
	failed, _ := meter.Int64Counter("messaging.producer.failed",
		metric.WithDescription("Messages that could not be delivered"))
	return &producerMetrics{sent: sent, failed: failed}
}

func (m *producerMetrics) record(ctx context.Context, topic string, ok bool) {
	attrs := metric.WithAttributes(attribute.String("messaging.destination", topic))
	if ok {
		m.sent.Add(ctx, 1, attrs)
	} else {
		m.failed.Add(ctx, 1, attrs)
	}
}
