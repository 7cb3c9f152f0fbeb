// Package tracing carries OpenTelemetry context across Kafka message headers.
package tracing

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Sokol111/hrms-commons/pkg/messaging/kafka"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Extract returns ctx enriched with the trace context found in message headers.
func Extract(ctx context.Context, message *kafka.Message) context.Context {
	if len(message.Headers) == 0 {
		return ctx
	}
	carrier := propagation.MapCarrier(headerMap(message.Headers))
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// Inject writes the trace context of ctx into message headers, keeping existing ones.
func Inject(ctx context.Context, message *kafka.Message) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for key, value := range carrier {
		SetHeader(message, key, value)
	}
}

// SetHeader replaces or appends a header.
func SetHeader(message *kafka.Message, key, value string) {
	for i := range message.Headers {
		if message.Headers[i].Key == key {
			message.Headers[i].Value = []byte(value)
			return
		}
	}
	message.Headers = append(message.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

// Header returns the value of the first header with key.
func Header(message *kafka.Message, key string) (string, bool) {
	for _, h := range message.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

func headerMap(headers []kafka.Header) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Key] = string(h.Value)
	}
	return m
}

func topicOf(message *kafka.Message) string {
	if message.TopicPartition.Topic == nil {
		return ""
	}
	return *message.TopicPartition.Topic
}

// StartProduce opens a producer span for message.
func StartProduce(ctx context.Context, message *kafka.Message) (context.Context, trace.Span) {
	return tracer().Start(ctx, "kafka.produce",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", topicOf(message)),
			attribute.String("messaging.message.key", string(message.Key)),
		),
	)
}

// StartConsume opens a consumer span for message.
func StartConsume(ctx context.Context, message *kafka.Message) (context.Context, trace.Span) {
	return tracer().Start(ctx, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", topicOf(message)),
			attribute.Int("messaging.partition", int(message.TopicPartition.Partition)),
			attribute.Int64("messaging.offset", int64(message.TopicPartition.Offset)),
			attribute.String("messaging.message.key", string(message.Key)),
		),
	)
}

// StartConsumeBatch opens a consumer span covering a whole batch.
func StartConsumeBatch(ctx context.Context, topics []string, size int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "kafka.consume_batch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.StringSlice("messaging.destinations", topics),
			attribute.Int("messaging.batch.message_count", size),
		),
	)
}

// StartDLQ opens a span for redirecting failed records to dlqTopic.
func StartDLQ(ctx context.Context, dlqTopic string, records int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "kafka.send_to_dlq",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", dlqTopic),
			attribute.Int("messaging.batch.message_count", records),
		),
	)
}
