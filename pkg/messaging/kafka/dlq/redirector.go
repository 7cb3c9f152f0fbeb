package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/tracing"
	"github.com/ettle/strcase"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrNotDelivered is returned when the broker did not acknowledge a record.
var ErrNotDelivered = errors.New("dead letter record not delivered")

// Redirector writes failed events to one dead letter topic. Every call opens
// its own short-lived producer, separate from the service's shared one.
type Redirector struct {
	topic    string
	service  string
	clientID string
	factory  *producer.Factory
	now      func() time.Time
	log      *zap.Logger
}

func NewRedirector(topic, service string, factory *producer.Factory, log *zap.Logger) *Redirector {
	return &Redirector{
		topic:    topic,
		service:  service,
		clientID: strcase.ToKebab(service) + "-dlq-producer",
		factory:  factory,
		now:      time.Now,
		log:      log.With(zap.String("dlq_topic", topic)),
	}
}

// Topic returns the dead letter topic.
func (r *Redirector) Topic() string {
	return r.topic
}

// Message sends one record for a failed event.
func (r *Redirector) Message(ctx context.Context, raw json.RawMessage, cause error) error {
	r.log.Warn("sending failed event to dead letter queue", zap.Error(cause))
	return r.send(ctx, []Record{NewRecord(raw, cause, r.service, r.now())})
}

// Batch sends one record per event of a failed batch.
func (r *Redirector) Batch(ctx context.Context, raws []json.RawMessage, cause error) error {
	if len(raws) == 0 {
		return nil
	}
	r.log.Warn("sending failed batch to dead letter queue", zap.Int("batch_size", len(raws)), zap.Error(cause))
	now := r.now()
	records := make([]Record, len(raws))
	for i, raw := range raws {
		records[i] = NewRecord(raw, cause, r.service, now)
	}
	return r.send(ctx, records)
}

func (r *Redirector) send(ctx context.Context, records []Record) (err error) {
	ctx, span := tracing.StartDLQ(ctx, r.topic, len(records))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "dead letter write failed")
		}
		span.End()
	}()

	p := r.factory.NewWithClientID(r.clientID)
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start dead letter producer: %w", err)
	}
	defer func() {
		if stopErr := p.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			r.log.Warn("dead letter producer did not stop cleanly", zap.Error(stopErr))
		}
	}()

	failed := 0
	for _, rec := range records {
		if !p.SendRaw(ctx, r.topic, rec) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d records: %w", failed, len(records), ErrNotDelivered)
	}
	r.log.Info("failed events sent to dead letter queue", zap.Int("records", len(records)))
	return nil
}
