package dlq_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/dlq"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"github.com/Sokol111/hrms-commons/pkg/testutil/kafkamem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ValueError struct{ msg string }

func (e ValueError) Error() string { return e.msg }

func newFactory(broker *kafkamem.Broker) *producer.Factory {
	conf := config.Config{
		Brokers: "memory:9092",
		Producer: config.ProducerConfig{
			ClientID:     "notification-service",
			Acks:         "1",
			Compression:  "none",
			FlushTimeout: time.Second,
		},
	}
	return producer.NewFactory(conf, broker.ClientFactory(), zap.NewNop())
}

func decodeRecords(t *testing.T, broker *kafkamem.Broker, topic string) []dlq.Record {
	t.Helper()
	var out []dlq.Record
	for _, m := range broker.Messages(topic) {
		var rec dlq.Record
		require.NoError(t, json.Unmarshal(m.Value, &rec))
		out = append(out, rec)
	}
	return out
}

func TestRedirector_Message(t *testing.T) {
	broker := kafkamem.New()
	r := dlq.NewRedirector("notification-dlq", "Notification Service", newFactory(broker), zap.NewNop())

	err := r.Message(context.Background(), json.RawMessage(`{"event_id":"e-1"}`), ValueError{msg: "boom"})

	require.NoError(t, err)
	records := decodeRecords(t, broker, "notification-dlq")
	require.Len(t, records, 1)
	assert.Equal(t, "boom", records[0].Error)
	assert.Equal(t, "ValueError", records[0].ErrorType)
	assert.Equal(t, "Notification Service", records[0].Service)
	assert.JSONEq(t, `{"event_id":"e-1"}`, string(records[0].OriginalEvent))
}

func TestRedirector_BatchWritesOneRecordPerEvent(t *testing.T) {
	broker := kafkamem.New()
	r := dlq.NewRedirector("audit-dlq", "audit-service", newFactory(broker), zap.NewNop())

	raws := []json.RawMessage{
		json.RawMessage(`{"event_id":"a"}`),
		json.RawMessage(`{"event_id":"b"}`),
		json.RawMessage(`{"event_id":"c"}`),
	}
	require.NoError(t, r.Batch(context.Background(), raws, ValueError{msg: "insert failed"}))

	records := decodeRecords(t, broker, "audit-dlq")
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.JSONEq(t, string(raws[i]), string(rec.OriginalEvent))
		assert.Equal(t, "insert failed", rec.Error)
	}
}

func TestRedirector_EmptyBatch(t *testing.T) {
	broker := kafkamem.New()
	r := dlq.NewRedirector("audit-dlq", "audit-service", newFactory(broker), zap.NewNop())

	require.NoError(t, r.Batch(context.Background(), nil, ValueError{msg: "x"}))
	assert.Empty(t, broker.Messages("audit-dlq"))
}

func TestRedirector_BrokerDown(t *testing.T) {
	broker := kafkamem.New()
	broker.SetUnavailable(true)
	r := dlq.NewRedirector("notification-dlq", "notification-service", newFactory(broker), zap.NewNop())

	err := r.Message(context.Background(), json.RawMessage(`{}`), ValueError{msg: "boom"})

	assert.ErrorIs(t, err, dlq.ErrNotDelivered)
}
