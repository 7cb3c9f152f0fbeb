package kafkamem

import (
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func produce(t *testing.T, b *Broker, topic, key, value string) kafka.TopicPartition {
	t.Helper()
	c, err := b.ClientFactory()(&kafka.ConfigMap{})
	require.NoError(t, err)
	ch := make(chan kafka.Event, 1)
	require.NoError(t, c.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          []byte(value),
	}, ch))
	m := (<-ch).(*kafka.Message)
	require.NoError(t, m.TopicPartition.Error)
	return m.TopicPartition
}

func TestBroker_KeyedMessagesShareAPartition(t *testing.T) {
	b := New(WithPartitions(4))

	first := produce(t, b, "leave-queue", "42", "a")
	second := produce(t, b, "leave-queue", "42", "b")

	assert.Equal(t, first.Partition, second.Partition)
	assert.Equal(t, first.Offset+1, second.Offset)
}

func TestBroker_GroupsReadIndependently(t *testing.T) {
	b := New()
	produce(t, b, "leave-queue", "1", "a")

	for _, group := range []string{"g1", "g2"} {
		src, err := b.SourceFactory()(&kafka.ConfigMap{"group.id": group, "auto.offset.reset": "earliest"})
		require.NoError(t, err)
		require.NoError(t, src.SubscribeTopics([]string{"leave-queue"}, nil))

		m, err := src.ReadMessage(10 * time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "a", string(m.Value))

		_, err = src.CommitMessage(m)
		require.NoError(t, err)
		require.NoError(t, src.Close())
		assert.Equal(t, kafka.Offset(1), b.Committed(group, "leave-queue", 0))
	}
	assert.Equal(t, 1, b.Delivered("g1"))
}

func TestBroker_UncommittedMessageIsRedelivered(t *testing.T) {
	b := New()
	produce(t, b, "audit-queue", "1", "a")
	cm := &kafka.ConfigMap{"group.id": "audit", "auto.offset.reset": "earliest"}

	crashed, err := b.SourceFactory()(cm)
	require.NoError(t, err)
	require.NoError(t, crashed.SubscribeTopics([]string{"audit-queue"}, nil))
	_, err = crashed.ReadMessage(10 * time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, crashed.Close())

	resumed, err := b.SourceFactory()(cm)
	require.NoError(t, err)
	require.NoError(t, resumed.SubscribeTopics([]string{"audit-queue"}, nil))
	m, err := resumed.ReadMessage(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "a", string(m.Value))
}

func TestBroker_LatestSkipsHistoryAndTimesOut(t *testing.T) {
	b := New()
	produce(t, b, "leave-queue", "1", "old")

	src, err := b.SourceFactory()(&kafka.ConfigMap{"group.id": "late", "auto.offset.reset": "latest"})
	require.NoError(t, err)
	require.NoError(t, src.SubscribeTopics([]string{"leave-queue"}, nil))

	_, err = src.ReadMessage(5 * time.Millisecond)
	var kerr kafka.Error
	require.ErrorAs(t, err, &kerr)
	assert.True(t, kerr.IsTimeout())
}

func TestBroker_Unavailable(t *testing.T) {
	b := New()
	b.SetUnavailable(true)
	c, err := b.ClientFactory()(&kafka.ConfigMap{})
	require.NoError(t, err)

	topic := "leave-queue"
	ch := make(chan kafka.Event, 1)
	require.NoError(t, c.Produce(&kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic}}, ch))

	m := (<-ch).(*kafka.Message)
	assert.Error(t, m.TopicPartition.Error)
	assert.Empty(t, b.Messages(topic))
}
