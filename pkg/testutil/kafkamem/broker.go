// Package kafkamem is an in-memory partitioned broker for tests. It plugs into
// the producer and consumer through their client seams and keeps committed
// offsets per consumer group, so redelivery after a crash can be observed.
package kafkamem

import (
	"hash/fnv"
	"sync"

	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/consumer"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type partitionKey struct {
	topic     string
	partition int32
}

type groupKey struct {
	group string
	partitionKey
}

// Broker holds topic logs and committed group offsets.
type Broker struct {
	mu          sync.Mutex
	partitions  int32
	logs        map[string][][]*kafka.Message
	committed   map[groupKey]kafka.Offset
	delivered   map[string]int
	unavailable bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithPartitions sets the partition count of every topic. Default 1.
func WithPartitions(n int32) Option {
	return func(b *Broker) {
		if n > 0 {
			b.partitions = n
		}
	}
}

func New(opts ...Option) *Broker {
	b := &Broker{
		partitions: 1,
		logs:       make(map[string][][]*kafka.Message),
		committed:  make(map[groupKey]kafka.Offset),
		delivered:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ClientFactory returns a producer client factory backed by b.
func (b *Broker) ClientFactory() producer.ClientFactory {
	return func(*kafka.ConfigMap) (producer.Client, error) {
		return &client{broker: b}, nil
	}
}

// SourceFactory returns a consumer source factory backed by b.
func (b *Broker) SourceFactory() consumer.SourceFactory {
	return func(cm *kafka.ConfigMap) (consumer.Source, error) {
		return newSource(b, cm)
	}
}

// SetUnavailable makes every produce fail with a delivery error.
func (b *Broker) SetUnavailable(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unavailable = down
}

// Messages returns every message of topic, partition by partition.
func (b *Broker) Messages(topic string) []*kafka.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*kafka.Message
	for _, log := range b.logs[topic] {
		out = append(out, log...)
	}
	return out
}

// Committed returns the next offset group will read from the partition, or
// kafka.OffsetInvalid when nothing was committed.
func (b *Broker) Committed(group, topic string, partition int32) kafka.Offset {
	b.mu.Lock()
	defer b.mu.Unlock()
	off, ok := b.committed[groupKey{group, partitionKey{topic, partition}}]
	if !ok {
		return kafka.OffsetInvalid
	}
	return off
}

// Delivered returns how many messages sources of group have read, including
// redeliveries.
func (b *Broker) Delivered(group string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delivered[group]
}

func (b *Broker) topicLogs(topic string) [][]*kafka.Message {
	logs, ok := b.logs[topic]
	if !ok {
		logs = make([][]*kafka.Message, b.partitions)
		b.logs[topic] = logs
	}
	return logs
}

func (b *Broker) partitionFor(msg *kafka.Message) int32 {
	if p := msg.TopicPartition.Partition; p >= 0 && p < b.partitions {
		return p
	}
	if len(msg.Key) == 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(msg.Key)
	return int32(h.Sum32() % uint32(b.partitions))
}

func (b *Broker) append(msg *kafka.Message) (*kafka.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unavailable {
		return nil, kafka.NewError(kafka.ErrAllBrokersDown, "in-memory broker unavailable", false)
	}

	topic := *msg.TopicPartition.Topic
	partition := b.partitionFor(msg)
	logs := b.topicLogs(topic)

	stored := *msg
	stored.TopicPartition = kafka.TopicPartition{
		Topic:     &topic,
		Partition: partition,
		Offset:    kafka.Offset(len(logs[partition])),
	}
	stored.Value = append([]byte(nil), msg.Value...)
	stored.Headers = append([]kafka.Header(nil), msg.Headers...)
	logs[partition] = append(logs[partition], &stored)
	return &stored, nil
}

func (b *Broker) commit(group string, tp kafka.TopicPartition) {
	if tp.Topic == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.committed[groupKey{group, partitionKey{*tp.Topic, tp.Partition}}] = tp.Offset
}
