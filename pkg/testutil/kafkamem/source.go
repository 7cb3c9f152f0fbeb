package kafkamem

import (
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const idleStep = time.Millisecond

type source struct {
	broker   *Broker
	group    string
	earliest bool

	mu        sync.Mutex
	topics    []string
	positions map[partitionKey]kafka.Offset
	next      int
	closed    bool
}

func newSource(b *Broker, cm *kafka.ConfigMap) (*source, error) {
	group, err := cm.Get("group.id", "")
	if err != nil {
		return nil, err
	}
	if group == "" {
		return nil, kafka.NewError(kafka.ErrInvalidArg, "group.id is required", false)
	}
	reset, err := cm.Get("auto.offset.reset", "earliest")
	if err != nil {
		return nil, err
	}
	return &source{
		broker:    b,
		group:     fmt.Sprint(group),
		earliest:  reset != "latest",
		positions: make(map[partitionKey]kafka.Offset),
	}, nil
}

func (s *source) SubscribeTopics(topics []string, _ kafka.RebalanceCb) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append([]string(nil), topics...)
	return nil
}

func (s *source) ReadMessage(timeout time.Duration) (*kafka.Message, error) {
	deadline := time.Now().Add(timeout)
	for {
		msg, err := s.tryRead()
		if msg != nil || err != nil {
			return msg, err
		}
		if !time.Now().Before(deadline) {
			return nil, kafka.NewError(kafka.ErrTimedOut, "timed out", false)
		}
		time.Sleep(idleStep)
	}
}

func (s *source) tryRead() (*kafka.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, kafka.NewError(kafka.ErrFatal, "consumer closed", true)
	}

	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	var keys []partitionKey
	for _, topic := range s.topics {
		logs := s.broker.topicLogs(topic)
		for p := range logs {
			keys = append(keys, partitionKey{topic, int32(p)})
		}
	}
	for i := range keys {
		key := keys[(s.next+i)%len(keys)]
		log := s.broker.logs[key.topic][key.partition]
		pos := s.position(key, len(log))
		if int(pos) >= len(log) {
			continue
		}
		s.positions[key] = pos + 1
		s.next = (s.next + i + 1) % len(keys)
		s.broker.delivered[s.group]++
		m := *log[pos]
		return &m, nil
	}
	return nil, nil
}

// position must be called with both locks held.
func (s *source) position(key partitionKey, logLen int) kafka.Offset {
	if pos, ok := s.positions[key]; ok {
		return pos
	}
	pos, ok := s.broker.committed[groupKey{s.group, key}]
	if !ok {
		pos = 0
		if !s.earliest {
			pos = kafka.Offset(logLen)
		}
	}
	s.positions[key] = pos
	return pos
}

func (s *source) CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error) {
	tp := m.TopicPartition
	tp.Offset++
	return s.CommitOffsets([]kafka.TopicPartition{tp})
}

func (s *source) CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, kafka.NewError(kafka.ErrFatal, "consumer closed", true)
	}
	for _, tp := range offsets {
		s.broker.commit(s.group, tp)
	}
	return offsets, nil
}

func (s *source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
