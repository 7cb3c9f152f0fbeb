package consumer

import (
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// pollFault classifies an error returned by ReadMessage.
type pollFault struct {
	err error
	// key groups repeated warnings for throttling; empty for silent faults.
	key         string
	description string
	// retryIn is how long the loop waits before reading again. Negative
	// means the fault ends the loop.
	retryIn time.Duration
}

func (f *pollFault) Error() string {
	if f.description != "" {
		return fmt.Sprintf("%s: %v", f.description, f.err)
	}
	return f.err.Error()
}

func (f *pollFault) Unwrap() error {
	return f.err
}

// silent faults are expected on an idle topic.
func (f *pollFault) silent() bool { return f.key == "" && f.retryIn == 0 }

func (f *pollFault) fatal() bool { return f.retryIn < 0 }

type faultClass struct {
	key         string
	description string
	retryIn     time.Duration
}

var faultClasses = map[kafka.ErrorCode]faultClass{
	kafka.ErrUnknownTopicOrPart:    {"topic_not_found", "topic not available, waiting for topic creation", time.Second},
	kafka.ErrUnknownTopic:          {"topic_not_found", "topic not available, waiting for topic creation", time.Second},
	kafka.ErrTransport:             {"broker_connection", "broker connection issue, retrying", time.Second},
	kafka.ErrAllBrokersDown:        {"broker_connection", "broker connection issue, retrying", time.Second},
	kafka.ErrNetworkException:      {"broker_connection", "broker connection issue, retrying", time.Second},
	kafka.ErrLeaderNotAvailable:    {"leader_election", "partition leader changing, retrying", 250 * time.Millisecond},
	kafka.ErrNotLeaderForPartition: {"leader_election", "partition leader changing, retrying", 250 * time.Millisecond},
	// A batch handler outlived max.poll.interval; the next read rejoins the group.
	kafka.ErrMaxPollExceeded: {"max_poll_exceeded", "handler exceeded max poll interval, rejoining group", time.Millisecond},
}

func classifyPollError(err error) *pollFault {
	if err == nil {
		return nil
	}

	var kafkaErr kafka.Error
	if !errors.As(err, &kafkaErr) {
		return &pollFault{err: err, key: "non_kafka_error", description: "non-Kafka error occurred", retryIn: -1}
	}
	if kafkaErr.IsTimeout() {
		return &pollFault{err: err}
	}
	if kafkaErr.IsFatal() {
		return &pollFault{err: err, description: "fatal kafka error - consumer instance is no longer operable", retryIn: -1}
	}
	if class, ok := faultClasses[kafkaErr.Code()]; ok {
		return &pollFault{err: err, key: class.key, description: class.description, retryIn: class.retryIn}
	}
	if kafkaErr.IsRetriable() {
		return &pollFault{err: err, key: "retriable_error", description: "retriable kafka error, retrying", retryIn: 500 * time.Millisecond}
	}
	return &pollFault{err: err, key: "unknown_error", description: "unknown kafka error", retryIn: -1}
}
