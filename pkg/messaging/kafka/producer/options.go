package producer

import "github.com/confluentinc/confluent-kafka-go/v2/kafka"

type sendOptions struct {
	key       *string
	partition int32
	headers   []kafka.Header
}

// SendOption customises a single send.
type SendOption func(*sendOptions)

// WithKey routes the message by key. Messages with one key keep their order.
func WithKey(key string) SendOption {
	return func(o *sendOptions) {
		o.key = &key
	}
}

// WithPartition overrides key-based routing.
func WithPartition(partition int32) SendOption {
	return func(o *sendOptions) {
		o.partition = partition
	}
}

// WithHeader adds a message header.
func WithHeader(key, value string) SendOption {
	return func(o *sendOptions) {
		o.headers = append(o.headers, kafka.Header{Key: key, Value: []byte(value)})
	}
}

func buildSendOptions(opts []SendOption) sendOptions {
	o := sendOptions{partition: kafka.PartitionAny}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
