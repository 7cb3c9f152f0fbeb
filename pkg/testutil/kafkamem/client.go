package kafkamem

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type client struct {
	broker *Broker
}

func (c *client) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	if msg.TopicPartition.Topic == nil {
		return kafka.NewError(kafka.ErrInvalidArg, "topic is required", false)
	}

	stored, err := c.broker.append(msg)
	report := *msg
	if err != nil {
		report.TopicPartition.Error = err
	} else {
		report.TopicPartition = stored.TopicPartition
	}
	if deliveryChan != nil {
		deliveryChan <- &report
	}
	return nil
}

func (c *client) Flush(int) int {
	return 0
}

func (c *client) Close() {}

func (c *client) GetMetadata(*string, bool, int) (*kafka.Metadata, error) {
	return &kafka.Metadata{
		Brokers: []kafka.BrokerMetadata{{ID: 1, Host: "memory", Port: 9092}},
	}, nil
}
