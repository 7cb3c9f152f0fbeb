package config

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

func validateConfig(cfg *Config) error {
	if err := validateBrokers(cfg); err != nil {
		return err
	}
	if err := validateProducerConfig(&cfg.Producer); err != nil {
		return err
	}
	names := make(map[string]struct{}, len(cfg.Consumers.ConsumerConfig))
	for i := range cfg.Consumers.ConsumerConfig {
		consumer := &cfg.Consumers.ConsumerConfig[i]
		if err := validateConsumer(i, consumer); err != nil {
			return err
		}
		if _, dup := names[consumer.Name]; dup {
			return fmt.Errorf("consumer[%d] (%s): duplicate consumer name", i, consumer.Name)
		}
		names[consumer.Name] = struct{}{}
	}
	return nil
}

func validateBrokers(cfg *Config) error {
	if !cfg.ProducerEnabled() && !cfg.ConsumerEnabled() {
		return nil
	}
	if strings.TrimSpace(cfg.Brokers) == "" {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	return nil
}

func validateProducerConfig(cfg *ProducerConfig) error {
	if !lo.Contains(validAcks, cfg.Acks) {
		return fmt.Errorf("producer acks must be one of %v, got: %s", validAcks, cfg.Acks)
	}
	if !lo.Contains(validCompression, cfg.Compression) {
		return fmt.Errorf("producer compression must be one of %v, got: %s", validCompression, cfg.Compression)
	}
	if lo.FromPtr(cfg.Retries) < 0 {
		return fmt.Errorf("producer retries cannot be negative, got: %d", *cfg.Retries)
	}
	if cfg.ReadinessTimeoutSeconds > maxReadinessTimeout {
		return fmt.Errorf("producer readiness timeout cannot exceed %d seconds, got: %d",
			maxReadinessTimeout, cfg.ReadinessTimeoutSeconds)
	}
	return nil
}

func validateConsumer(index int, consumer *ConsumerConfig) error {
	if strings.TrimSpace(consumer.Name) == "" {
		return fmt.Errorf("consumer[%d]: name cannot be empty", index)
	}
	if consumer.Domain != "" && !consumer.Domain.IsValid() {
		return fmt.Errorf("consumer[%d] (%s): unknown domain %q", index, consumer.Name, consumer.Domain)
	}
	if len(consumer.Topics) == 0 {
		return fmt.Errorf("consumer[%d] (%s): topics cannot be empty", index, consumer.Name)
	}
	if strings.TrimSpace(consumer.GroupID) == "" {
		return fmt.Errorf("consumer[%d] (%s): group id cannot be empty", index, consumer.Name)
	}
	if !lo.Contains(validAutoOffsetReset, consumer.AutoOffsetReset) {
		return fmt.Errorf("consumer[%d] (%s): auto offset reset must be 'earliest' or 'latest', got: %s",
			index, consumer.Name, consumer.AutoOffsetReset)
	}
	if consumer.MaxPollRecords < 1 || consumer.MaxPollRecords > maxPollRecordsLimit {
		return fmt.Errorf("consumer[%d] (%s): max poll records must be between 1 and %d, got: %d",
			index, consumer.Name, maxPollRecordsLimit, consumer.MaxPollRecords)
	}
	if consumer.HeartbeatInterval >= consumer.SessionTimeout {
		return fmt.Errorf("consumer[%d] (%s): heartbeat interval (%v) must be lower than session timeout (%v)",
			index, consumer.Name, consumer.HeartbeatInterval, consumer.SessionTimeout)
	}
	if consumer.DLQTopic != "" && lo.Contains(consumer.Topics, consumer.DLQTopic) {
		return fmt.Errorf("consumer[%d] (%s): DLQ topic cannot be one of the consumed topics", index, consumer.Name)
	}
	return nil
}
