package config

import (
	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/ettle/strcase"
	"github.com/samber/lo"
)

func applyDefaults(cfg *Config, serviceName string) {
	service := strcase.ToKebab(serviceName)

	if cfg.ClientID == "" {
		cfg.ClientID = service
	}
	if cfg.EnableProducer == nil {
		cfg.EnableProducer = lo.ToPtr(true)
	}
	if cfg.EnableConsumer == nil {
		cfg.EnableConsumer = lo.ToPtr(true)
	}

	if cfg.Topics == nil {
		cfg.Topics = make(map[events.Domain]string, len(defaultTopics))
	}
	for d, topic := range defaultTopics {
		if cfg.Topics[d] == "" {
			cfg.Topics[d] = topic
		}
	}
	// notification-dlq, audit-dlq, ...
	if cfg.DLQTopics == nil {
		cfg.DLQTopics = make(map[events.Domain]string, len(events.Domains()))
	}
	for _, d := range events.Domains() {
		if cfg.DLQTopics[d] == "" {
			cfg.DLQTopics[d] = string(d) + "-dlq"
		}
	}

	applyProducerDefaults(&cfg.Producer, cfg.ClientID)
	applyConsumersDefaults(&cfg.Consumers, service)
	for i := range cfg.Consumers.ConsumerConfig {
		applyConsumerDefaults(&cfg.Consumers.ConsumerConfig[i], &cfg.Consumers, cfg)
	}
}

func applyProducerDefaults(p *ProducerConfig, clientID string) {
	if p.ClientID == "" {
		p.ClientID = clientID
	}
	if p.Acks == "" {
		p.Acks = defaultAcks
	}
	if p.Compression == "" {
		p.Compression = defaultCompression
	}
	if p.Retries == nil {
		p.Retries = lo.ToPtr(defaultRetries)
	}
	if p.MaxRequestSize == 0 {
		p.MaxRequestSize = defaultMaxRequestSize
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = defaultRequestTimeout
	}
	if p.FlushTimeout == 0 {
		p.FlushTimeout = defaultFlushTimeout
	}
	if p.ReadinessTimeoutSeconds == 0 {
		p.ReadinessTimeoutSeconds = defaultProducerReadinessTimeout
	}
	if p.FailOnBrokerError == nil {
		// degraded start: log and keep serving HTTP
		p.FailOnBrokerError = lo.ToPtr(false)
	}
}

func applyConsumersDefaults(c *ConsumersConfig, service string) {
	if c.DefaultGroupID == "" && service != "" {
		c.DefaultGroupID = service + "-group"
	}
	if c.DefaultAutoOffsetReset == "" {
		c.DefaultAutoOffsetReset = defaultAutoOffsetReset
	}
	if c.DefaultMaxPollRecords == 0 {
		c.DefaultMaxPollRecords = defaultMaxPollRecords
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = defaultSessionTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = defaultPollTimeout
	}
	if c.RestartDelay == 0 {
		c.RestartDelay = defaultRestartDelay
	}
}

func applyConsumerDefaults(consumer *ConsumerConfig, global *ConsumersConfig, cfg *Config) {
	if len(consumer.Topics) == 0 && consumer.Domain != "" {
		if topic := cfg.Topics[consumer.Domain]; topic != "" {
			consumer.Topics = []string{topic}
		}
	}
	consumer.Topics = lo.Uniq(consumer.Topics)
	if consumer.GroupID == "" {
		consumer.GroupID = global.DefaultGroupID
	}
	if consumer.ClientID == "" {
		consumer.ClientID = consumer.GroupID + "-client"
	}
	if consumer.AutoOffsetReset == "" {
		consumer.AutoOffsetReset = global.DefaultAutoOffsetReset
	}
	if consumer.MaxPollRecords == 0 {
		consumer.MaxPollRecords = global.DefaultMaxPollRecords
	}
	if consumer.SessionTimeout == 0 {
		consumer.SessionTimeout = global.SessionTimeout
	}
	if consumer.HeartbeatInterval == 0 {
		consumer.HeartbeatInterval = global.HeartbeatInterval
	}
	if consumer.PollTimeout == 0 {
		consumer.PollTimeout = global.PollTimeout
	}
	if consumer.RestartDelay == 0 {
		consumer.RestartDelay = global.RestartDelay
	}
	if consumer.EnableDLQ == nil {
		consumer.EnableDLQ = lo.ToPtr(true)
	}
	if *consumer.EnableDLQ && consumer.DLQTopic == "" && consumer.Domain != "" {
		consumer.DLQTopic = cfg.DLQTopics[consumer.Domain]
	}
}
