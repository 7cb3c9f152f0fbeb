package config

import (
	"fmt"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/core/config"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Brokers  string `mapstructure:"brokers"`
	ClientID string `mapstructure:"client-id"`
	// EnableProducer and EnableConsumer fully disable startup of the bus side
	// so the HTTP surface stays usable when the broker is unreachable.
	EnableProducer *bool `mapstructure:"enable-producer"`
	EnableConsumer *bool `mapstructure:"enable-consumer"`
	// Topics maps a payload domain to its topic.
	Topics map[events.Domain]string `mapstructure:"topics"`
	// DLQTopics maps a payload domain to its dead letter topic.
	DLQTopics map[events.Domain]string `mapstructure:"dlq-topics"`
	Producer  ProducerConfig           `mapstructure:"producer"`
	Consumers ConsumersConfig          `mapstructure:"consumers"`
}

type ProducerConfig struct {
	ClientID                string        `mapstructure:"client-id"`
	Acks                    string        `mapstructure:"acks"`
	Compression             string        `mapstructure:"compression"`
	Retries                 *int          `mapstructure:"retries"` // nil = default, 0 = no retries
	MaxRequestSize          int           `mapstructure:"max-request-size"`
	RequestTimeout          time.Duration `mapstructure:"request-timeout"`
	FlushTimeout            time.Duration `mapstructure:"flush-timeout"`
	ReadinessTimeoutSeconds int           `mapstructure:"readiness-timeout-seconds"` // 0 = no wait
	FailOnBrokerError       *bool         `mapstructure:"fail-on-broker-error"`
}

type ConsumersConfig struct {
	DefaultGroupID         string           `mapstructure:"default-group-id"`
	DefaultAutoOffsetReset string           `mapstructure:"default-auto-offset-reset"`
	DefaultMaxPollRecords  int              `mapstructure:"default-max-poll-records"`
	SessionTimeout         time.Duration    `mapstructure:"session-timeout"`
	HeartbeatInterval      time.Duration    `mapstructure:"heartbeat-interval"`
	PollTimeout            time.Duration    `mapstructure:"poll-timeout"`
	RestartDelay           time.Duration    `mapstructure:"restart-delay"`
	ConsumerConfig         []ConsumerConfig `mapstructure:"consumers"`
}

type ConsumerConfig struct {
	Name string `mapstructure:"name"`
	// Domain selects the default topic, DLQ topic and payload decoding.
	Domain            events.Domain `mapstructure:"domain"`
	Topics            []string      `mapstructure:"topics"`
	GroupID           string        `mapstructure:"group-id"`
	ClientID          string        `mapstructure:"client-id"`
	AutoOffsetReset   string        `mapstructure:"auto-offset-reset"`
	EnableAutoCommit  bool          `mapstructure:"enable-auto-commit"`
	MaxPollRecords    int           `mapstructure:"max-poll-records"`
	Batch             bool          `mapstructure:"batch"`
	SessionTimeout    time.Duration `mapstructure:"session-timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat-interval"`
	PollTimeout       time.Duration `mapstructure:"poll-timeout"`
	RestartDelay      time.Duration `mapstructure:"restart-delay"`
	EnableDLQ         *bool         `mapstructure:"enable-dlq"`
	DLQTopic          string        `mapstructure:"dlq-topic"`
}

// ProducerEnabled reports the enable-producer flag.
func (c Config) ProducerEnabled() bool {
	return c.EnableProducer == nil || *c.EnableProducer
}

// ConsumerEnabled reports the enable-consumer flag.
func (c Config) ConsumerEnabled() bool {
	return c.EnableConsumer == nil || *c.EnableConsumer
}

// Topic returns the configured topic for a domain.
func (c Config) Topic(d events.Domain) string {
	return c.Topics[d]
}

// DLQTopic returns the configured dead letter topic for a domain.
func (c Config) DLQTopic(d events.Domain) string {
	return c.DLQTopics[d]
}

// Consumer returns the consumer configuration with the given name.
func (c Config) Consumer(name string) (ConsumerConfig, bool) {
	for _, cc := range c.Consumers.ConsumerConfig {
		if cc.Name == name {
			return cc, true
		}
	}
	return ConsumerConfig{}, false
}

// DLQEnabled reports whether failed messages are redirected.
func (c ConsumerConfig) DLQEnabled() bool {
	return (c.EnableDLQ == nil || *c.EnableDLQ) && c.DLQTopic != ""
}

func NewKafkaConfigModule() fx.Option {
	return fx.Provide(newConfig)
}

// NewStaticKafkaConfigModule supplies cfg after applying defaults and validation.
func NewStaticKafkaConfigModule(cfg Config) fx.Option {
	return fx.Provide(func(app config.AppConfig, logger *zap.Logger) (Config, error) {
		return finalize(cfg, app, logger)
	})
}

func newConfig(v *viper.Viper, app config.AppConfig, logger *zap.Logger) (Config, error) {
	cfg, err := load(v)
	if err != nil {
		return cfg, err
	}
	return finalize(cfg, app, logger)
}

func load(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("kafka"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load kafka config: %w", err)
		}
	}
	applyEnv(v, &cfg)
	return cfg, nil
}

func finalize(cfg Config, app config.AppConfig, logger *zap.Logger) (Config, error) {
	applyDefaults(&cfg, app.ServiceName)
	if err := validateConfig(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid kafka config: %w", err)
	}

	logger.Info("loaded kafka config",
		zap.String("brokers", cfg.Brokers),
		zap.Bool("producer_enabled", cfg.ProducerEnabled()),
		zap.Bool("consumer_enabled", cfg.ConsumerEnabled()),
		zap.Int("consumers", len(cfg.Consumers.ConsumerConfig)),
	)
	return cfg, nil
}

// applyEnv overlays flat environment variables that viper.Sub does not see.
func applyEnv(v *viper.Viper, cfg *Config) {
	if s := v.GetString("kafka.brokers"); s != "" {
		cfg.Brokers = s
	} else if s := v.GetString("kafka.bootstrap-servers"); s != "" && cfg.Brokers == "" {
		cfg.Brokers = s
	}
	if s := v.GetString("kafka.client-id"); s != "" {
		cfg.ClientID = s
	}
	if v.IsSet("kafka.enable-producer") {
		b := v.GetBool("kafka.enable-producer")
		cfg.EnableProducer = &b
	}
	if v.IsSet("kafka.enable-consumer") {
		b := v.GetBool("kafka.enable-consumer")
		cfg.EnableConsumer = &b
	}
	if s := v.GetString("kafka.consumer-group-id"); s != "" && cfg.Consumers.DefaultGroupID == "" {
		cfg.Consumers.DefaultGroupID = s
	}
	if n := v.GetInt("kafka.batch-size"); n > 0 && cfg.Consumers.DefaultMaxPollRecords == 0 {
		cfg.Consumers.DefaultMaxPollRecords = n
	}
}
