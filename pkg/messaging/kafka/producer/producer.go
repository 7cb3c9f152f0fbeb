package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/tracing"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	// ErrStopped is returned by Start on a producer that was already stopped.
	ErrStopped = errors.New("producer stopped")
	// ErrNotStarted is returned by Flush before Start.
	ErrNotStarted = errors.New("producer not started")
)

const (
	HeaderEventID     = "event-id"
	HeaderEventType   = "event-type"
	HeaderContentType = "content-type"
)

type state int

const (
	stateUninitialized state = iota
	stateStarted
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateStarted:
		return "started"
	case stateStopped:
		return "stopped"
	}
	return "uninitialized"
}

// Producer owns one outbound bus connection for its lifetime:
// Uninitialized -> Started -> Stopped.
// Sends never panic and never return errors; a false result means the
// message was not acknowledged and the caller decides what to do next.
type Producer struct {
	mu     sync.RWMutex
	state  state
	client Client

	configMap *kafka.ConfigMap
	cfg       config.ProducerConfig
	newClient ClientFactory
	inflight  sync.WaitGroup
	metrics   *producerMetrics
	log       *zap.Logger
}

func New(brokers string, cfg config.ProducerConfig, newClient ClientFactory, log *zap.Logger) *Producer {
	return &Producer{
		configMap: ConfigMap(brokers, cfg),
		cfg:       cfg,
		newClient: newClient,
		metrics:   newProducerMetrics(),
		log:       log.With(zap.String("client_id", cfg.ClientID)),
	}
}

// Start opens the connection and waits, bounded, for broker metadata.
// Calling Start on a started producer logs a warning and returns nil.
func (p *Producer) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateStarted:
		p.log.Warn("producer already started")
		return nil
	case stateStopped:
		return ErrStopped
	}

	client, err := p.newClient(p.configMap)
	if err != nil {
		return fmt.Errorf("failed to create kafka producer %s: %w", describe(p.configMap), err)
	}

	failOnError := p.cfg.FailOnBrokerError != nil && *p.cfg.FailOnBrokerError
	if err := waitForBrokers(ctx, client, p.log, p.cfg.ReadinessTimeoutSeconds, failOnError); err != nil {
		client.Close()
		return fmt.Errorf("kafka brokers unavailable: %w", err)
	}

	p.client = client
	p.state = stateStarted
	p.log.Info("producer started",
		zap.String("acks", p.cfg.Acks),
		zap.String("compression", p.cfg.Compression),
	)
	return nil
}

// IsStarted reports whether sends are currently accepted.
func (p *Producer) IsStarted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state == stateStarted
}

// SendEvent serialises env and waits for the broker acknowledgement.
// The default key is the payload's resource id.
func (p *Producer) SendEvent(ctx context.Context, topic string, env *events.Envelope, opts ...SendOption) bool {
	if env == nil {
		p.log.Error("refusing to send nil event", zap.String("topic", topic))
		return false
	}
	fields := []zap.Field{
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType.String()),
	}

	value, err := json.Marshal(env)
	if err != nil {
		p.log.Error("failed to serialize event", append(fields, zap.String("topic", topic), zap.Error(err))...)
		return false
	}

	o := buildSendOptions(opts)
	if o.key == nil {
		if key := env.Key(); key != "" {
			o.key = &key
		}
	}
	o.headers = append(o.headers,
		kafka.Header{Key: HeaderEventID, Value: []byte(env.EventID)},
		kafka.Header{Key: HeaderEventType, Value: []byte(env.EventType)},
	)

	return p.send(ctx, topic, value, o, fields)
}

// SendRaw sends an arbitrary JSON value without envelope typing.
// []byte and json.RawMessage values are sent as is.
func (p *Producer) SendRaw(ctx context.Context, topic string, value any, opts ...SendOption) bool {
	var payload []byte
	switch v := value.(type) {
	case []byte:
		payload = v
	case json.RawMessage:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			p.log.Error("failed to serialize raw value", zap.String("topic", topic), zap.Error(err))
			return false
		}
		payload = b
	}
	return p.send(ctx, topic, payload, buildSendOptions(opts), nil)
}

func (p *Producer) send(ctx context.Context, topic string, value []byte, o sendOptions, fields []zap.Field) bool {
	log := p.log.With(append(fields, zap.String("topic", topic))...)

	p.mu.RLock()
	if p.state != stateStarted {
		current := p.state
		p.mu.RUnlock()
		log.Warn("send rejected: producer not running", zap.Stringer("state", current))
		return false
	}
	client := p.client
	p.inflight.Add(1)
	p.mu.RUnlock()
	defer p.inflight.Done()

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: o.partition},
		Value:          value,
		Headers:        append(o.headers, kafka.Header{Key: HeaderContentType, Value: []byte("application/json")}),
	}
	if o.key != nil {
		msg.Key = []byte(*o.key)
	}

	ctx, span := tracing.StartProduce(ctx, msg)
	defer span.End()
	tracing.Inject(ctx, msg)

	ok := p.produce(ctx, client, msg, log)
	if !ok {
		span.SetStatus(codes.Error, "delivery failed")
	}
	p.metrics.record(ctx, topic, ok)
	return ok
}

func (p *Producer) produce(ctx context.Context, client Client, msg *kafka.Message, log *zap.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while producing message", zap.Any("panic", r))
			ok = false
		}
	}()

	deliveryChan := make(chan kafka.Event, 1)
	if err := client.Produce(msg, deliveryChan); err != nil {
		log.Error("failed to enqueue message", zap.Error(err))
		return false
	}

	select {
	case e := <-deliveryChan:
		m, isMsg := e.(*kafka.Message)
		if !isMsg {
			log.Error("unexpected delivery event", zap.Stringer("event", e))
			return false
		}
		if m.TopicPartition.Error != nil {
			log.Error("message delivery failed", zap.Error(m.TopicPartition.Error))
			return false
		}
		log.Debug("message delivered",
			zap.Int32("partition", m.TopicPartition.Partition),
			zap.Int64("offset", int64(m.TopicPartition.Offset)),
		)
		return true
	case <-ctx.Done():
		log.Error("gave up waiting for delivery report", zap.Error(ctx.Err()))
		return false
	}
}

// Flush blocks until queued messages are delivered or failed, ctx ends, or the
// configured flush timeout passes.
func (p *Producer) Flush(ctx context.Context) error {
	p.mu.RLock()
	client := p.client
	started := p.state == stateStarted
	p.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	return p.flush(ctx, client)
}

func (p *Producer) flush(ctx context.Context, client Client) error {
	if p.cfg.FlushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.FlushTimeout)
		defer cancel()
	}

	step := int((100 * time.Millisecond).Milliseconds())
	for {
		remaining := client.Flush(step)
		if remaining == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%d messages still queued: %w", remaining, err)
		}
	}
}

// Stop flushes in-flight sends and closes the connection. It is idempotent and
// safe on a producer that was never started.
func (p *Producer) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state != stateStarted {
		p.state = stateStopped
		p.mu.Unlock()
		return nil
	}
	p.state = stateStopped
	client := p.client
	p.client = nil
	p.mu.Unlock()

	err := p.flush(ctx, client)
	if err != nil {
		p.log.Warn("flush before close incomplete", zap.Error(err))
	}
	p.waitInflight(ctx)
	client.Close()

	p.log.Info("producer stopped")
	return err
}

func (p *Producer) waitInflight(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.log.Warn("closing producer with sends awaiting delivery reports")
	}
}
