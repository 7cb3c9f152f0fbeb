package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned by Consume and ConsumeBatch before Start.
	ErrNotStarted = errors.New("consumer not started")
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("consumer stopped")
	// ErrAlreadyRunning is returned when a pull loop is already active.
	ErrAlreadyRunning = errors.New("consumer loop already running")
)

const throttleInterval = 30 * time.Second

type state int

const (
	stateUninitialized state = iota
	stateStarted
	stateStopped
)

// Consumer pulls events for one consumer group and delivers them to a
// handler, committing offsets manually after each message or batch.
// Lifecycle: Uninitialized -> Started -> Stopped.
type Consumer struct {
	mu     sync.Mutex
	state  state
	source Source

	running atomic.Bool
	loops   sync.WaitGroup

	brokers   string
	cfg       config.ConsumerConfig
	newSource SourceFactory
	decode    events.Decoder
	metrics   *consumerMetrics
	throttler *logger.LogThrottler
	log       *zap.Logger
}

// Option customises a Consumer.
type Option func(*Consumer)

// WithDecoder overrides how message values are turned into envelopes.
func WithDecoder(d events.Decoder) Option {
	return func(c *Consumer) {
		c.decode = d
	}
}

func New(brokers string, cfg config.ConsumerConfig, newSource SourceFactory, log *zap.Logger, opts ...Option) *Consumer {
	log = log.With(
		zap.String("consumer", cfg.Name),
		zap.String("group_id", cfg.GroupID),
		zap.Strings("topics", cfg.Topics),
	)
	c := &Consumer{
		brokers:   brokers,
		cfg:       cfg,
		newSource: newSource,
		decode:    events.Decode,
		metrics:   newConsumerMetrics(cfg.GroupID),
		throttler: logger.NewLogThrottler(log, throttleInterval),
		log:       log,
	}
	if cfg.Domain != "" {
		c.decode = events.DecoderFor(cfg.Domain)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the configured consumer name.
func (c *Consumer) Name() string {
	return c.cfg.Name
}

// Config returns the resolved consumer settings.
func (c *Consumer) Config() config.ConsumerConfig {
	return c.cfg
}

// Start opens the connection and subscribes to the configured topics.
// Calling Start on a started consumer logs a warning and returns nil.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateStarted:
		c.log.Warn("consumer already started")
		return nil
	case stateStopped:
		return ErrStopped
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := c.newSource(ConfigMap(c.brokers, c.cfg))
	if err != nil {
		return fmt.Errorf("failed to create kafka consumer for group %s: %w", c.cfg.GroupID, err)
	}
	if err := src.SubscribeTopics(c.cfg.Topics, c.rebalanceCallback); err != nil {
		_ = src.Close()
		return fmt.Errorf("failed to subscribe to topics %v: %w", c.cfg.Topics, err)
	}

	c.source = src
	c.state = stateStarted
	c.log.Info("consumer started",
		zap.String("auto_offset_reset", c.cfg.AutoOffsetReset),
		zap.Bool("batch", c.cfg.Batch),
	)
	return nil
}

// IsStarted reports whether the consumer holds an open subscription.
func (c *Consumer) IsStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateStarted
}

// IsRunning reports whether a pull loop is active.
func (c *Consumer) IsRunning() bool {
	return c.running.Load()
}

func (c *Consumer) rebalanceCallback(_ *kafka.Consumer, ev kafka.Event) error {
	switch e := ev.(type) {
	case kafka.AssignedPartitions:
		c.log.Info("partitions assigned", zap.Int("count", len(e.Partitions)))
	case kafka.RevokedPartitions:
		c.log.Info("partitions revoked", zap.Int("count", len(e.Partitions)))
	}
	return nil
}

// Stop ends any pull loop at its next safe point, waits for it to finish
// the message or batch in hand, and closes the connection. It is idempotent.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != stateStarted {
		c.state = stateStopped
		c.mu.Unlock()
		return nil
	}
	c.state = stateStopped
	src := c.source
	c.source = nil
	c.running.Store(false)
	c.mu.Unlock()

	c.waitLoops(ctx)
	err := src.Close()
	c.log.Info("consumer stopped")
	return err
}

// reset closes the connection after a loop failure so that Start can open a
// fresh one. It is a no-op once the consumer is stopped.
func (c *Consumer) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateStarted {
		return
	}
	if err := c.source.Close(); err != nil {
		c.log.Warn("failed to close consumer after loop failure", zap.Error(err))
	}
	c.source = nil
	c.state = stateUninitialized
}

func (c *Consumer) waitLoops(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		c.loops.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.log.Warn("closing consumer while a handler is still running")
	}
}

// enter claims the pull loop. The returned func releases it.
func (c *Consumer) enter() (Source, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateStarted {
		return nil, nil, ErrNotStarted
	}
	if !c.running.CompareAndSwap(false, true) {
		return nil, nil, ErrAlreadyRunning
	}
	c.loops.Add(1)
	return c.source, func() {
		c.running.Store(false)
		c.loops.Done()
	}, nil
}

func (c *Consumer) active(ctx context.Context) bool {
	return c.running.Load() && ctx.Err() == nil
}

// poll reads the next message. A nil message with a nil error means there was
// nothing to read within the poll timeout or a temporary fault was ridden out.
func (c *Consumer) poll(ctx context.Context, src Source) (*kafka.Message, error) {
	msg, err := src.ReadMessage(c.cfg.PollTimeout)
	if err == nil {
		return msg, nil
	}

	fault := classifyPollError(err)
	switch {
	case fault.silent():
		return nil, nil
	case fault.fatal():
		c.log.Error("consumer loop failed", zap.Error(fault))
		return nil, fault
	}
	c.throttler.Warn(fault.key, fault.description, zap.Error(err))
	sleep(ctx, fault.retryIn)
	return nil, nil
}

// Consume delivers messages one at a time until Stop is called or ctx ends.
// After every message, whether handled or sent to dlq, the offset is
// committed before the next read. dlq may be nil.
func (c *Consumer) Consume(ctx context.Context, handler Handler, dlq DLQHandler) error {
	src, release, err := c.enter()
	if err != nil {
		return err
	}
	defer release()

	for c.active(ctx) {
		msg, err := c.poll(ctx, src)
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}

		c.process(context.WithoutCancel(ctx), msg, handler, dlq)

		if c.cfg.EnableAutoCommit {
			continue
		}
		if _, err := src.CommitMessage(msg); err != nil {
			c.log.Error("offset commit failed", zap.Error(err), zap.Int64("offset", int64(msg.TopicPartition.Offset)))
			return fmt.Errorf("commit offset: %w", err)
		}
	}
	return nil
}

// ConsumeBatch accumulates up to size messages and hands them to handler as
// one unit, committing once per batch. A partial batch is delivered when the
// loop stops. size <= 0 uses the configured max-poll-records.
func (c *Consumer) ConsumeBatch(ctx context.Context, handler BatchHandler, size int, dlq BatchDLQHandler) error {
	if size <= 0 {
		size = c.cfg.MaxPollRecords
	}
	if size <= 0 {
		size = 1
	}

	src, release, err := c.enter()
	if err != nil {
		return err
	}
	defer release()

	batch := make([]*kafka.Message, 0, size)
	for c.active(ctx) {
		msg, err := c.poll(ctx, src)
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}

		batch = append(batch, msg)
		if len(batch) < size {
			continue
		}

		if err := c.flushBatch(context.WithoutCancel(ctx), src, batch, handler, dlq); err != nil {
			return err
		}
		batch = batch[:0]
	}

	if len(batch) > 0 {
		c.log.Info("delivering partial batch before stop", zap.Int("size", len(batch)))
		return c.flushBatch(context.WithoutCancel(ctx), src, batch, handler, dlq)
	}
	return nil
}

func (c *Consumer) flushBatch(ctx context.Context, src Source, batch []*kafka.Message, handler BatchHandler, dlq BatchDLQHandler) error {
	c.processBatch(ctx, batch, handler, dlq)

	if c.cfg.EnableAutoCommit {
		return nil
	}
	offsets := commitOffsets(batch)
	if _, err := src.CommitOffsets(offsets); err != nil {
		c.log.Error("batch offset commit failed", zap.Error(err), zap.Int("size", len(batch)))
		return fmt.Errorf("commit batch offsets: %w", err)
	}
	return nil
}

// commitOffsets returns, for every partition in batch, the offset after the
// last message seen.
func commitOffsets(batch []*kafka.Message) []kafka.TopicPartition {
	type tp struct {
		topic     string
		partition int32
	}
	next := make(map[tp]kafka.Offset)
	order := make([]tp, 0, 1)
	for _, m := range batch {
		if m.TopicPartition.Topic == nil {
			continue
		}
		key := tp{*m.TopicPartition.Topic, m.TopicPartition.Partition}
		off, seen := next[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || m.TopicPartition.Offset+1 > off {
			next[key] = m.TopicPartition.Offset + 1
		}
	}

	out := make([]kafka.TopicPartition, 0, len(order))
	for _, key := range order {
		topic := key.topic
		out = append(out, kafka.TopicPartition{Topic: &topic, Partition: key.partition, Offset: next[key]})
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
