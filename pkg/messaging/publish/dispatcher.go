package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrDispatcherClosed is returned by Dispatch after Close.
	ErrDispatcherClosed = errors.New("dispatcher closed")
	// ErrBusy is returned when no publish slot frees up in time.
	ErrBusy = errors.New("too many publishes in flight")
	// ErrNotDelivered is passed to the error hook when a publisher returned false.
	ErrNotDelivered = errors.New("event not delivered")
	// ErrNoTopic is returned when an event's domain has no topic.
	ErrNoTopic = errors.New("no topic for event domain")
)

// ErrorHook observes background publishes that failed or panicked.
type ErrorHook func(ctx context.Context, topic string, env *events.Envelope, err error)

// TopicResolver maps a payload domain to its topic.
type TopicResolver func(events.Domain) string

const (
	DefaultMaxInFlight    = 64
	DefaultEnqueueTimeout = 100 * time.Millisecond
	DefaultPublishTimeout = 30 * time.Second
)

// Dispatcher publishes events in the background. A publish outlives the
// request that started it: cancelling the caller's context does not cancel
// it, while its values (trace, logger) are kept.
type Dispatcher struct {
	publisher      Publisher
	topics         TopicResolver
	sem            *semaphore.Weighted
	enqueueTimeout time.Duration
	publishTimeout time.Duration
	onError        ErrorHook
	log            *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithMaxInFlight(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithEnqueueTimeout bounds how long Dispatch waits for a free slot.
func WithEnqueueTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.enqueueTimeout = t
	}
}

// WithPublishTimeout bounds a single background publish.
func WithPublishTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.publishTimeout = t
	}
}

// WithErrorHook replaces the default hook, which logs.
func WithErrorHook(h ErrorHook) DispatcherOption {
	return func(d *Dispatcher) {
		d.onError = h
	}
}

// WithTopics lets DispatchEvent pick the topic from the payload domain.
func WithTopics(r TopicResolver) DispatcherOption {
	return func(d *Dispatcher) {
		d.topics = r
	}
}

func NewDispatcher(p Publisher, log *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		publisher:      p,
		sem:            semaphore.NewWeighted(DefaultMaxInFlight),
		enqueueTimeout: DefaultEnqueueTimeout,
		publishTimeout: DefaultPublishTimeout,
		log:            log,
	}
	d.onError = d.logError
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) logError(_ context.Context, topic string, env *events.Envelope, err error) {
	d.log.Error("background publish failed",
		zap.String("topic", topic),
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType.String()),
		zap.Error(err),
	)
}

// DispatchEvent dispatches env to the topic of its payload domain.
func (d *Dispatcher) DispatchEvent(ctx context.Context, env *events.Envelope) error {
	if env == nil || env.Data == nil {
		return fmt.Errorf("%w: event has no payload", events.ErrInvalidPayload)
	}
	var topic string
	if d.topics != nil {
		topic = d.topics(env.Data.Domain())
	}
	if topic == "" {
		return fmt.Errorf("%w: %s", ErrNoTopic, env.Data.Domain())
	}
	return d.Dispatch(ctx, topic, env)
}

// Dispatch starts publishing env to topic and returns without waiting for
// the outcome, which goes to the error hook when it is a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, env *events.Envelope) error {
	if env == nil {
		return fmt.Errorf("%w: nil event", events.ErrInvalidPayload)
	}
	detached := context.WithoutCancel(ctx)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	acquireCtx, cancel := context.WithTimeout(detached, d.enqueueTimeout)
	err := d.sem.Acquire(acquireCtx, 1)
	cancel()
	if err != nil {
		d.onError(detached, topic, env, ErrBusy)
		return ErrBusy
	}

	d.wg.Add(1)
	go d.run(detached, topic, env)
	return nil
}

func (d *Dispatcher) run(ctx context.Context, topic string, env *events.Envelope) {
	defer d.wg.Done()
	defer d.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			d.onError(ctx, topic, env, fmt.Errorf("publish panicked: %v", r))
		}
	}()

	if d.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.publishTimeout)
		defer cancel()
	}
	if !d.publisher.Publish(ctx, topic, env) {
		d.onError(ctx, topic, env, ErrNotDelivered)
	}
}

// Close stops accepting events and waits for in-flight publishes or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publishes still in flight: %w", ctx.Err())
	}
}
