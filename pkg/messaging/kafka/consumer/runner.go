package consumer

import (
	"context"
	"errors"

	"github.com/Sokol111/hrms-commons/pkg/core/worker"
	"go.uber.org/zap"
)

// Runner keeps a Consumer pulling for the lifetime of its context. Loop
// failures close the connection and restart consumption after the configured
// delay.
type Runner struct {
	consumer     *Consumer
	handler      Handler
	dlq          DLQHandler
	batchHandler BatchHandler
	batchDLQ     BatchDLQHandler
	batchSize    int
	log          *zap.Logger
}

// RunnerOption selects the delivery mode of a Runner.
type RunnerOption func(*Runner)

// WithHandler delivers messages one at a time.
func WithHandler(h Handler, dlq DLQHandler) RunnerOption {
	return func(r *Runner) {
		r.handler = h
		r.dlq = dlq
	}
}

// WithBatchHandler delivers messages in batches of size.
func WithBatchHandler(h BatchHandler, size int, dlq BatchDLQHandler) RunnerOption {
	return func(r *Runner) {
		r.batchHandler = h
		r.batchSize = size
		r.batchDLQ = dlq
	}
}

func NewRunner(c *Consumer, opts ...RunnerOption) *Runner {
	r := &Runner{consumer: c, log: c.log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until ctx is done or the consumer is stopped.
func (r *Runner) Run(ctx context.Context) error {
	if r.handler == nil && r.batchHandler == nil {
		return errors.New("consumer runner has no handler")
	}

	return worker.Supervise(ctx, "consumer "+r.consumer.Name(), r.log, r.consumer.cfg.RestartDelay, func(ctx context.Context) error {
		if err := r.consumer.Start(ctx); err != nil {
			if errors.Is(err, ErrStopped) {
				return nil
			}
			return err
		}

		err := r.loop(ctx)
		if errors.Is(err, ErrNotStarted) {
			// stopped between Start and the loop
			return nil
		}
		if err != nil {
			r.consumer.reset()
		}
		return err
	})
}

func (r *Runner) loop(ctx context.Context) error {
	if r.batchHandler != nil {
		return r.consumer.ConsumeBatch(ctx, r.batchHandler, r.batchSize, r.batchDLQ)
	}
	return r.consumer.Consume(ctx, r.handler, r.dlq)
}
