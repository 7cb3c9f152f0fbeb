package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DefaultRestartDelay is the pause between a failed run and its restart.
const DefaultRestartDelay = 5 * time.Second

// Supervise runs fn until it returns nil or ctx is done. Any error restarts fn
// after a fixed delay. Cancellation is not an error: Supervise returns nil once
// ctx is done.
func Supervise(ctx context.Context, name string, log *zap.Logger, delay time.Duration, fn func(ctx context.Context) error) error {
	if delay <= 0 {
		delay = DefaultRestartDelay
	}

	op := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Error(name+" failed, restarting",
			zap.Error(err),
			zap.Duration("restart_in", wait),
		)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.NewConstantBackOff(delay), ctx), notify)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
