package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSupervise_ReturnsWhenRunSucceeds(t *testing.T) {
	var calls atomic.Int32

	err := Supervise(context.Background(), "loop", zap.NewNop(), time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSupervise_RestartsAfterError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	var calls atomic.Int32

	err := Supervise(context.Background(), "loop", zap.New(core), time.Millisecond, func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("pull failed")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, logs.FilterMessage("loop failed, restarting").Len())
}

func TestSupervise_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, "loop", zap.NewNop(), time.Hour, func(ctx context.Context) error {
			calls.Add(1)
			return errors.New("always failing")
		})
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestSupervise_DefaultDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Supervise(ctx, "loop", zap.NewNop(), 0, func(ctx context.Context) error {
		return ctx.Err()
	})

	assert.NoError(t, err)
}
