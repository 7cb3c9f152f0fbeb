package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddComponent(t *testing.T) {
	t.Run("registers component as not ready", func(t *testing.T) {
		r := newReadiness(zap.NewNop())

		r.AddComponent("kafka-producer")

		require.Contains(t, r.components, "kafka-producer")
		assert.False(t, r.components["kafka-producer"].ready)
		assert.False(t, r.IsReady())
	})

	t.Run("panics on empty name", func(t *testing.T) {
		r := newReadiness(zap.NewNop())

		assert.Panics(t, func() { r.AddComponent("") })
	})

	t.Run("duplicate registration keeps one entry", func(t *testing.T) {
		r := newReadiness(zap.NewNop())

		r.AddComponent("db")
		r.AddComponent("db")

		assert.Len(t, r.components, 1)
	})
}

func TestMarkReady(t *testing.T) {
	t.Run("ready only when every component is ready", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		producerReady := r.AddComponent("producer")
		consumerReady := r.AddComponent("consumer")

		producerReady()
		assert.False(t, r.IsReady())

		consumerReady()
		assert.True(t, r.IsReady())
	})

	t.Run("repeated mark is harmless", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		ready := r.AddComponent("producer")

		ready()
		ready()

		assert.True(t, r.IsReady())
	})
}

func TestGetStatus_PreservesRegistrationOrder(t *testing.T) {
	r := newReadiness(zap.NewNop())
	r.AddComponent("b")
	markA := r.AddComponent("a")
	markA()

	status := r.GetStatus()

	require.Len(t, status.Components, 2)
	assert.Equal(t, "b", status.Components[0].Name)
	assert.Equal(t, "a", status.Components[1].Name)
	assert.True(t, status.Components[1].Ready)
	assert.False(t, status.Ready)
}

func TestWaitReady(t *testing.T) {
	t.Run("unblocks when ready", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		ready := r.AddComponent("producer")

		go func() {
			time.Sleep(10 * time.Millisecond)
			ready()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, r.WaitReady(ctx))
	})

	t.Run("returns context error", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		r.AddComponent("producer")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, r.WaitReady(ctx), context.DeadlineExceeded)
	})
}

func TestConcurrency(t *testing.T) {
	r := newReadiness(zap.NewNop())
	marks := make([]func(), 20)
	for i := range marks {
		marks[i] = r.AddComponent(string(rune('a' + i)))
	}

	var wg sync.WaitGroup
	for _, mark := range marks {
		wg.Add(1)
		go func(m func()) {
			defer wg.Done()
			m()
			_ = r.GetStatus()
		}(mark)
	}
	wg.Wait()

	assert.True(t, r.IsReady())
}
