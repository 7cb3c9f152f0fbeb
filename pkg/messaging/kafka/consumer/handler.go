package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/Sokol111/hrms-commons/pkg/events"
)

// Handler processes one decoded event. A returned error sends the message to
// the DLQ handler; the offset is committed either way.
type Handler func(ctx context.Context, env *events.Envelope) error

// BatchHandler processes a batch of decoded events as one unit.
type BatchHandler func(ctx context.Context, envs []*events.Envelope) error

// DLQHandler receives the raw value of a message whose handler failed.
// Its errors are logged and never stop consumption.
type DLQHandler func(ctx context.Context, raw json.RawMessage, cause error) error

// BatchDLQHandler receives the raw values of a failed batch.
type BatchDLQHandler func(ctx context.Context, raws []json.RawMessage, cause error) error

// PanicError is a recovered handler panic.
type PanicError struct {
	Panic any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Panic)
}

// ErrorType names the panic as its own error type in DLQ records.
func (e *PanicError) ErrorType() string {
	return "PanicError"
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Panic: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
