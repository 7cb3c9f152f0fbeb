// Package publishers turns service-level changes (a leave was approved, an
// employee was hired) into events and hands them to the background
// dispatcher. Every Publish method reports whether the event was accepted
// for delivery; delivery failures surface through the dispatcher's error
// hook.
package publishers

import (
	"context"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
)

// Dispatcher accepts events for background delivery.
type Dispatcher interface {
	DispatchEvent(ctx context.Context, env *events.Envelope) error
}

type base struct {
	factory    *events.Factory
	dispatcher Dispatcher
	log        *zap.Logger
	domain     events.Domain
	actions    map[string]events.EventType
}

func (b *base) eventType(action string) (events.EventType, bool) {
	t, ok := b.actions[action]
	if !ok {
		b.log.Warn("unknown event action",
			zap.String("domain", string(b.domain)),
			zap.String("action", action),
		)
	}
	return t, ok
}

// dispatch builds an event with build and dispatches it.
func (b *base) dispatch(ctx context.Context, action string, build func() (*events.Envelope, error), fields ...zap.Field) bool {
	log := b.log.With(append(fields, zap.String("action", action))...)

	env, err := build()
	if err != nil {
		log.Error("failed to build event", zap.Error(err))
		return false
	}
	if err := b.dispatcher.DispatchEvent(ctx, env); err != nil {
		log.Warn("event not accepted for delivery", zap.String("event_id", env.EventID), zap.Error(err))
		return false
	}
	log.Debug("event dispatched",
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType.String()),
	)
	return true
}

func optional[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}
