package publishers

import (
	"context"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
)

// UserChange is a user account after a change.
type UserChange struct {
	UserID    int64
	Email     string
	FirstName string
	LastName  string
	Role      string
	Status    string
	Reason    string
}

type UserPublisher struct {
	base
}

func NewUserPublisher(factory *events.Factory, dispatcher Dispatcher, log *zap.Logger) *UserPublisher {
	return &UserPublisher{base{
		factory:    factory,
		dispatcher: dispatcher,
		log:        log.With(zap.String("publisher", "user")),
		domain:     events.DomainUser,
		actions: map[string]events.EventType{
			"created":          events.UserCreated,
			"updated":          events.UserUpdated,
			"deleted":          events.UserDeleted,
			"suspended":        events.UserSuspended,
			"activated":        events.UserActivated,
			"password_changed": events.UserPasswordChanged,
		},
	}}
}

// Publish dispatches the user event for action: created, updated, deleted,
// suspended, activated or password_changed.
func (p *UserPublisher) Publish(ctx context.Context, action string, c UserChange) bool {
	t, ok := p.eventType(action)
	if !ok {
		return false
	}
	return p.dispatch(ctx, action, func() (*events.Envelope, error) {
		return p.factory.NewUserEvent(t, events.UserData{
			UserID:    c.UserID,
			Email:     c.Email,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Role:      optional(c.Role),
			Status:    optional(c.Status),
			Reason:    optional(c.Reason),
		})
	}, zap.Int64("user_id", c.UserID))
}
