package events

import "errors"

var (
	// ErrUnknownEventType is returned for event types outside the closed set.
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrEventTypeMismatch is returned when an event type is not valid for the payload domain.
	ErrEventTypeMismatch = errors.New("event type does not match payload domain")
	// ErrInvalidPayload wraps required-field and format violations.
	ErrInvalidPayload = errors.New("invalid event payload")
)
