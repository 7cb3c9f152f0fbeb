package events

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validatePayload(p Payload) error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			return fmt.Errorf("%w: %s: %s", ErrInvalidPayload, p.Domain(), strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// Factory stamps domain payloads into envelopes on behalf of one service.
// It has no side effects beyond reading the clock and generating ids.
type Factory struct {
	sourceService string
	now           func() time.Time
	newID         func() string
}

// FactoryOption customises a Factory.
type FactoryOption func(*Factory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		f.now = now
	}
}

func NewFactory(sourceService string, opts ...FactoryOption) *Factory {
	f := &Factory{
		sourceService: sourceService,
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SourceService returns the service name stamped into envelopes.
func (f *Factory) SourceService() string {
	return f.sourceService
}

// Option sets optional envelope header fields.
type Option func(*Envelope)

// WithCorrelationID links the event to causally related events. It is only ever
// propagated from the caller.
func WithCorrelationID(id string) Option {
	return func(e *Envelope) {
		if id != "" {
			e.CorrelationID = &id
		}
	}
}

// NewNotificationEvent accepts any event kind: notifications are triggered by
// events of every domain.
func (f *Factory) NewNotificationEvent(t EventType, data NotificationData, opts ...Option) (*Envelope, error) {
	if data.Priority == "" {
		data.Priority = PriorityNormal
	}
	if data.TemplateData == nil {
		data.TemplateData = map[string]string{}
	}
	return f.build(t, data, opts)
}

func (f *Factory) NewAuditEvent(t EventType, data AuditData, opts ...Option) (*Envelope, error) {
	return f.build(t, data, opts)
}

func (f *Factory) NewUserEvent(t EventType, data UserData, opts ...Option) (*Envelope, error) {
	return f.build(t, data, opts)
}

func (f *Factory) NewEmployeeEvent(t EventType, data EmployeeData, opts ...Option) (*Envelope, error) {
	return f.build(t, data, opts)
}

func (f *Factory) NewLeaveEvent(t EventType, data LeaveData, opts ...Option) (*Envelope, error) {
	return f.build(t, data, opts)
}

func (f *Factory) NewAttendanceEvent(t EventType, data AttendanceData, opts ...Option) (*Envelope, error) {
	return f.build(t, data, opts)
}

func (f *Factory) NewComplianceEvent(t EventType, data ComplianceData, opts ...Option) (*Envelope, error) {
	if data.Severity == "" {
		data.Severity = SeverityMedium
	}
	return f.build(t, data, opts)
}

func (f *Factory) build(t EventType, data Payload, opts []Option) (*Envelope, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
	if d := data.Domain(); d != DomainNotification && t.Domain() != d {
		return nil, fmt.Errorf("%w: %s cannot carry %s data", ErrEventTypeMismatch, t, d)
	}
	if err := validatePayload(data); err != nil {
		return nil, err
	}

	env := &Envelope{
		EventID:       f.newID(),
		EventType:     t,
		Timestamp:     f.now().UTC(),
		SourceService: f.sourceService,
		Data:          data,
	}
	for _, opt := range opts {
		opt(env)
	}
	return env, nil
}
