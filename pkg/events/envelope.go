package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the canonical wrapper around every event placed on the bus.
// The shape of Data is determined by EventType; the envelope carries no topic.
type Envelope struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	SourceService string    `json:"source_service"`
	CorrelationID *string   `json:"correlation_id"`
	Data          Payload   `json:"data"`
}

// Key returns the default partition key for the envelope.
func (e *Envelope) Key() string {
	if e.Data == nil {
		return ""
	}
	return e.Data.PartitionKey()
}

// Validate checks the envelope header and the payload's required fields.
func (e *Envelope) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("%w: event_id is required", ErrInvalidPayload)
	}
	if !e.EventType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.EventType)
	}
	if e.Data == nil {
		return fmt.Errorf("%w: data is required", ErrInvalidPayload)
	}
	return validatePayload(e.Data)
}

func (e *Envelope) Notification() (NotificationData, bool) {
	d, ok := e.Data.(NotificationData)
	return d, ok
}

func (e *Envelope) Audit() (AuditData, bool) {
	d, ok := e.Data.(AuditData)
	return d, ok
}

func (e *Envelope) User() (UserData, bool) {
	d, ok := e.Data.(UserData)
	return d, ok
}

func (e *Envelope) Employee() (EmployeeData, bool) {
	d, ok := e.Data.(EmployeeData)
	return d, ok
}

func (e *Envelope) Leave() (LeaveData, bool) {
	d, ok := e.Data.(LeaveData)
	return d, ok
}

func (e *Envelope) Attendance() (AttendanceData, bool) {
	d, ok := e.Data.(AttendanceData)
	return d, ok
}

func (e *Envelope) Compliance() (ComplianceData, bool) {
	d, ok := e.Data.(ComplianceData)
	return d, ok
}

type wireEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     EventType       `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	CorrelationID *string         `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes data into the payload implied by event_type.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	env, err := decode(b, "")
	if err != nil {
		return err
	}
	*e = *env
	return nil
}

// Decode parses a wire envelope, selecting the payload by event_type.
func Decode(b []byte) (*Envelope, error) {
	return decode(b, "")
}

// DecodeAs parses a wire envelope forcing the payload domain. Notification
// envelopes carry kinds of other domains and are recognised by the topic
// they arrive on, so their consumers decode with DomainNotification.
func DecodeAs(b []byte, d Domain) (*Envelope, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("unknown payload domain %q", d)
	}
	return decode(b, d)
}

// Decoder turns a raw message value into an envelope.
type Decoder func(b []byte) (*Envelope, error)

// DecoderFor returns Decode for an empty domain and DecodeAs otherwise.
func DecoderFor(d Domain) Decoder {
	if d == "" {
		return Decode
	}
	return func(b []byte) (*Envelope, error) { return DecodeAs(b, d) }
}

func decode(b []byte, forced Domain) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if !w.EventType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, w.EventType)
	}

	domain := forced
	if domain == "" {
		domain = w.EventType.Domain()
	}

	payload, err := decodePayload(domain, w.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload for %s: %w", domain, w.EventType, err)
	}

	return &Envelope{
		EventID:       w.EventID,
		EventType:     w.EventType,
		Timestamp:     w.Timestamp,
		SourceService: w.SourceService,
		CorrelationID: w.CorrelationID,
		Data:          payload,
	}, nil
}

func decodePayload(d Domain, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: data is required", ErrInvalidPayload)
	}
	switch d {
	case DomainNotification:
		return unmarshalAs[NotificationData](raw)
	case DomainAudit:
		return unmarshalAs[AuditData](raw)
	case DomainUser:
		return unmarshalAs[UserData](raw)
	case DomainEmployee:
		return unmarshalAs[EmployeeData](raw)
	case DomainLeave:
		return unmarshalAs[LeaveData](raw)
	case DomainAttendance:
		return unmarshalAs[AttendanceData](raw)
	case DomainCompliance:
		return unmarshalAs[ComplianceData](raw)
	}
	return nil, fmt.Errorf("unknown payload domain %q", d)
}

func unmarshalAs[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
