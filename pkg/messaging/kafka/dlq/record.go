package dlq

import (
	"encoding/json"
	"errors"
	"reflect"
	"time"
)

// Record is what lands on a dead letter topic for every failed event.
type Record struct {
	OriginalEvent json.RawMessage `json:"original_event"`
	Error         string          `json:"error"`
	ErrorType     string          `json:"error_type"`
	Timestamp     time.Time       `json:"timestamp"`
	Service       string          `json:"service"`
}

// NewRecord wraps raw and the error that made its handler fail.
func NewRecord(raw json.RawMessage, cause error, service string, now time.Time) Record {
	if len(raw) == 0 || !json.Valid(raw) {
		// keep the record itself valid JSON
		b, _ := json.Marshal(string(raw))
		raw = b
	}
	r := Record{
		OriginalEvent: raw,
		Timestamp:     now.UTC(),
		Service:       service,
	}
	if cause != nil {
		r.Error = cause.Error()
		r.ErrorType = ErrorTypeName(cause)
	}
	return r
}

type typedError interface {
	ErrorType() string
}

// ErrorTypeName names the kind of err: the ErrorType() of the first error in
// the tree that has one, otherwise the type name of the innermost error.
// Through errors wrapping several others ("%w: %w", errors.Join) the last one
// is followed, which is the cause by convention.
func ErrorTypeName(err error) string {
	if err == nil {
		return ""
	}
	var typed typedError
	if errors.As(err, &typed) {
		return typed.ErrorType()
	}
	for {
		next := unwrapCause(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func unwrapCause(err error) error {
	switch e := err.(type) {
	case interface{ Unwrap() error }:
		return e.Unwrap()
	case interface{ Unwrap() []error }:
		errs := e.Unwrap()
		for i := len(errs) - 1; i >= 0; i-- {
			if errs[i] != nil {
				return errs[i]
			}
		}
	}
	return nil
}
