package publishers

import (
	"context"
	"strings"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
)

const (
	employeeActive     = "active"
	employeeTerminated = "terminated"
)

// EmployeeChange is an employee record after a change. Name is split into
// first and last name at the first space.
type EmployeeChange struct {
	EmployeeID      int64
	UserID          int64
	Email           string
	Name            string
	Department      string
	Position        string
	Status          string
	HireDate        time.Time
	TerminationDate time.Time
}

type EmployeePublisher struct {
	base
}

func NewEmployeePublisher(factory *events.Factory, dispatcher Dispatcher, log *zap.Logger) *EmployeePublisher {
	return &EmployeePublisher{base{
		factory:    factory,
		dispatcher: dispatcher,
		log:        log.With(zap.String("publisher", "employee")),
		domain:     events.DomainEmployee,
		actions: map[string]events.EventType{
			"created":        events.EmployeeCreated,
			"updated":        events.EmployeeUpdated,
			"deleted":        events.EmployeeTerminated,
			"terminated":     events.EmployeeTerminated,
			"status_changed": events.EmployeeStatusChanged,
		},
	}}
}

// Publish dispatches the employee event for action: created, updated,
// deleted (or terminated) and status_changed. Without an explicit status,
// terminations carry "terminated" and everything else "active".
func (p *EmployeePublisher) Publish(ctx context.Context, action string, c EmployeeChange) bool {
	t, ok := p.eventType(action)
	if !ok {
		return false
	}
	status := c.Status
	if status == "" {
		status = employeeActive
		if t == events.EmployeeTerminated {
			status = employeeTerminated
		}
	}
	first, last := splitName(c.Name)

	return p.dispatch(ctx, action, func() (*events.Envelope, error) {
		return p.factory.NewEmployeeEvent(t, events.EmployeeData{
			EmployeeID:      c.EmployeeID,
			UserID:          optional(c.UserID),
			Email:           c.Email,
			FirstName:       first,
			LastName:        last,
			Department:      optional(c.Department),
			Position:        optional(c.Position),
			Status:          &status,
			HireDate:        date(c.HireDate),
			TerminationDate: date(c.TerminationDate),
		})
	}, zap.Int64("employee_id", c.EmployeeID))
}

func splitName(name string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}

func date(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
