package publishers

import (
	"context"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
)

// AttendanceChange is an attendance record after a change.
type AttendanceChange struct {
	AttendanceID  int64
	EmployeeID    int64
	EmployeeEmail string
	EmployeeName  string
	Date          time.Time
	Status        string
	CheckIn       time.Time
	CheckOut      time.Time
	HoursWorked   *float64
	Notes         string
}

type AttendancePublisher struct {
	base
}

func NewAttendancePublisher(factory *events.Factory, dispatcher Dispatcher, log *zap.Logger) *AttendancePublisher {
	return &AttendancePublisher{base{
		factory:    factory,
		dispatcher: dispatcher,
		log:        log.With(zap.String("publisher", "attendance")),
		domain:     events.DomainAttendance,
		actions: map[string]events.EventType{
			"logged":  events.AttendanceMarked,
			"marked":  events.AttendanceMarked,
			"updated": events.AttendanceUpdated,
			"deleted": events.AttendanceDeleted,
		},
	}}
}

// Publish dispatches the attendance event for action: logged (or marked),
// updated and deleted.
func (p *AttendancePublisher) Publish(ctx context.Context, action string, c AttendanceChange) bool {
	t, ok := p.eventType(action)
	if !ok {
		return false
	}
	return p.dispatch(ctx, action, func() (*events.Envelope, error) {
		return p.factory.NewAttendanceEvent(t, events.AttendanceData{
			AttendanceID:  c.AttendanceID,
			EmployeeID:    c.EmployeeID,
			EmployeeEmail: c.EmployeeEmail,
			EmployeeName:  optional(c.EmployeeName),
			Date:          c.Date.Format(dateLayout),
			CheckIn:       timestamp(c.CheckIn),
			CheckOut:      timestamp(c.CheckOut),
			Status:        c.Status,
			HoursWorked:   c.HoursWorked,
			Notes:         optional(c.Notes),
		})
	}, zap.Int64("attendance_id", c.AttendanceID))
}

func timestamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
