package publishers

import (
	"context"
	"strconv"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// LeaveChange is a leave request as the leave service sees it after a change.
type LeaveChange struct {
	LeaveID         int64
	EmployeeID      int64
	EmployeeEmail   string
	EmployeeName    string
	LeaveType       string
	StartDate       time.Time
	EndDate         time.Time
	Status          string
	Reason          string
	ApprovedBy      int64
	ApprovedByName  string
	RejectionReason string
}

type LeavePublisher struct {
	base
}

func NewLeavePublisher(factory *events.Factory, dispatcher Dispatcher, log *zap.Logger) *LeavePublisher {
	return &LeavePublisher{base{
		factory:    factory,
		dispatcher: dispatcher,
		log:        log.With(zap.String("publisher", "leave")),
		domain:     events.DomainLeave,
		actions: map[string]events.EventType{
			"created":   events.LeaveRequested,
			"approved":  events.LeaveApproved,
			"rejected":  events.LeaveRejected,
			"cancelled": events.LeaveCancelled,
			"updated":   events.LeaveUpdated,
		},
	}}
}

// Publish dispatches the leave event for action: created, approved, rejected,
// cancelled or updated.
func (p *LeavePublisher) Publish(ctx context.Context, action string, c LeaveChange) bool {
	t, ok := p.eventType(action)
	if !ok {
		return false
	}
	return p.dispatch(ctx, action, func() (*events.Envelope, error) {
		return p.factory.NewLeaveEvent(t, events.LeaveData{
			LeaveID:         c.LeaveID,
			EmployeeID:      c.EmployeeID,
			EmployeeEmail:   c.EmployeeEmail,
			EmployeeName:    optional(c.EmployeeName),
			LeaveType:       c.LeaveType,
			StartDate:       c.StartDate.Format(dateLayout),
			EndDate:         c.EndDate.Format(dateLayout),
			Days:            LeaveDays(c.StartDate, c.EndDate),
			Status:          c.Status,
			Reason:          optional(c.Reason),
			ApprovedBy:      approver(c.ApprovedBy),
			ApprovedByName:  optional(c.ApprovedByName),
			RejectionReason: optional(c.RejectionReason),
		})
	}, zap.Int64("leave_id", c.LeaveID))
}

// LeaveDays counts calendar days from start to end, both included. It is 0
// when end is before start.
func LeaveDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

func approver(id int64) *string {
	if id == 0 {
		return nil
	}
	s := strconv.FormatInt(id, 10)
	return &s
}
