package publishers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingDispatcher struct {
	err  error
	envs []*events.Envelope
}

func (d *recordingDispatcher) DispatchEvent(_ context.Context, env *events.Envelope) error {
	if d.err != nil {
		return d.err
	}
	d.envs = append(d.envs, env)
	return nil
}

func (d *recordingDispatcher) last(t *testing.T) *events.Envelope {
	t.Helper()
	require.NotEmpty(t, d.envs)
	return d.envs[len(d.envs)-1]
}

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func leaveChange() LeaveChange {
	return LeaveChange{
		LeaveID:       42,
		EmployeeID:    7,
		EmployeeEmail: "jane@example.com",
		LeaveType:     "annual",
		StartDate:     day("2026-03-02"),
		EndDate:       day("2026-03-06"),
		Status:        "pending",
	}
}

func TestLeavePublisher_Actions(t *testing.T) {
	tests := []struct {
		action string
		want   events.EventType
	}{
		{action: "created", want: events.LeaveRequested},
		{action: "approved", want: events.LeaveApproved},
		{action: "rejected", want: events.LeaveRejected},
		{action: "cancelled", want: events.LeaveCancelled},
		{action: "updated", want: events.LeaveUpdated},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			d := &recordingDispatcher{}
			p := NewLeavePublisher(events.NewFactory("leave-service"), d, zap.NewNop())

			require.True(t, p.Publish(context.Background(), tt.action, leaveChange()))
			assert.Equal(t, tt.want, d.last(t).EventType)
		})
	}
}

func TestLeavePublisher_Payload(t *testing.T) {
	d := &recordingDispatcher{}
	p := NewLeavePublisher(events.NewFactory("leave-service"), d, zap.NewNop())

	c := leaveChange()
	c.Status = "approved"
	c.ApprovedBy = 3
	require.True(t, p.Publish(context.Background(), "approved", c))

	env := d.last(t)
	assert.Equal(t, "leave-service", env.SourceService)
	data, ok := env.Leave()
	require.True(t, ok)
	assert.Equal(t, "2026-03-02", data.StartDate)
	assert.Equal(t, "2026-03-06", data.EndDate)
	assert.Equal(t, 5, data.Days)
	require.NotNil(t, data.ApprovedBy)
	assert.Equal(t, "3", *data.ApprovedBy)
	assert.Nil(t, data.Reason)
	assert.Nil(t, data.RejectionReason)
}

func TestLeaveDays(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{name: "single day", start: day("2026-03-02"), end: day("2026-03-02"), want: 1},
		{name: "week", start: day("2026-03-02"), end: day("2026-03-08"), want: 7},
		{name: "across month", start: day("2026-02-27"), end: day("2026-03-02"), want: 4},
		{name: "ignores time of day", start: time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), end: time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), want: 2},
		{name: "end before start", start: day("2026-03-05"), end: day("2026-03-02"), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LeaveDays(tt.start, tt.end))
		})
	}
}

func TestPublishers_UnknownActionIsRejected(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := &recordingDispatcher{}
	f := events.NewFactory("svc")
	log := zap.New(core)

	assert.False(t, NewLeavePublisher(f, d, log).Publish(context.Background(), "archived", leaveChange()))
	assert.False(t, NewEmployeePublisher(f, d, log).Publish(context.Background(), "promoted", EmployeeChange{}))
	assert.False(t, NewAttendancePublisher(f, d, log).Publish(context.Background(), "approved", AttendanceChange{}))
	assert.False(t, NewCompliancePublisher(f, d, log).Publish(context.Background(), "passed", ComplianceResult{}))
	assert.False(t, NewUserPublisher(f, d, log).Publish(context.Background(), "banned", UserChange{}))

	assert.Empty(t, d.envs)
	assert.Equal(t, 5, logs.FilterMessage("unknown event action").Len())
}

func TestPublishers_InvalidPayloadIsNotDispatched(t *testing.T) {
	d := &recordingDispatcher{}
	p := NewLeavePublisher(events.NewFactory("leave-service"), d, zap.NewNop())

	c := leaveChange()
	c.EmployeeEmail = "not-an-email"
	assert.False(t, p.Publish(context.Background(), "created", c))
	assert.Empty(t, d.envs)
}

func TestPublishers_DispatchRefused(t *testing.T) {
	d := &recordingDispatcher{err: publish.ErrBusy}
	p := NewUserPublisher(events.NewFactory("user-service"), d, zap.NewNop())

	assert.False(t, p.Publish(context.Background(), "created", UserChange{
		UserID: 1, Email: "jane@example.com", FirstName: "Jane", LastName: "Doe",
	}))
}

func TestEmployeePublisher(t *testing.T) {
	tests := []struct {
		name       string
		action     string
		change     EmployeeChange
		wantType   events.EventType
		wantStatus string
		wantFirst  string
		wantLast   string
	}{
		{
			name:       "created",
			action:     "created",
			change:     EmployeeChange{EmployeeID: 1, Email: "jane@example.com", Name: "Jane van Doe"},
			wantType:   events.EmployeeCreated,
			wantStatus: "active",
			wantFirst:  "Jane",
			wantLast:   "van Doe",
		},
		{
			name:       "deleted terminates",
			action:     "deleted",
			change:     EmployeeChange{EmployeeID: 1, Email: "jane@example.com", Name: "Jane Doe"},
			wantType:   events.EmployeeTerminated,
			wantStatus: "terminated",
			wantFirst:  "Jane",
			wantLast:   "Doe",
		},
		{
			name:       "explicit status",
			action:     "status_changed",
			change:     EmployeeChange{EmployeeID: 1, Email: "jane@example.com", Name: "Jane Doe", Status: "on_leave"},
			wantType:   events.EmployeeStatusChanged,
			wantStatus: "on_leave",
			wantFirst:  "Jane",
			wantLast:   "Doe",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &recordingDispatcher{}
			p := NewEmployeePublisher(events.NewFactory("employee-service"), d, zap.NewNop())

			require.True(t, p.Publish(context.Background(), tt.action, tt.change))
			env := d.last(t)
			assert.Equal(t, tt.wantType, env.EventType)
			data, ok := env.Employee()
			require.True(t, ok)
			require.NotNil(t, data.Status)
			assert.Equal(t, tt.wantStatus, *data.Status)
			assert.Equal(t, tt.wantFirst, data.FirstName)
			assert.Equal(t, tt.wantLast, data.LastName)
		})
	}
}

func TestEmployeePublisher_SingleWordName(t *testing.T) {
	d := &recordingDispatcher{}
	p := NewEmployeePublisher(events.NewFactory("employee-service"), d, zap.NewNop())

	require.True(t, p.Publish(context.Background(), "created", EmployeeChange{EmployeeID: 1, Email: "cher@example.com", Name: "Cher"}))
	data, ok := d.last(t).Employee()
	require.True(t, ok)
	assert.Equal(t, "Cher", data.FirstName)
	assert.Empty(t, data.LastName)
}

func TestAttendancePublisher(t *testing.T) {
	d := &recordingDispatcher{}
	p := NewAttendancePublisher(events.NewFactory("attendance-service"), d, zap.NewNop())
	hours := 7.5

	require.True(t, p.Publish(context.Background(), "logged", AttendanceChange{
		AttendanceID:  9,
		EmployeeID:    7,
		EmployeeEmail: "jane@example.com",
		Date:          day("2026-03-02"),
		Status:        "present",
		CheckIn:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		HoursWorked:   &hours,
	}))

	env := d.last(t)
	assert.Equal(t, events.AttendanceMarked, env.EventType)
	data, ok := env.Attendance()
	require.True(t, ok)
	assert.Equal(t, "2026-03-02", data.Date)
	require.NotNil(t, data.CheckIn)
	assert.Equal(t, "2026-03-02T09:00:00Z", *data.CheckIn)
	assert.Nil(t, data.CheckOut)
}

func TestCompliancePublisher(t *testing.T) {
	d := &recordingDispatcher{}
	p := NewCompliancePublisher(events.NewFactory("compliance-service"), d, zap.NewNop())

	require.True(t, p.Publish(context.Background(), "violation", ComplianceResult{
		CheckType:    "data_retention",
		ResourceType: "employee",
		ResourceID:   7,
		Status:       "failed",
		Violations:   []string{"record kept past retention"},
		Severity:     events.SeverityHigh,
	}))

	env := d.last(t)
	assert.Equal(t, events.ComplianceViolation, env.EventType)
	assert.Equal(t, "employee:7", env.Key())
	data, ok := env.Compliance()
	require.True(t, ok)
	assert.Nil(t, data.ComplianceCheckID)
}

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ *events.Envelope) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return true
}

func (p *capturePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func TestUserPublisher_ThroughDispatcher(t *testing.T) {
	sink := &capturePublisher{}
	dispatcher := publish.NewDispatcher(sink, zap.NewNop(), publish.WithTopics(func(d events.Domain) string {
		return string(d) + "-events"
	}))
	p := NewUserPublisher(events.NewFactory("user-service"), dispatcher, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, p.Publish(ctx, "suspended", UserChange{
		UserID: 1, Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Reason: "policy",
	}))
	cancel()

	require.NoError(t, dispatcher.Close(context.Background()))
	assert.Equal(t, []string{"user-events"}, sink.published())
}
