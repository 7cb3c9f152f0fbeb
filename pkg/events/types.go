package events

import "fmt"

// EventType is the closed set of dotted event kinds placed on the bus.
type EventType string

const (
	UserCreated         EventType = "user.created"
	UserUpdated         EventType = "user.updated"
	UserDeleted         EventType = "user.deleted"
	UserSuspended       EventType = "user.suspended"
	UserActivated       EventType = "user.activated"
	UserPasswordChanged EventType = "user.password_changed"

	EmployeeCreated       EventType = "employee.created"
	EmployeeUpdated       EventType = "employee.updated"
	EmployeeTerminated    EventType = "employee.terminated"
	EmployeeStatusChanged EventType = "employee.status_changed"

	LeaveRequested EventType = "leave.requested"
	LeaveApproved  EventType = "leave.approved"
	LeaveRejected  EventType = "leave.rejected"
	LeaveCancelled EventType = "leave.cancelled"
	LeaveUpdated   EventType = "leave.updated"

	AttendanceMarked  EventType = "attendance.marked"
	AttendanceUpdated EventType = "attendance.updated"
	AttendanceDeleted EventType = "attendance.deleted"

	ComplianceViolation      EventType = "compliance.violation"
	ComplianceAlert          EventType = "compliance.alert"
	ComplianceCheckCompleted EventType = "compliance.check_completed"

	AuditUserAction       EventType = "audit.user.action"
	AuditEmployeeAction   EventType = "audit.employee.action"
	AuditLeaveAction      EventType = "audit.leave.action"
	AuditAttendanceAction EventType = "audit.attendance.action"
	AuditComplianceAction EventType = "audit.compliance.action"
)

// Domain names a payload family. It tags the Envelope's data union and keys
// per-domain topic configuration.
type Domain string

const (
	DomainNotification Domain = "notification"
	DomainAudit        Domain = "audit"
	DomainUser         Domain = "user"
	DomainEmployee     Domain = "employee"
	DomainLeave        Domain = "leave"
	DomainAttendance   Domain = "attendance"
	DomainCompliance   Domain = "compliance"
)

// Domains lists every payload family in a stable order.
func Domains() []Domain {
	return []Domain{
		DomainNotification, DomainAudit, DomainUser, DomainEmployee,
		DomainLeave, DomainAttendance, DomainCompliance,
	}
}

// IsValid reports whether d is a known domain.
func (d Domain) IsValid() bool {
	switch d {
	case DomainNotification, DomainAudit, DomainUser, DomainEmployee,
		DomainLeave, DomainAttendance, DomainCompliance:
		return true
	}
	return false
}

var eventDomains = map[EventType]Domain{
	UserCreated:         DomainUser,
	UserUpdated:         DomainUser,
	UserDeleted:         DomainUser,
	UserSuspended:       DomainUser,
	UserActivated:       DomainUser,
	UserPasswordChanged: DomainUser,

	EmployeeCreated:       DomainEmployee,
	EmployeeUpdated:       DomainEmployee,
	EmployeeTerminated:    DomainEmployee,
	EmployeeStatusChanged: DomainEmployee,

	LeaveRequested: DomainLeave,
	LeaveApproved:  DomainLeave,
	LeaveRejected:  DomainLeave,
	LeaveCancelled: DomainLeave,
	LeaveUpdated:   DomainLeave,

	AttendanceMarked:  DomainAttendance,
	AttendanceUpdated: DomainAttendance,
	AttendanceDeleted: DomainAttendance,

	ComplianceViolation:      DomainCompliance,
	ComplianceAlert:          DomainCompliance,
	ComplianceCheckCompleted: DomainCompliance,

	AuditUserAction:       DomainAudit,
	AuditEmployeeAction:   DomainAudit,
	AuditLeaveAction:      DomainAudit,
	AuditAttendanceAction: DomainAudit,
	AuditComplianceAction: DomainAudit,
}

// Domain returns the payload family an event type carries by default.
// Notification envelopes reuse the kinds of other domains, so a notification
// is never the default; see DecodeAs.
func (t EventType) Domain() Domain {
	return eventDomains[t]
}

func (t EventType) IsValid() bool {
	_, ok := eventDomains[t]
	return ok
}

func (t EventType) String() string {
	return string(t)
}

// ParseEventType validates s against the closed set.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
	return t, nil
}

// EventTypesOf returns the event types whose default domain is d, in declaration order.
func EventTypesOf(d Domain) []EventType {
	var out []EventType
	for _, t := range allEventTypes {
		if t.Domain() == d {
			out = append(out, t)
		}
	}
	return out
}

var allEventTypes = []EventType{
	UserCreated, UserUpdated, UserDeleted, UserSuspended, UserActivated, UserPasswordChanged,
	EmployeeCreated, EmployeeUpdated, EmployeeTerminated, EmployeeStatusChanged,
	LeaveRequested, LeaveApproved, LeaveRejected, LeaveCancelled, LeaveUpdated,
	AttendanceMarked, AttendanceUpdated, AttendanceDeleted,
	ComplianceViolation, ComplianceAlert, ComplianceCheckCompleted,
	AuditUserAction, AuditEmployeeAction, AuditLeaveAction, AuditAttendanceAction, AuditComplianceAction,
}
