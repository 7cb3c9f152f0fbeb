package events

import "strconv"

// Payload is the data union carried by an Envelope. The set of implementations
// is closed: one struct per Domain.
type Payload interface {
	Domain() Domain
	// PartitionKey is the resource id that keeps events about one resource ordered.
	PartitionKey() string
	sealed()
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

type NotificationData struct {
	RecipientEmail string            `json:"recipient_email" validate:"required,email"`
	RecipientName  *string           `json:"recipient_name"`
	Subject        string            `json:"subject" validate:"required"`
	TemplateName   string            `json:"template_name" validate:"required"`
	TemplateData   map[string]string `json:"template_data"`
	Priority       Priority          `json:"priority" validate:"omitempty,oneof=low normal high"`
}

func (NotificationData) Domain() Domain         { return DomainNotification }
func (d NotificationData) PartitionKey() string { return d.RecipientEmail }
func (NotificationData) sealed()                {}

// FieldChange records one field's transition in an audited change.
type FieldChange struct {
	Field    string  `json:"field" validate:"required"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

type AuditData struct {
	UserID       int64         `json:"user_id" validate:"required"`
	Action       string        `json:"action" validate:"required"`
	ResourceType string        `json:"resource_type" validate:"required"`
	ResourceID   int64         `json:"resource_id" validate:"required"`
	Description  *string       `json:"description"`
	IPAddress    *string       `json:"ip_address" validate:"omitempty,ip"`
	UserAgent    *string       `json:"user_agent"`
	OldValue     *string       `json:"old_value"`
	NewValue     *string       `json:"new_value"`
	Changes      []FieldChange `json:"changes" validate:"omitempty,dive"`
}

func (AuditData) Domain() Domain { return DomainAudit }
func (d AuditData) PartitionKey() string {
	return d.ResourceType + ":" + strconv.FormatInt(d.ResourceID, 10)
}
func (AuditData) sealed() {}

type UserData struct {
	UserID    int64   `json:"user_id" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name"`
	Role      *string `json:"role"`
	Status    *string `json:"status"`
	Reason    *string `json:"reason"`
}

func (UserData) Domain() Domain         { return DomainUser }
func (d UserData) PartitionKey() string { return strconv.FormatInt(d.UserID, 10) }
func (UserData) sealed()                {}

type EmployeeData struct {
	EmployeeID      int64   `json:"employee_id" validate:"required"`
	UserID          *int64  `json:"user_id"`
	Email           string  `json:"email" validate:"required,email"`
	FirstName       string  `json:"first_name" validate:"required"`
	LastName        string  `json:"last_name"`
	Department      *string `json:"department"`
	Position        *string `json:"position"`
	Status          *string `json:"status"`
	HireDate        *string `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
	TerminationDate *string `json:"termination_date" validate:"omitempty,datetime=2006-01-02"`
}

func (EmployeeData) Domain() Domain         { return DomainEmployee }
func (d EmployeeData) PartitionKey() string { return strconv.FormatInt(d.EmployeeID, 10) }
func (EmployeeData) sealed()                {}

type LeaveData struct {
	LeaveID         int64   `json:"leave_id" validate:"required"`
	EmployeeID      int64   `json:"employee_id" validate:"required"`
	EmployeeEmail   string  `json:"employee_email" validate:"required,email"`
	EmployeeName    *string `json:"employee_name"`
	LeaveType       string  `json:"leave_type" validate:"required"`
	StartDate       string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Days            int     `json:"days" validate:"gte=0"`
	Status          string  `json:"status" validate:"required"`
	Reason          *string `json:"reason"`
	ApprovedBy      *string `json:"approved_by"`
	ApprovedByName  *string `json:"approved_by_name"`
	RejectionReason *string `json:"rejection_reason"`
}

func (LeaveData) Domain() Domain         { return DomainLeave }
func (d LeaveData) PartitionKey() string { return strconv.FormatInt(d.LeaveID, 10) }
func (LeaveData) sealed()                {}

type AttendanceData struct {
	AttendanceID  int64    `json:"attendance_id" validate:"required"`
	EmployeeID    int64    `json:"employee_id" validate:"required"`
	EmployeeEmail string   `json:"employee_email" validate:"required,email"`
	EmployeeName  *string  `json:"employee_name"`
	Date          string   `json:"date" validate:"required,datetime=2006-01-02"`
	CheckIn       *string  `json:"check_in"`
	CheckOut      *string  `json:"check_out"`
	Status        string   `json:"status" validate:"required,oneof=present absent late half_day"`
	HoursWorked   *float64 `json:"hours_worked" validate:"omitempty,gte=0"`
	Notes         *string  `json:"notes"`
}

func (AttendanceData) Domain() Domain         { return DomainAttendance }
func (d AttendanceData) PartitionKey() string { return strconv.FormatInt(d.EmployeeID, 10) }
func (AttendanceData) sealed()                {}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type ComplianceData struct {
	ComplianceCheckID *int64   `json:"compliance_check_id"`
	CheckType         string   `json:"check_type" validate:"required"`
	ResourceType      string   `json:"resource_type" validate:"required"`
	ResourceID        int64    `json:"resource_id" validate:"required"`
	Status            string   `json:"status" validate:"required,oneof=passed failed warning"`
	Violations        []string `json:"violations"`
	Recommendations   []string `json:"recommendations"`
	Severity          Severity `json:"severity" validate:"omitempty,oneof=low medium high critical"`
}

func (ComplianceData) Domain() Domain { return DomainCompliance }
func (d ComplianceData) PartitionKey() string {
	return d.ResourceType + ":" + strconv.FormatInt(d.ResourceID, 10)
}
func (ComplianceData) sealed() {}
