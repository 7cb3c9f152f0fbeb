package publishers

import (
	"context"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
)

// ComplianceResult is the outcome of a compliance check on one resource.
type ComplianceResult struct {
	CheckID         int64
	CheckType       string
	ResourceType    string
	ResourceID      int64
	Status          string
	Violations      []string
	Recommendations []string
	Severity        events.Severity
}

type CompliancePublisher struct {
	base
}

func NewCompliancePublisher(factory *events.Factory, dispatcher Dispatcher, log *zap.Logger) *CompliancePublisher {
	return &CompliancePublisher{base{
		factory:    factory,
		dispatcher: dispatcher,
		log:        log.With(zap.String("publisher", "compliance")),
		domain:     events.DomainCompliance,
		actions: map[string]events.EventType{
			"violation":       events.ComplianceViolation,
			"alert":           events.ComplianceAlert,
			"check_completed": events.ComplianceCheckCompleted,
		},
	}}
}

// Publish dispatches the compliance event for action: violation, alert or
// check_completed.
func (p *CompliancePublisher) Publish(ctx context.Context, action string, r ComplianceResult) bool {
	t, ok := p.eventType(action)
	if !ok {
		return false
	}
	return p.dispatch(ctx, action, func() (*events.Envelope, error) {
		return p.factory.NewComplianceEvent(t, events.ComplianceData{
			ComplianceCheckID: optional(r.CheckID),
			CheckType:         r.CheckType,
			ResourceType:      r.ResourceType,
			ResourceID:        r.ResourceID,
			Status:            r.Status,
			Violations:        r.Violations,
			Recommendations:   r.Recommendations,
			Severity:          r.Severity,
		})
	}, zap.String("resource_type", r.ResourceType), zap.Int64("resource_id", r.ResourceID))
}
