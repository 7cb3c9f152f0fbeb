// Package audit is the audit service's event side: batches of audit events
// become rows of the audit trail.
package audit

import (
	"context"
	"fmt"

	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// HandleBatch stores a batch in one transaction. Events that carry no audit
// payload are logged and skipped. A storage error fails the whole batch.
func (s *Service) HandleBatch(ctx context.Context, envs []*events.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	log := logger.Get(ctx)
	log.Info("processing batch of audit events", zap.Int("batch_size", len(envs)))

	logs := make([]Log, 0, len(envs))
	for _, env := range envs {
		l, ok := toLog(env)
		if !ok {
			log.Error("event is not an audit event, skipping",
				zap.String("event_id", env.EventID),
				zap.String("event_type", env.EventType.String()),
			)
			continue
		}
		logs = append(logs, l)
	}
	if len(logs) == 0 {
		log.Warn("no valid audit logs in batch")
		return nil
	}

	inserted, err := s.repo.InsertBatch(ctx, logs)
	if err != nil {
		return fmt.Errorf("store audit batch: %w", err)
	}
	log.Info("audit logs inserted",
		zap.Int("inserted", inserted),
		zap.Int("duplicates", len(logs)-inserted),
		zap.Int("batch_size", len(envs)),
	)
	return nil
}

// Handle stores a single event, for the HTTP ingest path.
func (s *Service) Handle(ctx context.Context, env *events.Envelope) error {
	return s.HandleBatch(ctx, []*events.Envelope{env})
}

func toLog(env *events.Envelope) (Log, bool) {
	data, ok := env.Audit()
	if !ok {
		return Log{}, false
	}
	return Log{
		EventID:       env.EventID,
		UserID:        data.UserID,
		Action:        data.Action,
		ResourceType:  data.ResourceType,
		ResourceID:    data.ResourceID,
		Description:   data.Description,
		IPAddress:     data.IPAddress,
		UserAgent:     data.UserAgent,
		OldValue:      data.OldValue,
		NewValue:      data.NewValue,
		Changes:       data.Changes,
		SourceService: env.SourceService,
		Timestamp:     env.Timestamp,
	}, true
}
