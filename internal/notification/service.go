// Package notification is the notification service's event side: it turns
// notification events into emails and keeps a log of every attempt.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
)

// ErrDeliveryFailed wraps mailer errors; such events go to the DLQ.
var ErrDeliveryFailed = errors.New("email sending failed")

type Service struct {
	mailer Mailer
	log    LogRepository
	now    func() time.Time
}

func NewService(mailer Mailer, repo LogRepository) *Service {
	return &Service{mailer: mailer, log: repo, now: time.Now}
}

// Handle sends the email an event asks for. Events without a recipient,
// subject or template are logged and dropped; a mailer failure is returned so
// the event is dead-lettered.
func (s *Service) Handle(ctx context.Context, env *events.Envelope) error {
	log := logger.Get(ctx).With(
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType.String()),
	)

	data, ok := env.Notification()
	if !ok {
		return fmt.Errorf("%w: event %s carries no notification", events.ErrInvalidPayload, env.EventID)
	}
	if data.RecipientEmail == "" || data.Subject == "" || data.TemplateName == "" {
		log.Error("invalid notification event: missing required fields")
		return nil
	}
	log.Info("processing notification event")

	email := Email{
		To:       data.RecipientEmail,
		Subject:  data.Subject,
		Template: data.TemplateName,
		Data:     data.TemplateData,
		Priority: data.Priority,
	}
	if data.RecipientName != nil {
		email.Name = *data.RecipientName
	}

	sendErr := s.mailer.Send(ctx, email)
	entry := LogEntry{
		EventID:        env.EventID,
		EventType:      env.EventType.String(),
		RecipientEmail: data.RecipientEmail,
		Subject:        data.Subject,
		TemplateName:   data.TemplateName,
		Status:         StatusSent,
		CreatedAt:      s.now(),
	}
	if sendErr != nil {
		msg := sendErr.Error()
		entry.Status = StatusFailed
		entry.ErrorMessage = &msg
	}
	if err := s.log.Record(ctx, entry); err != nil {
		// the email may already be out; redelivery would send it twice
		log.Warn("failed to record notification", zap.Error(err))
	}

	if sendErr != nil {
		log.Error("failed to send notification", zap.String("recipient", data.RecipientEmail), zap.Error(sendErr))
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, sendErr)
	}
	log.Info("notification sent successfully", zap.String("recipient", data.RecipientEmail))
	return nil
}
