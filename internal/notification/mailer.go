package notification

import (
	"context"

	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"go.uber.org/zap"
)

// Email is one rendered notification.
type Email struct {
	To       string
	Name     string
	Subject  string
	Template string
	Data     map[string]string
	Priority events.Priority
}

// Mailer delivers emails. SMTP and provider clients live in the services.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, email Email) error

func (f MailerFunc) Send(ctx context.Context, email Email) error {
	return f(ctx, email)
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, email Email) error {
	logger.Get(ctx).Info("email delivered to log",
		zap.String("recipient", email.To),
		zap.String("subject", email.Subject),
		zap.String("template", email.Template),
		zap.String("priority", string(email.Priority)),
		zap.Any("template_data", email.Data),
	)
	return nil
}
