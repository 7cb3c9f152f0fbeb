package notification_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Sokol111/hrms-commons/internal/notification"
	"github.com/Sokol111/hrms-commons/pkg/core"
	appconfig "github.com/Sokol111/hrms-commons/pkg/core/config"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/dlq"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"github.com/Sokol111/hrms-commons/pkg/persistence/sqlstore"
	"github.com/Sokol111/hrms-commons/pkg/testutil/kafkamem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

type SMTPError struct {
	Code int
	Msg  string
}

func (e *SMTPError) Error() string { return fmt.Sprintf("smtp %d: %s", e.Code, e.Msg) }

func TestNotificationModule_ConsumesAndDeadLetters(t *testing.T) {
	broker := kafkamem.New()
	mailer := notification.MailerFunc(func(_ context.Context, email notification.Email) error {
		if email.To == "bounce@example.com" {
			return &SMTPError{Code: 550, Msg: "mailbox unavailable"}
		}
		return nil
	})

	var (
		prod *producer.Producer
		repo notification.LogRepository
	)
	app := fxtest.New(t,
		core.NewCoreModule(
			core.WithAppConfig(appconfig.AppConfig{ServiceName: "Notification Service", Environment: "test"}),
			core.WithoutEnvFile(),
			core.WithoutConfigFile(),
		),
		kafka.NewKafkaModule(
			kafka.WithKafkaConfig(config.Config{
				Brokers: "memory:9092",
				Consumers: config.ConsumersConfig{
					PollTimeout:  5 * time.Millisecond,
					RestartDelay: 10 * time.Millisecond,
					ConsumerConfig: []config.ConsumerConfig{
						{Name: notification.ConsumerName, Domain: events.DomainNotification},
					},
				},
			}),
			kafka.WithClientFactory(broker.ClientFactory()),
			kafka.WithSourceFactory(broker.SourceFactory()),
		),
		sqlstore.NewSQLStoreModule(sqlstore.WithConfig(sqlstore.Config{DSN: ":memory:"})),
		notification.NewNotificationModule(notification.WithMailer(mailer)),
		fx.Populate(&prod, &repo),
	)
	app.RequireStart()
	defer app.RequireStop()

	factory := events.NewFactory("leave-service")
	send := func(to string) *events.Envelope {
		env, err := factory.NewNotificationEvent(events.LeaveApproved, events.NotificationData{
			RecipientEmail: to,
			Subject:        "Leave approved",
			TemplateName:   "leave_approved",
		})
		require.NoError(t, err)
		require.True(t, prod.SendEvent(context.Background(), "notification-queue", env))
		return env
	}
	ok := send("jane@example.com")
	bounced := send("bounce@example.com")

	require.Eventually(t, func() bool { return len(broker.Messages("notification-dlq")) == 1 }, 3*time.Second, 5*time.Millisecond)

	var rec dlq.Record
	require.NoError(t, json.Unmarshal(broker.Messages("notification-dlq")[0].Value, &rec))
	assert.Equal(t, "Notification Service", rec.Service)
	assert.Contains(t, rec.Error, "mailbox unavailable")
	assert.Equal(t, "SMTPError", rec.ErrorType)
	var original struct {
		EventID string `json:"event_id"`
	}
	require.NoError(t, json.Unmarshal(rec.OriginalEvent, &original))
	assert.Equal(t, bounced.EventID, original.EventID)

	var sent []notification.LogEntry
	require.Eventually(t, func() bool {
		var err error
		sent, err = repo.ListByRecipient(context.Background(), "jane@example.com", 10)
		return err == nil && len(sent) == 1
	}, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, ok.EventID, sent[0].EventID)
	assert.Equal(t, notification.StatusSent, sent[0].Status)
}
