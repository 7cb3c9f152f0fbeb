package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Sokol111/hrms-commons/internal/audit"
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

func TestAuditModule_BatchesAndDeadLetters(t *testing.T) {
	broker := kafkamem.New()

	var (
		prod *producer.Producer
		repo audit.Repository
	)
	app := fxtest.New(t,
		core.NewCoreModule(
			core.WithAppConfig(appconfig.AppConfig{ServiceName: "Audit Service", Environment: "test"}),
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
						{Name: audit.ConsumerName, Domain: events.DomainAudit, MaxPollRecords: 2},
					},
				},
			}),
			kafka.WithClientFactory(broker.ClientFactory()),
			kafka.WithSourceFactory(broker.SourceFactory()),
		),
		sqlstore.NewSQLStoreModule(sqlstore.WithConfig(sqlstore.Config{DSN: ":memory:"})),
		audit.NewAuditModule(),
		fx.Populate(&prod, &repo),
	)
	app.RequireStart()
	defer app.RequireStop()

	factory := events.NewFactory("employee-service")
	send := func(resourceID int64) *events.Envelope {
		env, err := factory.NewAuditEvent(events.AuditEmployeeAction, events.AuditData{
			UserID:       7,
			Action:       "update",
			ResourceType: "employee",
			ResourceID:   resourceID,
		})
		require.NoError(t, err)
		require.True(t, prod.SendEvent(context.Background(), "audit-queue", env))
		return env
	}

	send(1)
	send(2)
	require.Eventually(t, func() bool {
		logs, err := repo.List(context.Background(), audit.Filter{UserID: 7})
		return err == nil && len(logs) == 2
	}, 3*time.Second, 5*time.Millisecond)

	// An undecodable event is dead-lettered alone; its neighbour is stored.
	send(3)
	require.True(t, prod.SendRaw(context.Background(), "audit-queue",
		json.RawMessage(`{"event_id":"broken","event_type":"audit.employee.action","data":"not an object"}`)))

	require.Eventually(t, func() bool {
		logs, err := repo.List(context.Background(), audit.Filter{UserID: 7})
		return err == nil && len(logs) == 3 && len(broker.Messages("audit-dlq")) == 1
	}, 3*time.Second, 5*time.Millisecond)

	var rec dlq.Record
	require.NoError(t, json.Unmarshal(broker.Messages("audit-dlq")[0].Value, &rec))
	assert.Equal(t, "Audit Service", rec.Service)
	var original struct {
		EventID string `json:"event_id"`
	}
	require.NoError(t, json.Unmarshal(rec.OriginalEvent, &original))
	assert.Equal(t, "broken", original.EventID)
	assert.Contains(t, rec.Error, "decode event")
}
