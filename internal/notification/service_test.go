package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/persistence/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockMailer struct {
	sendFunc func(ctx context.Context, email Email) error
	sent     []Email
}

func (m *mockMailer) Send(ctx context.Context, email Email) error {
	m.sent = append(m.sent, email)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, email)
	}
	return nil
}

func newTestService(t *testing.T, mailer Mailer) (*Service, LogRepository) {
	t.Helper()
	store, err := sqlstore.Open(sqlstore.Config{DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())

	repo := NewLogRepository(store)
	svc := NewService(mailer, repo)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func notificationEvent(t *testing.T, data events.NotificationData) *events.Envelope {
	t.Helper()
	env, err := events.NewFactory("leave-service").NewNotificationEvent(events.LeaveApproved, data)
	require.NoError(t, err)
	return env
}

func validNotification() events.NotificationData {
	name := "Jane"
	return events.NotificationData{
		RecipientEmail: "jane@example.com",
		RecipientName:  &name,
		Subject:        "Leave approved",
		TemplateName:   "leave_approved",
		TemplateData:   map[string]string{"days": "5"},
		Priority:       events.PriorityHigh,
	}
}

func TestService_Handle_Sends(t *testing.T) {
	mailer := &mockMailer{}
	svc, repo := newTestService(t, mailer)
	env := notificationEvent(t, validNotification())

	require.NoError(t, svc.Handle(context.Background(), env))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, Email{
		To:       "jane@example.com",
		Name:     "Jane",
		Subject:  "Leave approved",
		Template: "leave_approved",
		Data:     map[string]string{"days": "5"},
		Priority: events.PriorityHigh,
	}, mailer.sent[0])

	entries, err := repo.ListByRecipient(context.Background(), "jane@example.com", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, env.EventID, entries[0].EventID)
	assert.Equal(t, "leave.approved", entries[0].EventType)
	assert.Equal(t, StatusSent, entries[0].Status)
	assert.Nil(t, entries[0].ErrorMessage)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), entries[0].CreatedAt)
}

func TestService_Handle_MailerFailure(t *testing.T) {
	mailer := &mockMailer{sendFunc: func(context.Context, Email) error { return errors.New("smtp down") }}
	svc, repo := newTestService(t, mailer)

	err := svc.Handle(context.Background(), notificationEvent(t, validNotification()))

	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.ErrorContains(t, err, "smtp down")
	entries, err := repo.ListByRecipient(context.Background(), "jane@example.com", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusFailed, entries[0].Status)
	require.NotNil(t, entries[0].ErrorMessage)
	assert.Equal(t, "smtp down", *entries[0].ErrorMessage)
}

func TestService_Handle_SkipsIncompleteEvents(t *testing.T) {
	mailer := &mockMailer{}
	svc, _ := newTestService(t, mailer)
	raw := []byte(`{"event_id":"e-1","event_type":"user.created","timestamp":"2026-03-01T00:00:00Z",
		"source_service":"user-service","data":{"recipient_email":"","subject":"Hi","template_name":"welcome"}}`)
	env, err := events.DecodeAs(raw, events.DomainNotification)
	require.NoError(t, err)

	assert.NoError(t, svc.Handle(context.Background(), env))
	assert.Empty(t, mailer.sent)
}

func TestService_Handle_WrongPayload(t *testing.T) {
	svc, _ := newTestService(t, &mockMailer{})
	env, err := events.NewFactory("leave-service").NewLeaveEvent(events.LeaveApproved, events.LeaveData{
		LeaveID: 1, EmployeeID: 2, EmployeeEmail: "jane@example.com", LeaveType: "annual",
		StartDate: "2026-03-02", EndDate: "2026-03-02", Days: 1, Status: "approved",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Handle(context.Background(), env), events.ErrInvalidPayload)
}
