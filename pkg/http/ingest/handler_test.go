package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/http/problems"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func auditBody(t *testing.T) ([]byte, *events.Envelope) {
	t.Helper()
	env, err := events.NewFactory("employee-service").NewAuditEvent(events.AuditEmployeeAction, events.AuditData{
		UserID:       3,
		Action:       "update",
		ResourceType: "employee",
		ResourceID:   7,
	})
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return b, env
}

func post(h *Handler, topic string, body []byte) *httptest.ResponseRecorder {
	return postContext(context.Background(), h, topic, body)
}

func postContext(ctx context.Context, h *Handler, topic string, body []byte) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	rec := httptest.NewRecorder()
	req := httptest.NewRequestWithContext(ctx, http.MethodPost, "/api/v1/events/"+topic, bytes.NewReader(body))
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Accepts(t *testing.T) {
	body, sent := auditBody(t)
	var got *events.Envelope
	h := NewHandler(zap.NewNop(), Route{
		Topic: "audit-queue",
		Handler: func(_ context.Context, env *events.Envelope) error {
			got = env
			return nil
		},
	})

	rec := post(h, "audit-queue", body)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp Accepted
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, Accepted{EventID: sent.EventID, Status: StatusAccepted}, resp)
	require.NotNil(t, got)
	audit, ok := got.Audit()
	require.True(t, ok)
	assert.Equal(t, "employee", audit.ResourceType)
}

func TestHandler_UnknownTopic(t *testing.T) {
	body, _ := auditBody(t)
	rec := post(NewHandler(zap.NewNop()), "payroll", body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, problems.ContentType, rec.Header().Get("Content-Type"))
}

func TestHandler_InvalidEnvelope(t *testing.T) {
	h := NewHandler(zap.NewNop(), Route{
		Topic:   "audit-queue",
		Handler: func(context.Context, *events.Envelope) error { return nil },
	})

	rec := post(h, "audit-queue", []byte(`{"event_type":"payroll.closed","data":{}}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var p problems.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Contains(t, p.Detail, "payroll.closed")
}

func TestHandler_TooLarge(t *testing.T) {
	h := NewHandler(zap.NewNop(), Route{
		Topic:   "audit-queue",
		Handler: func(context.Context, *events.Envelope) error { return nil },
	})

	rec := post(h, "audit-queue", []byte(strings.Repeat("x", maxBodyBytes+1)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandler_FailureWithDLQ(t *testing.T) {
	body, _ := auditBody(t)
	boom := errors.New("insert failed")
	var dlqRaw json.RawMessage
	h := NewHandler(zap.NewNop(), Route{
		Topic:   "audit-queue",
		Handler: func(context.Context, *events.Envelope) error { return boom },
		DLQ: func(_ context.Context, raw json.RawMessage, cause error) error {
			assert.ErrorIs(t, cause, boom)
			dlqRaw = raw
			return nil
		},
	})

	rec := post(h, "audit-queue", body)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp Accepted
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusDeadLettered, resp.Status)
	assert.JSONEq(t, string(body), string(dlqRaw))
}

func TestHandler_FailureWithoutDLQ(t *testing.T) {
	body, _ := auditBody(t)
	h := NewHandler(zap.NewNop(), Route{
		Topic:   "audit-queue",
		Handler: func(context.Context, *events.Envelope) error { return errors.New("db down") },
	})

	rec := post(h, "audit-queue", body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_ClientDisconnectDoesNotCancelProcessing(t *testing.T) {
	body, _ := auditBody(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var handlerErr, dlqErr error
	h := NewHandler(zap.NewNop(), Route{
		Topic: "audit-queue",
		Handler: func(ctx context.Context, _ *events.Envelope) error {
			handlerErr = ctx.Err()
			return errors.New("insert failed")
		},
		DLQ: func(ctx context.Context, _ json.RawMessage, _ error) error {
			dlqErr = ctx.Err()
			return nil
		},
	})

	rec := postContext(ctx, h, "audit-queue", body)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NoError(t, handlerErr)
	assert.NoError(t, dlqErr)
}
