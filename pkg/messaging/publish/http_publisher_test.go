package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHTTPPublisher(url string, retries int) *HTTPPublisher {
	p := NewHTTPPublisher(http.DefaultClient, url+"/", retries, zap.NewNop())
	p.initial = time.Millisecond
	return p
}

func TestHTTPPublisher_Delivers(t *testing.T) {
	var gotPath, gotID, gotType string
	var got events.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.Header.Get(producer.HeaderEventID)
		gotType = r.Header.Get(producer.HeaderEventType)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	env := leaveEvent(t)
	ok := newTestHTTPPublisher(srv.URL, 3).Publish(context.Background(), "leave-queue", env)

	require.True(t, ok)
	assert.Equal(t, "/api/v1/events/leave-queue", gotPath)
	assert.Equal(t, env.EventID, gotID)
	assert.Equal(t, "leave.approved", gotType)
	assert.Equal(t, env.EventID, got.EventID)
	leave, isLeave := got.Leave()
	require.True(t, isLeave)
	assert.Equal(t, int64(42), leave.LeaveID)
}

func TestHTTPPublisher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ok := newTestHTTPPublisher(srv.URL, 3).Publish(context.Background(), "leave-queue", leaveEvent(t))

	assert.True(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPPublisher_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ok := newTestHTTPPublisher(srv.URL, 2).Publish(context.Background(), "leave-queue", leaveEvent(t))

	assert.False(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPPublisher_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown topic", http.StatusNotFound)
	}))
	defer srv.Close()

	ok := newTestHTTPPublisher(srv.URL, 5).Publish(context.Background(), "nope", leaveEvent(t))

	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPPublisher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ok := newTestHTTPPublisher(url, 1).Publish(context.Background(), "leave-queue", leaveEvent(t))

	assert.False(t, ok)
}
