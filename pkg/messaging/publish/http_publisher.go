package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// IngestPath is where the receiving service accepts events.
const IngestPath = "/api/v1/events/"

// HTTPPublisher posts events to another service's ingest endpoint.
// Connection errors, 429 and 5xx answers are retried with exponential
// backoff; other 4xx answers are final.
type HTTPPublisher struct {
	client     *http.Client
	baseURL    string
	maxRetries uint64
	initial    time.Duration
	log        *zap.Logger
}

func NewHTTPPublisher(client *http.Client, baseURL string, maxRetries int, log *zap.Logger) *HTTPPublisher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPPublisher{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: uint64(maxRetries),
		initial:    200 * time.Millisecond,
		log:        log,
	}
}

func (h *HTTPPublisher) Publish(ctx context.Context, topic string, env *events.Envelope) bool {
	log := h.log.With(
		zap.String("topic", topic),
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType.String()),
	)

	body, err := json.Marshal(env)
	if err != nil {
		log.Error("failed to serialize event", zap.Error(err))
		return false
	}
	target := h.baseURL + IngestPath + url.PathEscape(topic)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = h.initial
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, h.maxRetries), ctx)

	err = backoff.RetryNotify(func() error {
		return h.post(ctx, target, env, body)
	}, policy, func(err error, wait time.Duration) {
		log.Warn("http publish failed, retrying", zap.Error(err), zap.Duration("retry_in", wait))
	})
	if err != nil {
		log.Error("http publish failed", zap.Error(err))
		return false
	}
	log.Debug("event delivered over http")
	return true
}

func (h *HTTPPublisher) post(ctx context.Context, target string, env *events.Envelope, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(producer.HeaderEventID, env.EventID)
	req.Header.Set(producer.HeaderEventType, env.EventType.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("ingest answered %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	default:
		return backoff.Permanent(fmt.Errorf("ingest rejected event with %d: %s", resp.StatusCode, bytes.TrimSpace(detail)))
	}
}
