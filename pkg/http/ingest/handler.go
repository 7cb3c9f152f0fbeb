// Package ingest is the receiving side of the HTTP publisher: it accepts
// envelopes over HTTP and hands them to the same handlers the bus consumers
// use.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Sokol111/hrms-commons/pkg/core/logger"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/http/problems"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/consumer"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// Path is the route of the endpoint.
	Path = "/api/v1/events/:topic"

	maxBodyBytes = 1 << 20
)

// Route binds a topic to the handler that processes its events.
type Route struct {
	Topic   string
	Decode  events.Decoder
	Handler consumer.Handler
	// DLQ receives events whose handler failed. Without it the failure is
	// reported to the caller as a 500.
	DLQ consumer.DLQHandler
}

// Accepted is the body of a successful response.
type Accepted struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

const (
	StatusAccepted     = "accepted"
	StatusDeadLettered = "dead-lettered"
)

type Handler struct {
	routes map[string]Route
	log    *zap.Logger
}

func NewHandler(log *zap.Logger, routes ...Route) *Handler {
	h := &Handler{routes: make(map[string]Route, len(routes)), log: log}
	for _, r := range routes {
		if r.Decode == nil {
			r.Decode = events.Decode
		}
		h.routes[r.Topic] = r
	}
	return h
}

// NewIngestModule serves every Route provided in the "ingest_routes" group.
func NewIngestModule() fx.Option {
	return fx.Invoke(
		fx.Annotate(
			func(r *gin.Engine, log *zap.Logger, routes []Route) {
				NewHandler(log.With(zap.String("component", "event-ingest")), routes...).Register(r)
			},
			fx.ParamTags(``, ``, `group:"ingest_routes"`),
		),
	)
}

// Register adds the endpoint to r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST(Path, h.Handle)
}

// Handle processes one posted envelope. Processing is detached from the
// client connection: once the body is read, a disconnect does not cancel the
// handler or the dead letter redirect.
func (h *Handler) Handle(c *gin.Context) {
	topic := c.Param("topic")
	route, ok := h.routes[topic]
	if !ok {
		fail(c, problems.NotFound("no handler for topic "+topic))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, problems.New(http.StatusRequestEntityTooLarge, "event body too large"))
			return
		}
		fail(c, problems.BadRequest("failed to read body"))
		return
	}

	env, err := route.Decode(body)
	if err != nil {
		fail(c, problems.BadRequest(err.Error()))
		return
	}

	ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
	ctx = context.WithoutCancel(ctx)
	ctx, log := logger.WithFields(ctx,
		zap.String("topic", topic),
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType.String()),
	)

	status := StatusAccepted
	if err := route.Handler(ctx, env); err != nil {
		log.Error("failed to process ingested event", zap.Error(err))
		if route.DLQ == nil {
			fail(c, problems.New(http.StatusInternalServerError, "event processing failed"))
			return
		}
		if dlqErr := route.DLQ(ctx, json.RawMessage(body), err); dlqErr != nil {
			log.Error("failed to redirect ingested event to dead letter queue", zap.Error(dlqErr))
		}
		status = StatusDeadLettered
	}

	c.JSON(http.StatusAccepted, Accepted{EventID: env.EventID, Status: status})
}

func fail(c *gin.Context, p *problems.Problem) {
	_ = c.Error(errors.New(p.Detail)).SetMeta(p)
	c.Abort()
	problems.Write(c, p)
}
