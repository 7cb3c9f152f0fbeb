package problems

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

const ContentType = "application/problem+json"

// Problem represents RFC7807 Problem Details for HTTP APIs
type Problem struct {
	Type     string       `json:"type,omitempty"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// New creates a new Problem with the given status and detail
func New(status int, detail string) *Problem {
	return &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

func BadRequest(detail string) *Problem {
	return New(http.StatusBadRequest, detail)
}

func NotFound(detail string) *Problem {
	return New(http.StatusNotFound, detail)
}

func ServiceUnavailable(detail string) *Problem {
	return New(http.StatusServiceUnavailable, detail)
}

func GatewayTimeout(detail string) *Problem {
	return New(http.StatusGatewayTimeout, detail)
}

// Write sends p as the response, filling the instance and trace id from the
// request.
func Write(c *gin.Context, p *Problem) {
	if p.Instance == "" {
		p.Instance = c.Request.URL.Path
	}
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		p.TraceID = sc.TraceID().String()
	}
	c.Header("Content-Type", ContentType)
	c.JSON(p.Status, p)
}
