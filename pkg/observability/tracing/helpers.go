package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceIDs returns the trace and span id of the span in ctx, or empty
// strings when there is none.
func TraceIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
