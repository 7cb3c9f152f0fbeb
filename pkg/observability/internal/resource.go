package internal

import (
	"context"
	"net/http"
	"strings"

	appconfig "github.com/Sokol111/hrms-commons/pkg/core/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ExcludedPaths are never traced or measured.
var ExcludedPaths = []string{"/health", "/metrics"}

// NewResource describes the running service to the collector.
func NewResource(ctx context.Context, appCfg appconfig.AppConfig) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(appCfg.ServiceName),
			semconv.ServiceVersionKey.String(appCfg.ServiceVersion),
			semconv.DeploymentEnvironmentNameKey.String(appCfg.Environment),
		),
	)
}

// FilterRequest reports whether r should be instrumented.
func FilterRequest(r *http.Request) bool {
	for _, excluded := range ExcludedPaths {
		if strings.HasPrefix(r.URL.Path, excluded) {
			return false
		}
	}
	return true
}
