package health

import (
	"net/http"

	coreHealth "github.com/Sokol111/hrms-commons/pkg/core/health"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type healthHandler struct {
	readiness coreHealth.ReadinessChecker
}

func newHealthHandler(r coreHealth.ReadinessChecker) *healthHandler {
	return &healthHandler{readiness: r}
}

// NewHealthRoutesModule registers /health/live and /health/ready.
func NewHealthRoutesModule() fx.Option {
	return fx.Options(
		fx.Provide(fx.Private, newHealthHandler),
		fx.Invoke(registerHealthRoutes),
	)
}

func registerHealthRoutes(r *gin.Engine, handler *healthHandler) {
	r.GET("/health/ready", handler.IsReady)
	r.GET("/health/live", handler.IsLive)
}

func (h *healthHandler) IsReady(c *gin.Context) {
	// detailed JSON on request, plain text for kubelet checks
	if c.Query("format") == "json" || c.GetHeader("Accept") == "application/json" {
		status := h.readiness.GetStatus()
		if status.Ready {
			c.JSON(http.StatusOK, status)
		} else {
			c.JSON(http.StatusServiceUnavailable, status)
		}
		return
	}

	if h.readiness.IsReady() {
		c.String(http.StatusOK, "ready")
	} else {
		c.String(http.StatusServiceUnavailable, "not ready")
	}
}

func (h *healthHandler) IsLive(c *gin.Context) {
	c.String(http.StatusOK, "alive")
}
