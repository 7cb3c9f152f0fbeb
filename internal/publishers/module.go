package publishers

import (
	"github.com/Sokol111/hrms-commons/pkg/core/config"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/publish"
	"go.uber.org/fx"
)

// NewPublishersModule provides the event factory for this service and one
// publisher per business domain. It needs the publish module.
func NewPublishersModule() fx.Option {
	return fx.Module("publishers",
		fx.Provide(newFactory),
		fx.Provide(fx.Private, func(d *publish.Dispatcher) Dispatcher { return d }),
		fx.Provide(
			NewLeavePublisher,
			NewEmployeePublisher,
			NewAttendancePublisher,
			NewCompliancePublisher,
			NewUserPublisher,
		),
	)
}

func newFactory(app config.AppConfig) *events.Factory {
	return events.NewFactory(app.ServiceName)
}
