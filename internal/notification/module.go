package notification

import (
	"context"

	"github.com/Sokol111/hrms-commons/pkg/core/config"
	"github.com/Sokol111/hrms-commons/pkg/core/health"
	"github.com/Sokol111/hrms-commons/pkg/core/worker"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/http/ingest"
	kafkaconfig "github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/consumer"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/dlq"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/producer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ConsumerName is the kafka.consumers entry the notification consumer reads.
const ConsumerName = "notification"

type moduleOptions struct {
	mailer Mailer
}

// ModuleOption configures the notification module.
type ModuleOption func(*moduleOptions)

// WithMailer replaces the log mailer.
func WithMailer(m Mailer) ModuleOption {
	return func(o *moduleOptions) {
		o.mailer = m
	}
}

// Runner is the notification consumer loop. It is a no-op when consumers
// are disabled.
type Runner struct {
	inner *consumer.Runner
	log   *zap.Logger
}

func (r *Runner) Run(ctx context.Context) error {
	if r.inner == nil {
		r.log.Info("notification consumer disabled")
		return nil
	}
	return r.inner.Run(ctx)
}

// NewNotificationModule wires the notification consumer, its DLQ and the
// ingest route for the notification topic. It needs the kafka, sqlstore and
// http modules.
func NewNotificationModule(opts ...ModuleOption) fx.Option {
	o := &moduleOptions{mailer: LogMailer{}}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("notification",
		fx.Provide(
			func() Mailer { return o.mailer },
			NewLogRepository,
			NewService,
		),
		fx.Provide(fx.Private, newRedirector),
		fx.Provide(
			fx.Annotate(newIngestRoute, fx.ResultTags(`group:"ingest_routes"`)),
			newRunner,
		),
		fx.Provide(worker.Register[*Runner]("notification-consumer")),
	)
}

func newRedirector(conf kafkaconfig.Config, app config.AppConfig, factory *producer.Factory, log *zap.Logger) *dlq.Redirector {
	return dlq.NewRedirector(conf.DLQTopic(events.DomainNotification), app.ServiceName, factory,
		log.With(zap.String("component", "notification-dlq")))
}

func newIngestRoute(conf kafkaconfig.Config, svc *Service, redirector *dlq.Redirector) ingest.Route {
	return ingest.Route{
		Topic:   conf.Topic(events.DomainNotification),
		Decode:  events.DecoderFor(events.DomainNotification),
		Handler: svc.Handle,
		DLQ:     redirector.Message,
	}
}

func newRunner(lc fx.Lifecycle, log *zap.Logger, app config.AppConfig, conf kafkaconfig.Config, readiness health.ComponentManager,
	consumers *consumer.Factory, producers *producer.Factory, svc *Service) (*Runner, error) {
	r := &Runner{log: log}
	if !conf.ConsumerEnabled() {
		return r, nil
	}
	c, err := consumers.New(ConsumerName, consumer.WithDecoder(events.DecoderFor(events.DomainNotification)))
	if err != nil {
		return nil, err
	}
	if !consumer.Attach(lc, conf, readiness, c) {
		return r, nil
	}

	var dlqHandler consumer.DLQHandler
	if cfg := c.Config(); cfg.DLQEnabled() {
		redirector := dlq.NewRedirector(cfg.DLQTopic, app.ServiceName, producers,
			log.With(zap.String("component", "notification-dlq")))
		dlqHandler = redirector.Message
	}
	r.inner = consumer.NewRunner(c, consumer.WithHandler(svc.Handle, dlqHandler))
	return r, nil
}
