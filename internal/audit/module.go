package audit

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

// ConsumerName is the kafka.consumers entry the audit consumer reads.
const ConsumerName = "audit"

// Runner is the audit batch consumer loop. It is a no-op when consumers are
// disabled.
type Runner struct {
	inner *consumer.Runner
	log   *zap.Logger
}

func (r *Runner) Run(ctx context.Context) error {
	if r.inner == nil {
		r.log.Info("audit consumer disabled")
		return nil
	}
	return r.inner.Run(ctx)
}

// NewAuditModule wires the audit batch consumer, its DLQ and the ingest route
// for the audit topic. It needs the kafka, sqlstore and http modules.
func NewAuditModule() fx.Option {
	return fx.Module("audit",
		fx.Provide(
			NewRepository,
			NewService,
		),
		fx.Provide(fx.Private, newRedirector),
		fx.Provide(
			fx.Annotate(newIngestRoute, fx.ResultTags(`group:"ingest_routes"`)),
			newRunner,
		),
		fx.Provide(worker.Register[*Runner]("audit-consumer")),
	)
}

func newRedirector(conf kafkaconfig.Config, app config.AppConfig, factory *producer.Factory, log *zap.Logger) *dlq.Redirector {
	return dlq.NewRedirector(conf.DLQTopic(events.DomainAudit), app.ServiceName, factory,
		log.With(zap.String("component", "audit-dlq")))
}

func newIngestRoute(conf kafkaconfig.Config, svc *Service, redirector *dlq.Redirector) ingest.Route {
	return ingest.Route{
		Topic:   conf.Topic(events.DomainAudit),
		Decode:  events.DecoderFor(events.DomainAudit),
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
	c, err := consumers.New(ConsumerName, consumer.WithDecoder(events.DecoderFor(events.DomainAudit)))
	if err != nil {
		return nil, err
	}
	if !consumer.Attach(lc, conf, readiness, c) {
		return r, nil
	}

	cfg := c.Config()
	var dlqHandler consumer.BatchDLQHandler
	if cfg.DLQEnabled() {
		redirector := dlq.NewRedirector(cfg.DLQTopic, app.ServiceName, producers,
			log.With(zap.String("component", "audit-dlq")))
		dlqHandler = redirector.Batch
	}
	r.inner = consumer.NewRunner(c, consumer.WithBatchHandler(svc.HandleBatch, cfg.MaxPollRecords, dlqHandler))
	return r, nil
}
