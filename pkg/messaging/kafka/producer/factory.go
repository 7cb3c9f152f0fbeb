package producer

import (
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"go.uber.org/zap"
)

// Factory builds producers that share the connection settings of one service.
type Factory struct {
	brokers   string
	cfg       config.ProducerConfig
	newClient ClientFactory
	log       *zap.Logger
}

func NewFactory(conf config.Config, newClient ClientFactory, log *zap.Logger) *Factory {
	return &Factory{
		brokers:   conf.Brokers,
		cfg:       conf.Producer,
		newClient: newClient,
		log:       log,
	}
}

// New returns an unstarted producer with the service's settings.
func (f *Factory) New() *Producer {
	return New(f.brokers, f.cfg, f.newClient, f.log)
}

// NewWithClientID returns an unstarted producer with its own client id and no
// broker readiness wait, for short-lived use.
func (f *Factory) NewWithClientID(clientID string) *Producer {
	cfg := f.cfg
	cfg.ClientID = clientID
	cfg.ReadinessTimeoutSeconds = 0
	return New(f.brokers, cfg, f.newClient, f.log)
}
