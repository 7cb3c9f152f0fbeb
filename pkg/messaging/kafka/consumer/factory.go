package consumer

import (
	"fmt"

	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"go.uber.org/zap"
)

// Factory builds consumers from the named entries of the kafka config.
type Factory struct {
	conf      config.Config
	newSource SourceFactory
	log       *zap.Logger
}

func NewFactory(conf config.Config, newSource SourceFactory, log *zap.Logger) *Factory {
	return &Factory{conf: conf, newSource: newSource, log: log}
}

// New returns an unstarted consumer for the consumer entry called name.
func (f *Factory) New(name string, opts ...Option) (*Consumer, error) {
	cfg, ok := f.conf.Consumer(name)
	if !ok {
		return nil, fmt.Errorf("consumer %q is not configured", name)
	}
	return New(f.conf.Brokers, cfg, f.newSource, f.log, opts...), nil
}
