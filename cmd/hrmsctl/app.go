package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Sokol111/hrms-commons/internal/audit"
	"github.com/Sokol111/hrms-commons/internal/notification"
	"github.com/Sokol111/hrms-commons/internal/publishers"
	"github.com/Sokol111/hrms-commons/pkg/core"
	httpmodule "github.com/Sokol111/hrms-commons/pkg/http"
	"github.com/Sokol111/hrms-commons/pkg/messaging"
	"github.com/Sokol111/hrms-commons/pkg/observability"
	"github.com/Sokol111/hrms-commons/pkg/persistence/sqlstore"
	"go.uber.org/fx"
)

var consumerModules = map[string]func() fx.Option{
	notification.ConsumerName: func() fx.Option { return notification.NewNotificationModule() },
	audit.ConsumerName:        audit.NewAuditModule,
}

func consumerNames() []string {
	names := make([]string, 0, len(consumerModules))
	for name := range consumerModules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func coreModule(flags *globalFlags) fx.Option {
	var opts []core.Option
	if flags.configFile != "" {
		opts = append(opts, core.WithConfigFile(flags.configFile))
	}
	if flags.noEnvFile {
		opts = append(opts, core.WithoutEnvFile())
	}
	return core.NewCoreModule(opts...)
}

type serviceOptions struct {
	consumers []string
	withHTTP  bool
}

func serviceApp(flags *globalFlags, so serviceOptions) (*fx.App, error) {
	modules, err := serviceModules(flags, so)
	if err != nil {
		return nil, err
	}
	return fx.New(modules...), nil
}

// serviceModules composes a long running service: the selected consumers,
// and optionally the HTTP surface with the publish side.
func serviceModules(flags *globalFlags, so serviceOptions) ([]fx.Option, error) {
	var messagingOpts []messaging.MessagingOption
	if !so.withHTTP {
		messagingOpts = append(messagingOpts, messaging.WithoutPublisher())
	}
	modules := []fx.Option{
		coreModule(flags),
		observability.NewObservabilityModule(),
		messaging.NewMessagingModule(messagingOpts...),
		sqlstore.NewSQLStoreModule(),
	}
	if so.withHTTP {
		modules = append(modules,
			httpmodule.NewHTTPModule(),
			publishers.NewPublishersModule(),
		)
	}

	seen := map[string]bool{}
	for _, name := range so.consumers {
		name = strings.TrimSpace(name)
		module, ok := consumerModules[name]
		if !ok {
			return nil, fmt.Errorf("unknown consumer %q, expected one of %s", name, strings.Join(consumerNames(), ", "))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		modules = append(modules, module())
	}

	return modules, nil
}
