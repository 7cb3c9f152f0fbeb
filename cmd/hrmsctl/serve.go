package main

import (
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	so := serviceOptions{withHTTP: true}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the consumers with the HTTP ingest and health endpoints",
		Long: `Run the selected consumers together with the HTTP server, which serves
POST /api/v1/events/:topic and the health checks. Kafka start failures are
logged and the HTTP side keeps serving unless fail-on-broker-error is set.

Example:
  hrmsctl serve --config ./configs/config.local.yaml --consumers audit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := serviceApp(flags, so)
			if err != nil {
				return err
			}
			app.Run()
			return app.Err()
		},
	}

	cmd.Flags().StringSliceVar(&so.consumers, "consumers", consumerNames(), "Consumers to run")

	return cmd
}

func newConsumeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "consume <consumer>...",
		Short:     "Run consumers without the HTTP server",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: consumerNames(),
		Example:   "  hrmsctl consume notification audit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := serviceApp(flags, serviceOptions{consumers: args})
			if err != nil {
				return err
			}
			app.Run()
			return app.Err()
		},
	}
}
