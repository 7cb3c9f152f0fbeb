// Package main provides hrmsctl, the CLI that runs the HRMS event services
// and publishes events by hand.
//
// Usage:
//
//	hrmsctl serve --config ./configs/config.local.yaml
//	hrmsctl consume audit
//	hrmsctl publish --type leave.approved --data '{"leave_id":1,...}'
//	hrmsctl types
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type globalFlags struct {
	configFile string
	noEnvFile  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "hrmsctl",
		Short: "Run and drive the HRMS event delivery services",
		Long: `hrmsctl runs the notification and audit consumers, the event ingest
endpoint and publishes events onto the HRMS event bus.

Configuration comes from the file given with --config (or CONFIG_FILE),
the .env file and the environment.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to the config file (default: $CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVar(&flags.noEnvFile, "no-env-file", false, "Do not load the .env file")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newConsumeCmd(flags),
		newPublishCmd(flags),
		newTypesCmd(),
	)

	return rootCmd
}
