package main

import (
	"fmt"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/spf13/cobra"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List event types by domain",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, d := range events.Domains() {
				fmt.Fprintf(out, "%s\n", d)
				if d == events.DomainNotification {
					fmt.Fprintln(out, "  any event type, with --domain notification")
					continue
				}
				for _, t := range events.EventTypesOf(d) {
					fmt.Fprintf(out, "  %s\n", t)
				}
			}
		},
	}
}
