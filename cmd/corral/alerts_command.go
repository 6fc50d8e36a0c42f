package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"corral/internal/monitor"
	"corral/internal/queue"
)

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	var farmID string

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Show active sync alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				m := monitor.New(store, cfg, nil)
				alerts, err := m.GenerateSyncAlerts(cmd.Context(), farmID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(alerts) == 0 {
					fmt.Fprintln(out, "no active alerts")
					return nil
				}

				enabled := shouldColorize(out)
				for _, alert := range alerts {
					severity := colorize(
						displayLabel(string(alert.Severity)),
						colorFor(monitor.SeverityColor(alert.Severity)),
						enabled,
					)
					fmt.Fprintf(out, "%s  %s\n    %s\n", severity, alert.Title, alert.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&farmID, "farm", "", "Limit to one farm")
	return cmd
}
