package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"corral/internal/api"
	"corral/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			enabled := shouldColorize(out)

			var status api.DaemonStatus
			if err := ctx.getJSON("/api/status", &status); err == nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", "running", ansiGreen, enabled))
				fmt.Fprintln(out, renderStatusLine("PID", strconv.Itoa(status.PID), "", enabled))
				fmt.Fprintln(out, renderStatusLine("Queue database", status.QueueDBPath, "", enabled))
				printHealth(ctx, cmd, status.Queue, status.Conflicts, enabled)
				return nil
			}

			// No daemon; report straight from the local store.
			fmt.Fprintln(out, renderStatusLine("Daemon", "not running", ansiYellow, enabled))
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				conflicts, err := store.ConflictCount(cmd.Context(), "")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderStatusLine("Queue database", store.Path(), "", enabled))
				printHealth(ctx, cmd, api.FromHealth(health), conflicts, enabled)
				return nil
			})
		},
	}
}

func printHealth(ctx *commandContext, cmd *cobra.Command, health api.HealthView, conflicts int, enabled bool) {
	out := cmd.OutOrStdout()

	failedColor := ""
	if health.Failed > 0 {
		failedColor = ansiRed
	}
	waitingColor := ""
	if health.AwaitingConfirmation > 0 {
		waitingColor = ansiYellow
	}
	conflictColor := ""
	if conflicts > 0 {
		conflictColor = ansiYellow
	}

	fmt.Fprintln(out, renderStatusLine("Queued items", strconv.Itoa(health.Total), "", enabled))
	fmt.Fprintln(out, renderStatusLine("Pending", strconv.Itoa(health.Pending), "", enabled))
	fmt.Fprintln(out, renderStatusLine("Processing", strconv.Itoa(health.Processing), "", enabled))
	fmt.Fprintln(out, renderStatusLine("Awaiting confirmation", strconv.Itoa(health.AwaitingConfirmation), waitingColor, enabled))
	fmt.Fprintln(out, renderStatusLine("Completed", strconv.Itoa(health.Completed), "", enabled))
	fmt.Fprintln(out, renderStatusLine("Failed", strconv.Itoa(health.Failed), failedColor, enabled))
	fmt.Fprintln(out, renderStatusLine("Open conflicts", strconv.Itoa(conflicts), conflictColor, enabled))
}
