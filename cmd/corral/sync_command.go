package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"corral/internal/api"
	"corral/internal/conflict"
	"corral/internal/queue"
	"corral/internal/remote"
	"corral/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Trigger a sync pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Prefer the running daemon so there is a single processor;
			// drain directly only when no daemon holds the lock.
			if ctx.daemonReachable() {
				var summary api.SyncResponse
				if err := ctx.postJSON("/api/sync", nil, &summary); err != nil {
					return err
				}
				printSummary(cmd, summary)
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				client := remote.New(cfg)
				detector := conflict.NewDetector(store, client, nil)
				s := syncer.New(store, client, detector, nil, cfg, nil)

				result, err := s.ProcessQueue(cmd.Context())
				if err != nil {
					return err
				}
				printSummary(cmd, api.SyncResponse{
					Processed:       result.Processed,
					Failed:          result.Failed,
					Parked:          result.Parked,
					Conflicts:       result.Conflicts,
					Stopped:         result.Stopped,
					DurationSeconds: result.Duration.Seconds(),
				})
				return nil
			})
		},
	}
}

func printSummary(cmd *cobra.Command, summary api.SyncResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "synced %d items (%d failed, %d awaiting confirmation, %d conflicts) in %.1fs\n",
		summary.Processed, summary.Failed, summary.Parked, summary.Conflicts, summary.DurationSeconds)
	if summary.Stopped {
		fmt.Fprintln(out, "sync stopped early: connection to the farm api was lost")
	}
}
