package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"corral/internal/queue"
	"corral/internal/textutil"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline sync queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueConfirmCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, value := range statusFilters {
				status, ok := queue.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				var items []*queue.Item
				var err error
				if len(statuses) == 0 {
					items, err = store.ListAll(cmd.Context())
				} else {
					items, err = store.ListByStatus(cmd.Context(), statuses...)
				}
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
					return nil
				}

				now := time.Now()
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						string(item.Type),
						string(item.Status),
						item.FarmID,
						formatAge(int(item.Age(now).Minutes())),
						strconv.Itoa(item.Retries),
						textutil.Cell(item.ErrorMessage, 48),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "TYPE", "STATUS", "FARM", "AGE", "RETRIES", "ERROR"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	var retryAll bool

	cmd := &cobra.Command{
		Use:   "retry [id]",
		Short: "Reset failed items for another sync attempt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !retryAll && len(args) == 0 {
				return fmt.Errorf("provide an item id or --all")
			}

			err := ctx.withStore(func(store *queue.Store) error {
				if retryAll {
					count, err := store.ResetAllFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "reset %d failed items\n", count)
					return nil
				}
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", args[0])
				}
				if err := store.ResetForRetry(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "item %d reset to pending\n", id)
				return nil
			})
			if err != nil {
				return err
			}

			// Nudge a running daemon; without one the next pass picks the
			// items up anyway.
			if ctx.daemonReachable() {
				_ = ctx.postJSON("/api/sync", nil, nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&retryAll, "all", false, "Reset every failed item")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Prune synced items (or the whole queue with --all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				var count int64
				var err error
				if clearAll {
					count, err = store.Clear(cmd.Context())
				} else {
					count, err = store.ClearCompleted(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d items\n", count)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every item regardless of status")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withStore(func(store *queue.Store) error {
				removed, err := store.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "item %d not found\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "item %d removed\n", id)
				return nil
			})
		},
	}
}

func newQueueConfirmCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <id> <transcription...>",
		Short: "Confirm a held transcription and release the item for sync",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			transcription := strings.TrimSpace(strings.Join(args[1:], " "))
			if transcription == "" {
				return fmt.Errorf("transcription must not be empty")
			}

			err = ctx.withStore(func(store *queue.Store) error {
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				if item.Status != queue.StatusAwaitingConfirmation {
					fmt.Fprintf(os.Stderr, "warning: item %d is %s, not awaiting confirmation\n", id, item.Status)
				}
				return store.ConfirmTranscription(cmd.Context(), id, transcription)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "item %d confirmed and returned to pending\n", id)
			if ctx.daemonReachable() {
				_ = ctx.postJSON("/api/sync", nil, nil)
			}
			return nil
		},
	}
}
