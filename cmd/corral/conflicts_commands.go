package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"corral/internal/conflict"
	"corral/internal/queue"
	"corral/internal/remote"
)

func newConflictsCommand(ctx *commandContext) *cobra.Command {
	conflictsCmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Review and resolve sync conflicts",
	}
	conflictsCmd.AddCommand(newConflictsListCommand(ctx))
	conflictsCmd.AddCommand(newConflictsShowCommand(ctx))
	conflictsCmd.AddCommand(newConflictsResolveCommand(ctx))
	return conflictsCmd
}

func newConflictsListCommand(ctx *commandContext) *cobra.Command {
	var farmID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List unresolved conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				conflicts, err := store.UnresolvedConflicts(cmd.Context(), farmID)
				if err != nil {
					return err
				}
				if len(conflicts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no unresolved conflicts")
					return nil
				}

				rows := make([][]string, 0, len(conflicts))
				for _, c := range conflicts {
					rows = append(rows, []string{
						strconv.FormatInt(c.ID, 10),
						c.FarmID,
						displayLabel(c.TableName),
						c.RecordID,
						c.DetectedAt.Local().Format(time.RFC3339),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "FARM", "TABLE", "RECORD", "DETECTED"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&farmID, "farm", "", "Limit to one farm")
	return cmd
}

func newConflictsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show both sides of a conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conflict id %q", args[0])
			}
			return ctx.withStore(func(store *queue.Store) error {
				c, err := store.GetConflict(cmd.Context(), id)
				if err != nil {
					return err
				}
				if c == nil {
					return fmt.Errorf("conflict %d not found", id)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Conflict %d on %s/%s (farm %s)\n", c.ID, displayLabel(c.TableName), c.RecordID, c.FarmID)
				fmt.Fprintf(out, "Detected: %s\n", c.DetectedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Resolved: %s", yesNo(c.Resolved))
				if c.Resolved {
					fmt.Fprintf(out, " (%s)", c.Strategy)
				}
				fmt.Fprintln(out)

				clientJSON, _ := json.MarshalIndent(c.ClientData, "", "  ")
				serverJSON, _ := json.MarshalIndent(c.ServerData, "", "  ")
				fmt.Fprintf(out, "\nLocal edit:\n%s\n\nServer state:\n%s\n", clientJSON, serverJSON)
				if c.ResolvedData != nil {
					resolvedJSON, _ := json.MarshalIndent(c.ResolvedData, "", "  ")
					fmt.Fprintf(out, "\nResolved payload:\n%s\n", resolvedJSON)
				}
				return nil
			})
		},
	}
}

func newConflictsResolveCommand(ctx *commandContext) *cobra.Command {
	var strategyFlag string
	var dataFlag string

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve a conflict with client_wins, server_wins, or merged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conflict id %q", args[0])
			}
			strategy, ok := queue.ParseResolutionStrategy(strategyFlag)
			if !ok {
				return fmt.Errorf("unknown strategy %q (want client_wins, server_wins, or merged)", strategyFlag)
			}

			var mergedData map[string]any
			if strategy == queue.ResolutionMerged {
				if dataFlag == "" {
					return fmt.Errorf("merged resolution requires --data with a JSON payload")
				}
				if err := json.Unmarshal([]byte(dataFlag), &mergedData); err != nil {
					return fmt.Errorf("parse --data: %w", err)
				}
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				detector := conflict.NewDetector(store, remote.New(cfg), nil)
				if err := detector.Resolve(cmd.Context(), id, strategy, mergedData); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "conflict %d resolved (%s)\n", id, strategy)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "Resolution strategy: client_wins, server_wins, or merged")
	cmd.Flags().StringVar(&dataFlag, "data", "", "Merged payload as JSON (required for merged)")
	_ = cmd.MarkFlagRequired("strategy")
	return cmd
}
