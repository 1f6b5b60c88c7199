package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"facegate/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the outbound event queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAccess(func(access queueaccess.Access) error {
				stats, err := access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				total := 0
				for _, count := range stats {
					total += count
				}
				if total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := buildQueueStatusRows(stats)
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var listLimit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAccess(func(access queueaccess.Access) error {
				events, err := access.List(cmd.Context(), listStatuses, listLimit)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Person", "Kind", "Window", "Occurred", "Status", "Attempts", "Last Error"},
					buildQueueListRows(events),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by sync status (repeatable)")
	cmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum number of events to list (0 for all)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [eventID...]",
		Short: "Requeue failed events for delivery",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid event id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withQueueAccess(func(access queueaccess.Access) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := access.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed events\n", updated)
					return nil
				}

				updated, err := access.Retry(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if updated < int64(len(ids)) {
					fmt.Fprintf(out, "Retried %d of %d requested events (the rest were not in a failed state)\n", updated, len(ids))
					return nil
				}
				fmt.Fprintf(out, "Retried %d events\n", updated)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove events already confirmed by the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAccess(func(access queueaccess.Access) error {
				removed, err := access.ClearSynced(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d synced events\n", removed)
				return nil
			})
		},
	}
}
