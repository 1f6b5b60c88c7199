package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"facegate/internal/ipc"
)

func newSyncNowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-now",
		Short: "Flush the event queue to the backend immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SyncNow()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Attempted == 0 {
					fmt.Fprintln(out, "Queue is empty; nothing to sync")
					return nil
				}
				fmt.Fprintf(out, "Synced %d of %d events (rejected %d, failed %d); %d still queued\n",
					resp.Synced, resp.Attempted, resp.Rejected, resp.Failed, resp.Remaining)
				return nil
			})
		},
	}
}
