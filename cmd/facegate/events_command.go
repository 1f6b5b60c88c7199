package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"facegate/internal/api"
	"facegate/internal/queueaccess"
)

// dayFetchLimit bounds how many events a day filter scans. A kiosk records at
// most a few hundred decisions per day, so this never clips a real day.
const dayFetchLimit = 1000

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var eventStatuses []string
	var eventDay string
	var eventLimit int
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded attendance events",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := normalizeDayFilter(eventDay)
			if err != nil {
				return err
			}

			return ctx.withQueueAccess(func(access queueaccess.Access) error {
				fetchLimit := eventLimit
				if day != "" {
					fetchLimit = dayFetchLimit
				}
				events, err := access.List(cmd.Context(), eventStatuses, fetchLimit)
				if err != nil {
					return err
				}
				if day != "" {
					events = filterEventsByDay(events, day)
					if eventLimit > 0 && len(events) > eventLimit {
						events = events[:eventLimit]
					}
				}
				if len(events) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No events recorded")
					return nil
				}

				if asCSV {
					return writeEventsCSV(cmd.OutOrStdout(), events)
				}

				table := renderTable(
					[]string{"ID", "Person", "Kind", "Window", "Occurred", "Status"},
					buildEventListRows(events),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&eventStatuses, "status", "s", nil, "Filter by sync status (repeatable)")
	cmd.Flags().StringVar(&eventDay, "day", "", "Filter to a single local day (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&eventLimit, "limit", "n", 20, "Maximum number of events to list (0 for all)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write CSV instead of a table")
	return cmd
}

func normalizeDayFilter(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return "", fmt.Errorf("invalid --day %q: expected YYYY-MM-DD", value)
	}
	return parsed.Format("2006-01-02"), nil
}

func filterEventsByDay(events []api.Event, day string) []api.Event {
	filtered := make([]api.Event, 0, len(events))
	for _, event := range events {
		if occurredDay(event.OccurredAt) == day {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// writeEventsCSV exports raw field values so the output round-trips into
// spreadsheets and backend reconciliation scripts.
func writeEventsCSV(out io.Writer, events []api.Event) error {
	w := csv.NewWriter(out)
	header := []string{
		"event_id", "person_id", "person_name", "device_id",
		"kind", "window", "occurred_at", "sync_status", "attempts", "last_error",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, event := range events {
		record := []string{
			event.EventID,
			event.PersonID,
			event.PersonName,
			event.DeviceID,
			event.Kind,
			event.Window,
			event.OccurredAt,
			event.SyncStatus,
			strconv.Itoa(event.Attempts),
			event.LastError,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
