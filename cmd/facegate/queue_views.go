package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"facegate/internal/api"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

// buildQueueListRows renders delivery-focused rows: who still owes the
// backend an event and why it has not gone out.
func buildQueueListRows(events []api.Event) [][]string {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			fmt.Sprintf("%d", event.ID),
			personLabel(event),
			formatStatusLabel(event.Kind),
			event.Window,
			formatDisplayTime(event.OccurredAt),
			formatStatusLabel(event.SyncStatus),
			fmt.Sprintf("%d", event.Attempts),
			truncateDetail(event.LastError, 32),
		})
	}
	return rows
}

// buildEventListRows renders attendance-focused rows for the events command.
func buildEventListRows(events []api.Event) [][]string {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			fmt.Sprintf("%d", event.ID),
			personLabel(event),
			formatStatusLabel(event.Kind),
			event.Window,
			formatDisplayTime(event.OccurredAt),
			formatStatusLabel(event.SyncStatus),
		})
	}
	return rows
}

func personLabel(event api.Event) string {
	if name := strings.TrimSpace(event.PersonName); name != "" {
		return name
	}
	if id := strings.TrimSpace(event.PersonID); id != "" {
		return id
	}
	return "-"
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	return value
}

// occurredDay maps an event timestamp to the local calendar day operators
// filter on.
func occurredDay(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, value); err != nil {
			return ""
		}
	}
	return t.Local().Format("2006-01-02")
}

func truncateDetail(value string, max int) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if max > 3 && len(value) > max {
		return value[:max-3] + "..."
	}
	return value
}
