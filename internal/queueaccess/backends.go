package queueaccess

import (
	"context"

	"facegate/internal/api"
	"facegate/internal/eventstore"
	"facegate/internal/ipc"
)

// daemonQueue serves queue operations over the daemon's IPC socket. The
// net/rpc calls block without a context, so the interface contexts go unused.
type daemonQueue struct {
	client *ipc.Client
}

func (q *daemonQueue) Stats(context.Context) (map[string]int, error) {
	resp, err := q.client.QueueStats()
	if err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

func (q *daemonQueue) List(_ context.Context, statuses []string, limit int) ([]api.Event, error) {
	resp, err := q.client.QueueList(statuses, limit)
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (q *daemonQueue) Recent(_ context.Context, limit int) ([]api.Event, error) {
	resp, err := q.client.EventsRecent(limit)
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (q *daemonQueue) Retry(_ context.Context, ids []int64) (int64, error) {
	resp, err := q.client.QueueRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (q *daemonQueue) RetryAll(context.Context) (int64, error) {
	resp, err := q.client.QueueRetryAll()
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (q *daemonQueue) ClearSynced(context.Context) (int64, error) {
	resp, err := q.client.QueueClearSynced()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// localQueue reads and mutates the event database directly. SQLite serializes
// writers across processes, so retry and clear operations stay safe even if a
// daemon starts mid-command.
type localQueue struct {
	store  *eventstore.Store
	events *api.EventService
}

func (q *localQueue) Stats(ctx context.Context) (map[string]int, error) {
	return q.events.Stats(ctx)
}

func (q *localQueue) List(ctx context.Context, statuses []string, limit int) ([]api.Event, error) {
	filters := make([]eventstore.SyncStatus, 0, len(statuses))
	for _, raw := range statuses {
		if status, ok := eventstore.ParseSyncStatus(raw); ok {
			filters = append(filters, status)
		}
	}
	return q.events.List(ctx, filters, limit)
}

func (q *localQueue) Recent(ctx context.Context, limit int) ([]api.Event, error) {
	return q.events.Recent(ctx, limit)
}

func (q *localQueue) Retry(ctx context.Context, ids []int64) (int64, error) {
	return q.store.RetryFailed(ctx, ids...)
}

func (q *localQueue) RetryAll(ctx context.Context) (int64, error) {
	return q.store.RetryFailed(ctx)
}

func (q *localQueue) ClearSynced(ctx context.Context) (int64, error) {
	return q.store.ClearSynced(ctx)
}
