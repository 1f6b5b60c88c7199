// Package queueaccess gives CLI commands one view of the event queue whether
// or not the daemon is running. When the daemon serves its socket the queue
// is read over IPC so counts reflect in-flight sync state; otherwise the
// event database is opened directly.
package queueaccess

import (
	"context"
	"errors"
	"fmt"
	"io"

	"facegate/internal/api"
	"facegate/internal/eventstore"
	"facegate/internal/ipc"
)

// Access exposes the queue operations the CLI needs.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string, limit int) ([]api.Event, error)
	Recent(ctx context.Context, limit int) ([]api.Event, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	ClearSynced(ctx context.Context) (int64, error)
}

// Session bundles an Access with the connection or store behind it.
type Session struct {
	Access Access
	closer io.Closer
}

// Close releases the session's backing connection or database handle.
func (s Session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OpenWithFallback prefers the daemon's live queue view and falls back to
// opening the event database directly when no daemon answers.
func OpenWithFallback(dial func() (*ipc.Client, error), openStore func() (*eventstore.Store, error)) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{Access: &daemonQueue{client: client}, closer: client}, nil
		}
	}

	if openStore == nil {
		return Session{}, errors.New("open event store: no store opener configured")
	}
	store, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open event store: %w", err)
	}
	return Session{
		Access: &localQueue{store: store, events: api.NewEventService(store)},
		closer: store,
	}, nil
}
