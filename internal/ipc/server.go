package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"slices"
	"sync"
	"time"

	"facegate/internal/api"
	"facegate/internal/daemon"
	"facegate/internal/eventstore"
	"facegate/internal/logging"
)

// Server exposes daemon control over a Unix socket. net/rpc with the JSON
// codec keeps the protocol inspectable with nothing more than socat.
type Server struct {
	socketPath string
	logger     *slog.Logger
	listener   net.Listener
	rpc        *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

// NewServer binds the IPC socket and registers the daemon service. A non-nil
// shutdown function is invoked after a Stop request so the host process can
// exit instead of lingering with nothing to serve.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	listener, err := bindSocket(path)
	if err != nil {
		return nil, err
	}

	rpcServer := rpc.NewServer()
	handler := &service{
		daemon:   d,
		logger:   logging.NewComponentLogger(logger, "ipc"),
		ctx:      ctx,
		shutdown: shutdown,
	}
	if err := rpcServer.RegisterName("Facegate", handler); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serveCtx, cancel := context.WithCancel(ctx)
	return &Server{
		socketPath: path,
		logger:     logger,
		listener:   listener,
		rpc:        rpcServer,
		ctx:        serveCtx,
		cancel:     cancel,
	}, nil
}

// bindSocket replaces any stale socket file and listens on a fresh one.
func bindSocket(path string) (net.Listener, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	return listener, nil
}

// Serve accepts RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.socketPath))
	s.conns.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.conns.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("ipc accept failed", logging.Error(err))
			continue
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.rpc.ServeCodec(jsonrpc.NewServerCodec(conn))
		}()
	}
}

// Close stops accepting connections, waits for in-flight calls, and removes
// the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.conns.Wait()
	if err := os.RemoveAll(s.socketPath); err != nil {
		s.logger.Warn("failed to remove ipc socket",
			logging.String("socket", s.socketPath),
			logging.Error(err))
	}
}

// service holds the RPC method set. net/rpc requires the exported
// two-argument method shape, so every handler fills resp in place.
type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via ipc")
	if s.shutdown != nil {
		s.shutdown()
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.DeviceID = status.DeviceID
	resp.Site = status.Site
	resp.Connectivity = api.FromConnectivity(status.Connectivity)
	resp.QueueStats = api.MergeEventStats(status.Queue)
	resp.Today = api.FromKindCounts(status.Today)
	resp.LastSyncError = status.LastSyncError
	if !status.LastFlushAt.IsZero() {
		resp.LastFlushAt = status.LastFlushAt.UTC().Format(time.RFC3339)
	}
	resp.FeedClients = status.FeedClients
	resp.ActiveTracks = status.ActiveTracks
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.Dependencies = api.FromDependencies(status.Dependencies)
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	statuses := make([]eventstore.SyncStatus, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := eventstore.ParseSyncStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	events, err := s.daemon.ListEvents(s.ctx, statuses)
	if err != nil {
		return err
	}
	// The store lists chronologically; flip so clients see newest first.
	slices.Reverse(events)
	if req.Limit > 0 && len(events) > req.Limit {
		events = events[:req.Limit]
	}
	resp.Events = api.FromEvents(events)
	return nil
}

func (s *service) QueueStats(_ QueueStatsRequest, resp *QueueStatsResponse) error {
	stats, err := s.daemon.QueueStats(s.ctx)
	if err != nil {
		return err
	}
	resp.Counts = api.MergeEventStats(stats)
	for _, count := range resp.Counts {
		resp.Total += count
	}
	return nil
}

func (s *service) QueueRetry(req QueueRetryRequest, resp *QueueRetryResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("queue retry requires at least one id")
	}
	s.logger.Debug("queue retry requested", logging.Int("event_count", len(req.IDs)))
	updated, err := s.daemon.RetryFailed(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.logger.Info("queue events retried", logging.Int64("updated_count", updated))
	return nil
}

func (s *service) QueueRetryAll(_ QueueRetryAllRequest, resp *QueueRetryAllResponse) error {
	s.logger.Debug("queue retry all requested")
	updated, err := s.daemon.RetryFailed(s.ctx, nil)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.logger.Info("failed queue events retried", logging.Int64("updated_count", updated))
	return nil
}

func (s *service) QueueClearSynced(_ QueueClearSyncedRequest, resp *QueueClearSyncedResponse) error {
	s.logger.Debug("queue clear synced requested")
	removed, err := s.daemon.ClearSynced(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.logger.Info("synced queue events cleared", logging.Int64("removed_count", removed))
	return nil
}

func (s *service) EventsRecent(req EventsRecentRequest, resp *EventsRecentResponse) error {
	events, err := s.daemon.RecentEvents(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Events = api.FromEvents(events)
	return nil
}

func (s *service) SyncNow(_ SyncNowRequest, resp *SyncNowResponse) error {
	s.logger.Debug("sync now requested")
	result, err := s.daemon.SyncNow(s.ctx)
	resp.Attempted = result.Attempted
	resp.Synced = result.Synced
	resp.Rejected = result.Rejected
	resp.Failed = result.Failed
	resp.Remaining = result.Remaining
	return err
}

func (s *service) TestNotify(_ TestNotifyRequest, resp *TestNotifyResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
