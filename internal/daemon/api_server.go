package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facegate/internal/api"
	"facegate/internal/config"
	"facegate/internal/eventstore"
	"facegate/internal/logging"
)

// apiServer is the loopback HTTP surface a kiosk UI polls: JSON status and
// event queries, the websocket feed, Prometheus metrics, and a liveness
// probe. It binds only when the api section of the config enables it.
type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	eventSvc *api.EventService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil || !cfg.API.Enabled {
		return nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:     bind,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
		eventSvc: api.NewEventService(d.store),
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/ws", s.handleFeed)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.bind, err)
	}
	s.listener = listener

	go s.serve(listener)
	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) serve(listener net.Listener) {
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log().Error("api server error", logging.Error(err))
	}
}

func (s *apiServer) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		s.shutdown()
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// requireGet rejects non-GET requests. The API is read-only; mutations go
// through IPC.
func (s *apiServer) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DeviceID:     status.DeviceID,
		Site:         status.Site,
		Connectivity: api.FromConnectivity(status.Connectivity),
		Queue:        api.MergeEventStats(status.Queue),
		Today:        api.FromKindCounts(status.Today),
		FeedClients:  status.FeedClients,
		ActiveTracks: status.ActiveTracks,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Dependencies: api.FromDependencies(status.Dependencies),
	}
	if status.LastSyncError != "" {
		payload.Sync.LastError = status.LastSyncError
	}
	if !status.LastFlushAt.IsZero() {
		payload.Sync.LastFlushAt = status.LastFlushAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	if s.eventSvc == nil {
		s.writeJSON(w, http.StatusOK, api.EventListResponse{Events: nil})
		return
	}

	var statuses []eventstore.SyncStatus
	for _, value := range r.URL.Query()["status"] {
		status, ok := eventstore.ParseSyncStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	events, err := s.eventSvc.List(r.Context(), statuses, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventListResponse{Events: events})
}

func (s *apiServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.daemon.hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, "feed unavailable")
		return
	}
	s.daemon.hub.HandleWS(w, r)
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// log tolerates the zero-value servers tests construct directly.
func (s *apiServer) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger
}
