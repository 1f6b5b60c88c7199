package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"facegate/internal/logging"
	"facegate/internal/observability"
)

// The API binds loopback only, so cross-origin upgrades are fine.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	broadcastBuffer  = 256
	clientSendBuffer = 64
	writeWait        = 10 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the client set and fans out published events. All map access
// happens on the run loop; handlers talk to it through channels.
type Hub struct {
	logger *slog.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	clientCount atomic.Int64
	dropped     atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    <-chan struct{}
	wg      sync.WaitGroup
}

// NewHub constructs a feed hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger:     logging.NewComponentLogger(logger, "feed"),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastBuffer),
	}
}

// Start launches the hub loop.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return errors.New("feed hub already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = runCtx.Done()
	h.running = true
	h.wg.Add(1)
	go h.run(runCtx)
	return nil
}

// Stop disconnects all clients and stops the loop.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	cancel := h.cancel
	h.running = false
	h.cancel = nil
	h.mu.Unlock()

	cancel()
	h.wg.Wait()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	return int(h.clientCount.Load())
}

// DroppedTotal returns how many events were dropped because the hub or a
// client fell behind.
func (h *Hub) DroppedTotal() int64 {
	if h == nil {
		return 0
	}
	return h.dropped.Load()
}

// HandleWS upgrades the request and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	done := h.done
	running := h.running
	h.mu.Unlock()
	if !running {
		http.Error(w, "feed not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	// The HTTP server's request deadlines ride along on the hijacked conn;
	// clear them so the connection outlives the server's write timeout.
	_ = conn.UnderlyingConn().SetDeadline(time.Time{})

	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	select {
	case h.register <- c:
	case <-done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h, done)
}

// PublishDecision announces a tracker decision.
func (h *Hub) PublishDecision(payload DecisionEmitted) { h.publish(TypeDecision, payload) }

// PublishDecisionNotSaved announces a decision the store refused.
func (h *Hub) PublishDecisionNotSaved(payload DecisionNotSaved) {
	h.publish(TypeDecisionNotSave, payload)
}

// PublishSyncStatus announces outbox progress.
func (h *Hub) PublishSyncStatus(payload SyncStatusChanged) { h.publish(TypeSyncStatus, payload) }

// PublishConnectivity announces a settled reachability change.
func (h *Hub) PublishConnectivity(payload ConnectivityChanged) {
	h.publish(TypeConnectivity, payload)
}

// PublishCamera announces camera attach or detach.
func (h *Hub) PublishCamera(payload CameraChanged) { h.publish(TypeCamera, payload) }

// publish is nil-safe so components can run without a hub in tests.
func (h *Hub) publish(eventType string, payload any) {
	if h == nil {
		return
	}
	data, err := json.Marshal(Envelope{Type: eventType, At: time.Now().UTC(), Payload: payload})
	if err != nil {
		h.logger.Error("marshal feed event failed", "type", eventType, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hub) run(ctx context.Context) {
	defer h.wg.Done()

	clients := make(map[*client]struct{})
	syncCount := func() {
		h.clientCount.Store(int64(len(clients)))
		observability.WSClients.Set(float64(len(clients)))
	}
	defer func() {
		for c := range clients {
			close(c.send)
		}
		clients = map[*client]struct{}{}
		syncCount()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			clients[c] = struct{}{}
			syncCount()
			h.logger.Debug("feed client connected", "clients", len(clients))
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
			}
			syncCount()
			h.logger.Debug("feed client disconnected", "clients", len(clients))
		case message := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- message:
				default:
					// Slow client; evict instead of stalling the hub.
					delete(clients, c)
					close(c.send)
					h.dropped.Add(1)
				}
			}
			syncCount()
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump only detects disconnects; inbound messages are ignored.
func (c *client) readPump(h *Hub, done <-chan struct{}) {
	defer c.conn.Close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			select {
			case h.unregister <- c:
			case <-done:
			}
			return
		}
	}
}
