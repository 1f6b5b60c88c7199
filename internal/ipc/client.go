package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// dialTimeout keeps CLI commands responsive when no daemon is listening.
const dialTimeout = 2 * time.Second

// Client provides RPC access to the daemon.
type Client struct {
	conn net.Conn
	rpc  *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		rpc:  rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.rpc != nil {
		_ = c.rpc.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// call invokes one method on the daemon's registered service.
func (c *Client) call(method string, req, resp any) error {
	return c.rpc.Call("Facegate."+method, req, resp)
}

// Ping checks whether the daemon answers on the socket.
func (c *Client) Ping() (*PingResponse, error) {
	resp := new(PingResponse)
	if err := c.call("Ping", PingRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	resp := new(StopResponse)
	if err := c.call("Stop", StopRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	resp := new(StatusResponse)
	if err := c.call("Status", StatusRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// QueueList returns queued events, optionally filtered by delivery status.
func (c *Client) QueueList(statuses []string, limit int) (*QueueListResponse, error) {
	resp := new(QueueListResponse)
	if err := c.call("QueueList", QueueListRequest{Statuses: statuses, Limit: limit}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// QueueStats returns per-status queue counts.
func (c *Client) QueueStats() (*QueueStatsResponse, error) {
	resp := new(QueueStatsResponse)
	if err := c.call("QueueStats", QueueStatsRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// QueueRetry retries specific failed events.
func (c *Client) QueueRetry(ids []int64) (*QueueRetryResponse, error) {
	resp := new(QueueRetryResponse)
	if err := c.call("QueueRetry", QueueRetryRequest{IDs: ids}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// QueueRetryAll retries every failed event.
func (c *Client) QueueRetryAll() (*QueueRetryAllResponse, error) {
	resp := new(QueueRetryAllResponse)
	if err := c.call("QueueRetryAll", QueueRetryAllRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// QueueClearSynced removes delivered events from the queue.
func (c *Client) QueueClearSynced() (*QueueClearSyncedResponse, error) {
	resp := new(QueueClearSyncedResponse)
	if err := c.call("QueueClearSynced", QueueClearSyncedRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// EventsRecent returns the newest events regardless of status.
func (c *Client) EventsRecent(limit int) (*EventsRecentResponse, error) {
	resp := new(EventsRecentResponse)
	if err := c.call("EventsRecent", EventsRecentRequest{Limit: limit}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SyncNow forces an immediate queue flush.
func (c *Client) SyncNow() (*SyncNowResponse, error) {
	resp := new(SyncNowResponse)
	if err := c.call("SyncNow", SyncNowRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// TestNotify triggers a notification test via the daemon.
func (c *Client) TestNotify() (*TestNotifyResponse, error) {
	resp := new(TestNotifyResponse)
	if err := c.call("TestNotify", TestNotifyRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
