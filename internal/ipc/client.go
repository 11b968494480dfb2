package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start reconciling.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Tether.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop reconciling.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Tether.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Tether.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ItemsList returns tracked items optionally filtered by statuses.
func (c *Client) ItemsList(statuses []string) (*ItemsListResponse, error) {
	var resp ItemsListResponse
	req := ItemsListRequest{Statuses: statuses}
	if err := c.client.Call("Tether.ItemsList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ItemDescribe returns details for a single tracked item.
func (c *Client) ItemDescribe(hash string) (*ItemDescribeResponse, error) {
	var resp ItemDescribeResponse
	req := ItemDescribeRequest{Hash: hash}
	if err := c.client.Call("Tether.ItemDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reconcile triggers an immediate reconciliation pass.
func (c *Client) Reconcile() (*ReconcileResponse, error) {
	var resp ReconcileResponse
	if err := c.client.Call("Tether.Reconcile", ReconcileRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReviewReset clears the review flag on an item.
func (c *Client) ReviewReset(hash string) (*ReviewResetResponse, error) {
	var resp ReviewResetResponse
	req := ReviewResetRequest{Hash: hash}
	if err := c.client.Call("Tether.ReviewReset", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Purge deletes removed rows older than the given number of days.
func (c *Client) Purge(olderThanDays int) (*PurgeResponse, error) {
	var resp PurgeResponse
	req := PurgeRequest{OlderThanDays: olderThanDays}
	if err := c.client.Call("Tether.Purge", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Tether.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Tether.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
