// Package peer implements the short-lived TCP client a node uses to talk
// to another node: dial, send one request, read one response, close.
//
// This node's WAL-backed ancestor dialed out over HTTP with retries and
// exponential backoff, because it was chasing a write/read quorum across
// N replicas. This node has exactly one replica and no quorum, so a
// single attempt with a single combined timeout is enough, and retry
// policy is left entirely to the caller: none at this layer, some at the
// request-server layer (forward vs. fallback), and the smart retry
// (primary then replica) lives in the out-of-scope interactive client
// shell.
package peer

import (
	"fmt"
	"net"
	"time"

	"github.com/DamPhong1311/phantan/internal/wire"
)

// Timeout is the combined connect+read budget for a single peer call.
const Timeout = 3 * time.Second

// Client sends requests to named peers ("host:port" strings).
type Client struct {
	dialTimeout time.Duration
}

// New returns a Client using the standard 3s combined timeout.
func New() *Client {
	return &Client{dialTimeout: Timeout}
}

// Call dials addr, sends req, reads and decodes exactly one Response, and
// closes the connection. Any socket error, timeout, or decode failure
// collapses to a single returned error — "unreachable" is one signal; the
// caller is not meant to distinguish connect failure from a garbled
// response.
func (c *Client) Call(addr string, req wire.Request) (wire.Response, error) {
	var resp wire.Response

	deadline := time.Now().Add(c.dialTimeout)

	conn, err := net.DialTimeout("tcp", addr, c.dialTimeout)
	if err != nil {
		return resp, fmt.Errorf("peer: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return resp, fmt.Errorf("peer: set deadline: %w", err)
	}

	if err := wire.WriteMessage(conn, req); err != nil {
		return resp, fmt.Errorf("peer: write to %s: %w", addr, err)
	}
	if err := wire.CloseWrite(conn); err != nil {
		return resp, fmt.Errorf("peer: close-write to %s: %w", addr, err)
	}

	if err := wire.ReadMessage(conn, &resp); err != nil {
		return resp, fmt.Errorf("peer: read from %s: %w", addr, err)
	}
	return resp, nil
}

// Ping sends a PING to addr and reports whether it answered ALIVE within
// the timeout.
func (c *Client) Ping(addr string) bool {
	resp, err := c.Call(addr, wire.Request{Cmd: wire.CmdPing})
	if err != nil {
		return false
	}
	return resp.Status == wire.StatusAlive
}
