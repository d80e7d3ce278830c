// Package storerpc is the client used by the developer and lobby services
// to call the store service, grounded on original_source's db_call
// (server/db_rpc.py): dial-per-call, one frame out, one frame back.
package storerpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/brightforge/gamevault/internal/frame"
)

// Client calls the store service's collection/action RPC.
type Client struct {
	addr    string
	timeout time.Duration
}

// New returns a Client dialing addr ("host:port") for each call.
func New(addr string) *Client {
	return &Client{addr: addr, timeout: 5 * time.Second}
}

// Reply is the store's {ok, error?, ...fields} response envelope.
type Reply map[string]any

// OK reports whether the call succeeded.
func (r Reply) OK() bool {
	ok, _ := r["ok"].(bool)
	return ok
}

// Error returns the wire error code, or "" if the call succeeded.
func (r Reply) Error() string {
	code, _ := r["error"].(string)
	return code
}

// Decode unmarshals one field of the reply into v.
func (r Reply) Decode(field string, v any) error {
	raw, err := json.Marshal(r[field])
	if err != nil {
		return fmt.Errorf("storerpc: marshaling field %q: %w", field, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("storerpc: decoding field %q: %w", field, err)
	}
	return nil
}

// Call dials the store, sends one (collection, action, data) request, and
// returns its reply.
func (c *Client) Call(ctx context.Context, collection, action string, data any) (Reply, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("storerpc: dialing store at %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(c.timeout))
	}

	req := map[string]any{"collection": collection, "action": action, "data": data}
	if err := frame.Write(conn, req); err != nil {
		return nil, fmt.Errorf("storerpc: sending request: %w", err)
	}

	var reply Reply
	if err := frame.Read(conn, &reply); err != nil {
		return nil, fmt.Errorf("storerpc: reading reply: %w", err)
	}
	return reply, nil
}
