package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrNoHolder is returned when no holder is listening on the control socket.
var ErrNoHolder = errors.New("no presence holder is running")

const dialTimeout = 500 * time.Millisecond

// Client sends requests to a holder over its control socket.
type Client struct {
	socketPath string
}

// NewClient creates a new control client.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Send sends a request to the holder and returns the response.
func (c *Client) Send(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoHolder, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &resp, nil
}

// Listening reports whether a holder accepts connections on the socket.
func (c *Client) Listening() bool {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
