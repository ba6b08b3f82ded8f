// Package transport owns the WebSocket session with the pipeline server.
// It dials the endpoint, runs the read loop on its own goroutine and
// reports lifecycle and message events to an Observer.
package transport

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle state of a Connection. Valid transitions are
// Connecting→Open, Connecting→Failed and Open→Closed; a connection is never
// reopened — every dial attempt creates a fresh one.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusFailed     Status = "failed"
	StatusClosed     Status = "closed"
)

// Connection holds the metadata of a single outbound WebSocket session.
type Connection struct {
	handle string
	uri    string

	mu      sync.Mutex
	status  Status
	banner  string
	lastErr string
}

func newConnection(uri string) *Connection {
	return &Connection{handle: newHandle(), uri: uri, status: StatusConnecting}
}

func newHandle() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Handle returns the connection's opaque identifier.
func (c *Connection) Handle() string { return c.handle }

// URI returns the dialed endpoint address.
func (c *Connection) URI() string { return c.uri }

// Status returns the current lifecycle state.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Banner returns the server's handshake banner, when it sent one.
func (c *Connection) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// LastError returns the reason recorded for a failed or closed connection.
func (c *Connection) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Connection) open(banner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusConnecting {
		return
	}
	c.status = StatusOpen
	c.banner = banner
}

func (c *Connection) fail(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusConnecting {
		return
	}
	c.status = StatusFailed
	c.lastErr = reason
}

func (c *Connection) close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusOpen {
		return
	}
	c.status = StatusClosed
	c.lastErr = reason
}
