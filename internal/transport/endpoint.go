package transport

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"nhooyr.io/websocket"
)

// ErrNotConnected is returned by Send when no open connection exists.
var ErrNotConnected = errors.New("transport: not connected")

// Observer receives connection events. Every callback runs on the
// endpoint's read-loop goroutine, never on the host's cooperative turn, so
// implementations must confine themselves to thread-safe state.
type Observer interface {
	OnOpen(banner string)
	OnFail(reason string)
	OnClose(reason string)
	OnMessage(text string)
}

// Endpoint dials and owns a single WebSocket connection. Send is safe to
// call from any goroutine.
type Endpoint struct {
	obs    Observer
	logger *slog.Logger

	mu       sync.Mutex
	conn     *Connection
	ws       *websocket.Conn
	cancel   context.CancelFunc
	readDone chan struct{}

	wmu sync.Mutex // serializes frame writes
}

// NewEndpoint creates an endpoint reporting to obs.
func NewEndpoint(obs Observer, logger *slog.Logger) *Endpoint {
	return &Endpoint{obs: obs, logger: logger}
}

// Connection returns the metadata of the most recent dial attempt, or nil
// when Connect was never called.
func (e *Endpoint) Connection() *Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn
}

// Connect dials uri and starts the read loop. On failure the connection is
// marked failed and OnFail is emitted; the endpoint stays unusable.
func (e *Endpoint) Connect(ctx context.Context, uri string) error {
	conn := newConnection(uri)
	e.mu.Lock()
	e.conn = conn
	e.mu.Unlock()

	ws, resp, err := websocket.Dial(ctx, uri, nil)
	if err != nil {
		conn.fail(err.Error())
		e.obs.OnFail(err.Error())
		return fmt.Errorf("dial %s: %w", uri, err)
	}

	var banner string
	if resp != nil {
		banner = resp.Header.Get("Server")
	}
	conn.open(banner)

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.ws = ws
	e.cancel = cancel
	e.readDone = done
	e.mu.Unlock()

	go e.readLoop(loopCtx, ws, conn, done)

	e.logger.Info("transport connected", "uri", uri, "conn", conn.Handle(), "server", banner)
	e.obs.OnOpen(banner)
	return nil
}

// readLoop receives frames until the connection drops. Binary frames are
// hex-encoded so the codec only ever sees text.
func (e *Endpoint) readLoop(ctx context.Context, ws *websocket.Conn, conn *Connection, done chan struct{}) {
	defer close(done)
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			reason := closeReason(err)
			conn.close(reason)
			e.logger.Info("transport closed", "conn", conn.Handle(), "reason", reason)
			e.obs.OnClose(reason)
			return
		}
		text := string(data)
		if typ == websocket.MessageBinary {
			text = hex.EncodeToString(data)
		}
		e.obs.OnMessage(text)
	}
}

func closeReason(err error) string {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return fmt.Sprintf("close code: %d, close reason: %s", ce.Code, ce.Reason)
	}
	return err.Error()
}

// Send writes a text frame. It is rejected with ErrNotConnected unless the
// connection is open.
func (e *Endpoint) Send(ctx context.Context, text string) error {
	e.mu.Lock()
	ws, conn := e.ws, e.conn
	e.mu.Unlock()

	if ws == nil || conn == nil || conn.Status() != StatusOpen {
		return ErrNotConnected
	}

	e.wmu.Lock()
	defer e.wmu.Unlock()
	if err := ws.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close sends a going-away close frame when the connection is open, stops
// the read loop and waits for it to exit. Safe to call more than once.
func (e *Endpoint) Close(reason string) {
	e.mu.Lock()
	ws, conn, cancel, done := e.ws, e.conn, e.cancel, e.readDone
	e.ws, e.cancel, e.readDone = nil, nil, nil
	e.mu.Unlock()

	if ws == nil {
		return
	}
	if conn != nil && conn.Status() == StatusOpen {
		if err := ws.Close(websocket.StatusGoingAway, reason); err != nil {
			e.logger.Warn("transport close", "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
