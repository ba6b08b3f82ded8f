// Package bridge links the cooperatively-scheduled host to the pipeline
// server over a single JSON-RPC WebSocket connection. The host calls
// Connect once at startup, Drain once per processing tick, Call/Notify in
// response to user actions and Close at shutdown.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"tvbridge/internal/infra/tracer"
	"tvbridge/internal/rpc"
	"tvbridge/internal/transport"
)

// EnvEndpoint names the environment variable holding the server address.
const EnvEndpoint = "WEBSOCKET_URL"

// State is the bridge lifecycle. A missing endpoint address or a failed
// connect attempt disables the bridge for the remainder of the process:
// every Call and Notify becomes a silent no-op.
type State string

const (
	StateUnconfigured State = "unconfigured"
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateDisabled     State = "disabled"
)

// Recorder persists wire traffic. Directions are "in" and "out".
type Recorder interface {
	Record(direction, payload string) error
}

// Bridge is the single entry point the host uses to talk to the server.
type Bridge struct {
	logger   *slog.Logger
	endpoint *transport.Endpoint
	pending  *PendingCalls
	queue    *InboundQueue
	registry *Registry
	recorder Recorder

	nextID atomic.Int64

	mu    sync.Mutex
	state State
	url   string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRecorder attaches a traffic recorder.
func WithRecorder(rec Recorder) Option {
	return func(b *Bridge) { b.recorder = rec }
}

// New creates an unconfigured bridge.
func New(logger *slog.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		logger:   logger,
		pending:  NewPendingCalls(logger),
		queue:    NewInboundQueue(),
		registry: NewRegistry(logger),
		state:    StateUnconfigured,
	}
	b.endpoint = transport.NewEndpoint(b, logger)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Configure sets the server address. An empty address disables the bridge
// permanently.
func (b *Bridge) Configure(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.url = url
	if url == "" {
		b.state = StateDisabled
		b.logger.Warn("no server address configured, bridge disabled")
		return
	}
	b.state = StateDisconnected
}

// ConfigureFromEnv reads the server address from WEBSOCKET_URL.
func (b *Bridge) ConfigureFromEnv() {
	b.Configure(os.Getenv(EnvEndpoint))
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Connection returns the metadata of the last connect attempt, or nil.
func (b *Bridge) Connection() *transport.Connection {
	return b.endpoint.Connection()
}

// Register exposes a local method to the server. Methods are registered
// once at startup.
func (b *Bridge) Register(method string, h Handler) {
	b.registry.Register(method, h)
}

// Connect dials the configured endpoint. A failed attempt disables the
// bridge for the remainder of the process; there is no retry.
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateDisconnected {
		state := b.state
		b.mu.Unlock()
		b.logger.Debug("connect skipped", "state", string(state))
		return nil
	}
	url := b.url
	b.mu.Unlock()

	if err := b.endpoint.Connect(ctx, url); err != nil {
		b.setState(StateDisabled)
		b.logger.Warn("connect failed, bridge disabled", "error", err)
		return err
	}
	b.setState(StateConnected)
	return nil
}

// Call sends a request and blocks until its response arrives or ctx
// expires. With a background context it blocks indefinitely. When the
// bridge is not connected it returns an empty response without touching
// the transport.
func (b *Bridge) Call(ctx context.Context, method string, params any) (*rpc.Response, error) {
	if b.State() != StateConnected {
		return &rpc.Response{}, nil
	}

	ctx, span := tracer.StartSpan(ctx, "bridge.call")
	span.SetAttributes(attribute.String("rpc.method", method))
	defer span.End()

	raw, err := marshalParams(params)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	id := rpc.Int64ID(b.nextID.Add(1))
	b.pending.Register(id)

	if !b.sendEntity(ctx, rpc.NewRequest(id, method, raw)) {
		// Send failures are logged no-ops; nothing will ever resolve this id.
		b.pending.Remove(id)
		return &rpc.Response{}, nil
	}

	resp, err := b.pending.Await(ctx, id)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetOK(span)
	return resp, nil
}

// CallTimeout is Call with a deadline.
func (b *Bridge) CallTimeout(ctx context.Context, method string, params any, timeout time.Duration) (*rpc.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return b.Call(ctx, method, params)
}

// Notify sends a fire-and-forget notification. No-op when not connected.
func (b *Bridge) Notify(ctx context.Context, method string, params any) error {
	if b.State() != StateConnected {
		return nil
	}
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	b.sendEntity(ctx, rpc.NewNotification(method, raw))
	return nil
}

// Drain processes every queued inbound item on the host's turn: requests
// are dispatched and answered, notifications are dispatched without a
// reply, and responses that matched no pending call are forwarded back out
// verbatim (the server relays such messages onward).
func (b *Bridge) Drain(ctx context.Context) {
	if b.State() != StateConnected {
		return
	}
	for _, raw := range b.queue.DrainAll() {
		entity, perr := rpc.Parse(raw)
		if perr != nil {
			// Already answered when it was received; queued items reparse cleanly.
			b.logger.Error("queued message no longer parses", "error", perr)
			continue
		}
		switch m := entity.(type) {
		case *rpc.Request:
			b.sendEntity(ctx, b.registry.Dispatch(ctx, m))
		case *rpc.Notification:
			b.registry.DispatchNotification(ctx, m)
		case *rpc.Response:
			b.sendText(ctx, raw)
		}
	}
}

// Close tears down the connection and joins the transport goroutine.
func (b *Bridge) Close() {
	b.endpoint.Close("shutting down")
}

// --- transport.Observer; all callbacks run on the transport goroutine ---

// OnOpen implements transport.Observer.
func (b *Bridge) OnOpen(banner string) {
	b.logger.Info("bridge connected", "server", banner)
}

// OnFail implements transport.Observer.
func (b *Bridge) OnFail(reason string) {
	b.logger.Warn("bridge connect failed", "reason", reason)
}

// OnClose implements transport.Observer. Connections are never reopened,
// so a close disables the bridge.
func (b *Bridge) OnClose(reason string) {
	b.logger.Info("bridge closed", "reason", reason)
	b.setState(StateDisabled)
}

// OnMessage implements transport.Observer. Responses resolve their pending
// call immediately; requests and notifications are queued for the next
// Drain. Malformed input is answered with a -32700 error response and a
// structurally invalid message with -32600, echoing its id when readable.
func (b *Bridge) OnMessage(text string) {
	b.record("in", text)
	b.logger.Debug("recv", "payload", text)

	entity, perr := rpc.Parse(text)
	if perr != nil {
		switch perr.Code {
		case rpc.CodeParseError, rpc.CodeInvalidRequest:
			b.sendEntity(context.Background(), rpc.NewErrorResponse(perr.RequestID(), perr))
		default:
			b.logger.Error("unhandled inbound message dropped", "error", perr)
		}
		return
	}

	switch m := entity.(type) {
	case *rpc.Response:
		if !b.pending.Resolve(m.ID, m) {
			// Nothing local is awaiting this id; let Drain relay it onward.
			b.queue.Enqueue(text)
		}
	case *rpc.Request, *rpc.Notification:
		b.queue.Enqueue(text)
	}
}

// --- internals ---

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// sendEntity serializes and sends e, reporting success. Send failures are
// logged and swallowed: a frame that cannot be written is a no-op.
func (b *Bridge) sendEntity(ctx context.Context, e rpc.Entity) bool {
	text, err := rpc.Encode(e)
	if err != nil {
		b.logger.Error("encode outbound message", "error", err)
		return false
	}
	return b.sendText(ctx, text)
}

func (b *Bridge) sendText(ctx context.Context, text string) bool {
	b.record("out", text)
	b.logger.Debug("send", "payload", text)
	if err := b.endpoint.Send(ctx, text); err != nil {
		b.logger.Warn("send failed", "error", err)
		return false
	}
	return true
}

func (b *Bridge) record(direction, payload string) {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.Record(direction, payload); err != nil {
		b.logger.Warn("journal write failed", "error", err)
	}
}

// marshalParams encodes caller params; nil means "no params member".
func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(params)
}
