package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"tvbridge/internal/infra/tracer"
	"tvbridge/internal/rpc"
)

// Handler processes one inbound call. id is nil for notifications. The
// returned raw JSON becomes the response result; a returned error is
// converted into a result string, never into a protocol error.
type Handler func(ctx context.Context, id json.RawMessage, params json.RawMessage) (json.RawMessage, error)

// Registry maps method names to local handlers. Methods are registered at
// startup and never removed.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRegistry creates a registry with the built-in ping keep-alive already
// declared.
func NewRegistry(logger *slog.Logger) *Registry {
	r := &Registry{handlers: make(map[string]Handler), logger: logger}
	r.Register("ping", pingHandler)
	return r
}

// Register adds a handler for method, replacing any previous one.
func (r *Registry) Register(method string, h Handler) {
	r.mu.Lock()
	r.handlers[method] = h
	r.mu.Unlock()
	r.logger.Debug("method registered", "method", method)
}

// Dispatch runs the handler for req and always produces a response echoing
// the request's id. An unregistered method yields a -32601 error response.
// A handler failure or panic is answered with the failure text as the
// result payload — dispatch never propagates an error upward.
func (r *Registry) Dispatch(ctx context.Context, req *rpc.Request) *rpc.Response {
	ctx, span := tracer.StartSpan(ctx, "bridge.dispatch")
	defer span.End()

	r.mu.RLock()
	h, ok := r.handlers[req.Method]
	r.mu.RUnlock()

	if !ok {
		rpcErr := &rpc.Error{
			Code:    rpc.CodeMethodNotFound,
			Message: fmt.Sprintf("Method %q not found", req.Method),
		}
		tracer.RecordError(span, rpcErr)
		return rpc.NewErrorResponse(req.ID, rpcErr)
	}

	result := r.invoke(ctx, h, req.ID, req.Params, req.Method)
	tracer.SetOK(span)
	return rpc.NewResult(req.ID, result)
}

// DispatchNotification runs the handler for n and discards the outcome. No
// reply is ever produced, even when the handler fails.
func (r *Registry) DispatchNotification(ctx context.Context, n *rpc.Notification) {
	r.mu.RLock()
	h, ok := r.handlers[n.Method]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug("notification for unknown method dropped", "method", n.Method)
		return
	}
	r.invoke(ctx, h, nil, n.Params, n.Method)
}

// invoke runs h, converting errors and panics into a string result.
func (r *Registry) invoke(ctx context.Context, h Handler, id, params json.RawMessage, method string) (result json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked", "method", method, "panic", rec)
			result, _ = json.Marshal(fmt.Sprintf("%v", rec))
		}
	}()

	result, err := h(ctx, id, params)
	if err != nil {
		r.logger.Warn("handler failed", "method", method, "error", err)
		result, _ = json.Marshal(err.Error())
	}
	return result
}

// pingHandler echoes the request's sequence value back inside the result.
func pingHandler(_ context.Context, _ json.RawMessage, params json.RawMessage) (json.RawMessage, error) {
	var p struct {
		Seq json.RawMessage `json:"seq"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
	}
	if p.Seq == nil {
		p.Seq = json.RawMessage("null")
	}
	return json.Marshal(map[string]json.RawMessage{"seq": p.Seq})
}
