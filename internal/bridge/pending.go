package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tvbridge/internal/rpc"
)

// ErrAwaitTimeout is returned by Await when the caller's context expires
// before the matching response arrives.
var ErrAwaitTimeout = errors.New("timed out awaiting response")

type pendingSlot struct {
	ch       chan *rpc.Response
	resolved bool
}

// PendingCalls correlates outbound requests with their eventual responses.
// Register and Await run on the caller's goroutine; Resolve runs on the
// transport's read loop.
type PendingCalls struct {
	mu     sync.Mutex
	slots  map[string]*pendingSlot
	logger *slog.Logger
}

// NewPendingCalls creates an empty table.
func NewPendingCalls(logger *slog.Logger) *PendingCalls {
	return &PendingCalls{slots: make(map[string]*pendingSlot), logger: logger}
}

// Register creates a pending slot for id. Must be called before the request
// is sent so the response can never race past the table.
func (p *PendingCalls) Register(id json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots[rpc.IDKey(id)] = &pendingSlot{ch: make(chan *rpc.Response, 1)}
}

// Resolve fills the slot for id exactly once and reports whether a slot
// existed. A second resolve for the same id is a no-op; a resolve for an
// unknown id reports false and the response is discarded.
func (p *PendingCalls) Resolve(id json.RawMessage, resp *rpc.Response) bool {
	key := rpc.IDKey(id)
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, ok := p.slots[key]
	if !ok {
		p.logger.Debug("response without pending call discarded", "id", key)
		return false
	}
	if slot.resolved {
		p.logger.Debug("duplicate response ignored", "id", key)
		return true
	}
	slot.resolved = true
	slot.ch <- resp
	return true
}

// Await blocks until the slot for id is resolved or ctx expires. The slot
// is removed either way, so a late response after a timeout is discarded
// like any other unmatched response. With a background context it blocks
// indefinitely.
func (p *PendingCalls) Await(ctx context.Context, id json.RawMessage) (*rpc.Response, error) {
	key := rpc.IDKey(id)
	p.mu.Lock()
	slot, ok := p.slots[key]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("await: id %s not registered", key)
	}

	select {
	case resp := <-slot.ch:
		p.remove(key)
		return resp, nil
	case <-ctx.Done():
		p.remove(key)
		return nil, fmt.Errorf("await id %s: %w: %v", key, ErrAwaitTimeout, ctx.Err())
	}
}

// Remove drops the slot for id without waiting, used when a send fails
// after registration.
func (p *PendingCalls) Remove(id json.RawMessage) {
	p.remove(rpc.IDKey(id))
}

func (p *PendingCalls) remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.slots, key)
}

// Len reports the number of outstanding calls.
func (p *PendingCalls) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}
