package bridge

import "sync"

// InboundQueue defers raw inbound requests and notifications from the
// transport goroutine to the host's cooperative turn. Enqueue never blocks
// and DrainAll never waits; arrival order is preserved.
type InboundQueue struct {
	mu    sync.Mutex
	items []string
}

// NewInboundQueue creates an empty queue.
func NewInboundQueue() *InboundQueue {
	return &InboundQueue{}
}

// Enqueue appends a raw message. Ownership transfers to the next drain.
func (q *InboundQueue) Enqueue(text string) {
	q.mu.Lock()
	q.items = append(q.items, text)
	q.mu.Unlock()
}

// DrainAll removes and returns every queued item in FIFO order. Returns an
// empty slice when nothing is queued.
func (q *InboundQueue) DrainAll() []string {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// Len reports the number of queued items.
func (q *InboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
