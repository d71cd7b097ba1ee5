package rpc

import (
	"sync"

	"github.com/progrium/wsetp-go/codec"
)

type pendingKey struct {
	origin codec.Type
	id     string
}

// Tracker holds the pending invocations of one peer, keyed by the origin tag
// of the request (TypeFunc or TypeCall) and its correlation id.
type Tracker struct {
	mu      sync.Mutex
	pending map[pendingKey]*Future
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[pendingKey]*Future)}
}

// Track registers a one-shot entry and returns the Future it settles.
func (t *Tracker) Track(origin codec.Type, id string) *Future {
	f := NewFuture()
	t.mu.Lock()
	t.pending[pendingKey{origin, id}] = f
	t.mu.Unlock()
	return f
}

// Resolve settles and removes the entry for origin and id. It returns false
// when there is no such entry, as for a duplicate or unsolicited response.
func (t *Tracker) Resolve(origin codec.Type, id string, value any, err error) bool {
	k := pendingKey{origin, id}
	t.mu.Lock()
	f, ok := t.pending[k]
	delete(t.pending, k)
	t.mu.Unlock()
	if !ok {
		return false
	}
	return f.Settle(value, err)
}

// Release drops every entry without settling it and returns how many were
// dropped. Their Futures stay pending.
func (t *Tracker) Release() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.pending)
	t.pending = make(map[pendingKey]*Future)
	return n
}

// Len returns the number of pending entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
