package rpc

import (
	"context"
	"errors"
	"sync"
)

// ErrPending is returned by Result while a Future has not settled.
var ErrPending = errors.New("rpc: pending")

// Future is the eventual result of an invocation. It settles at most once.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

// NewFuture returns an unsettled Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a Future already settled with v.
func Resolved(v any) *Future {
	f := NewFuture()
	f.Settle(v, nil)
	return f
}

// Failed returns a Future already settled with err.
func Failed(err error) *Future {
	f := NewFuture()
	f.Settle(nil, err)
	return f
}

// Settle completes the Future with a value or an error. It reports whether
// this call settled it; later calls have no effect.
func (f *Future) Settle(value any, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done returns a channel that is closed once the Future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled value and error, or ErrPending.
func (f *Future) Result() (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		return nil, ErrPending
	}
}

// Await blocks until the Future settles or ctx is done. A response that never
// arrives leaves the Future pending, so ctx is the only bound on the wait.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
