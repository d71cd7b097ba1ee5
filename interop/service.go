// Package interop has the services used to check that two implementations
// of the protocol can talk to each other.
package interop

import (
	"context"
	"errors"
	"time"

	"github.com/progrium/wsetp-go/rpc"
	"github.com/progrium/wsetp-go/worker"
)

// InteropService is exported by the worker under test. Its methods exercise
// every frame type and value kind.
type InteropService struct {
	Self *worker.Self
}

// Unary round trips params through the host's own Unary export.
func (s InteropService) Unary(ctx context.Context, params any) (any, error) {
	return s.Self.Call("Unary", params).Await(ctx)
}

// Callback invokes cb with v and returns what it returned.
func (s InteropService) Callback(ctx context.Context, cb *rpc.Stub, v any) (any, error) {
	if cb == nil {
		return nil, errors.New("missing callback")
	}
	return cb.Call(v).Await(ctx)
}

// Echo returns its arguments unchanged.
func (s InteropService) Echo(args ...any) []any {
	return args
}

// Date returns t moved forward by one day.
func (s InteropService) Date(t time.Time) time.Time {
	return t.Add(24 * time.Hour)
}

// Sleep waits ms milliseconds before returning ms, so calls can complete out
// of order.
func (s InteropService) Sleep(ctx context.Context, ms int) (int, error) {
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return ms, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Emit sends event back to the host with args.
func (s InteropService) Emit(event string, args ...any) error {
	return s.Self.Emit(event, args...)
}

// Error fails with text.
func (s InteropService) Error(text string) error {
	return errors.New(text)
}

// Serve is a worker body exporting InteropService.
func Serve(self *worker.Self, args ...any) {
	self.Peer().ExportMethods(InteropService{Self: self})
}

// CallbackService is exported by the host running the check.
type CallbackService struct{}

// Unary returns params unchanged.
func (s CallbackService) Unary(params any) any {
	return params
}
