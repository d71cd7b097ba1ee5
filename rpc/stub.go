package rpc

import (
	"context"
	"fmt"
)

// Invoker sends an invocation of a function held by the other side.
type Invoker interface {
	InvokeRef(index uint64, args []any) *Future
}

// Stub stands in for a function the other side passed by reference. Each
// call sends a fresh request for the same index.
type Stub struct {
	Index uint64

	inv Invoker
}

// NewStub returns a Stub for index that invokes through inv.
func NewStub(index uint64, inv Invoker) *Stub {
	return &Stub{Index: index, inv: inv}
}

// Call invokes the remote function with args.
func (s *Stub) Call(args ...any) *Future {
	return s.inv.InvokeRef(s.Index, args)
}

// Invoke calls the remote function and waits for its result. It makes a Stub
// usable anywhere a local callable is expected, including as an argument
// sent back to the other side.
func (s *Stub) Invoke(ctx context.Context, args []any) (any, error) {
	return s.inv.InvokeRef(s.Index, args).Await(ctx)
}

func (s *Stub) String() string {
	return fmt.Sprintf("func#%d", s.Index)
}
