package fn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownReference is returned when a registry index or exported name is
// not known locally.
var ErrUnknownReference = errors.New("fn: unknown reference")

type retention int

const (
	retainForever retention = iota
	retainOnce
	retainFor
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// Persistent keeps every registered function for the life of the registry.
// This is the default; the registry grows without bound.
func Persistent() RegistryOption {
	return func(r *Registry) {
		r.retention = retainForever
	}
}

// SingleUse removes an entry the first time it is resolved.
func SingleUse() RegistryOption {
	return func(r *Registry) {
		r.retention = retainOnce
	}
}

// Expiring drops entries once ttl has passed since they were registered.
func Expiring(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		r.retention = retainFor
		r.ttl = ttl
	}
}

type entry struct {
	fn      Func
	expires time.Time
}

// Registry maps indexes to local functions whose references were sent to the
// other side. Indexes are assigned in registration order and never reused.
// A Registry is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	next      uint64
	entries   map[uint64]entry
	retention retention
	ttl       time.Duration
	now       func() time.Time
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[uint64]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds callable and returns its index. A value that cannot be
// wrapped is still registered and fails when invoked.
func (r *Registry) Register(callable any) uint64 {
	f, err := Wrap(callable)
	if err != nil {
		f = func(context.Context, []any) (any, error) {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep()
	idx := r.next
	r.next++
	e := entry{fn: f}
	if r.retention == retainFor {
		e.expires = r.now().Add(r.ttl)
	}
	r.entries[idx] = e
	return idx
}

// Resolve returns the function registered under index.
func (r *Registry) Resolve(index uint64) (Func, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep()
	e, ok := r.entries[index]
	if !ok {
		return nil, fmt.Errorf("%w: function %d", ErrUnknownReference, index)
	}
	if r.retention == retainOnce {
		delete(r.entries, index)
	}
	return e.fn, nil
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep()
	return len(r.entries)
}

func (r *Registry) sweep() {
	if r.retention != retainFor {
		return
	}
	now := r.now()
	for idx, e := range r.entries {
		if !now.Before(e.expires) {
			delete(r.entries, idx)
		}
	}
}
