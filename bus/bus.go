// Package bus fans named events out to their listeners.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/progrium/wsetp-go/fn"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type listener struct {
	id   uint64
	fn   fn.Func
	once bool
}

// Bus is a registry of event listeners. Durable listeners stay registered
// until cancelled; one-shot listeners are removed as they are delivered to.
// A Bus is safe for concurrent use.
type Bus struct {
	mu        sync.Mutex
	next      uint64
	listeners map[string][]*listener
	log       zerolog.Logger
}

// New returns an empty Bus that logs listener failures to log.
func New(log zerolog.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]*listener),
		log:       log,
	}
}

// On registers a durable listener for event and returns a function that
// removes it.
func (b *Bus) On(event string, f fn.Func) (cancel func()) {
	return b.add(event, f, false)
}

// Once registers a listener that is removed after its first delivery.
func (b *Bus) Once(event string, f fn.Func) (cancel func()) {
	return b.add(event, f, true)
}

func (b *Bus) add(event string, f fn.Func, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	l := &listener{id: b.next, fn: f, once: once}
	b.next++
	b.listeners[event] = append(b.listeners[event], l)
	return func() {
		b.remove(event, func(item *listener, _ int) bool {
			return item.id == l.id
		})
	}
}

func (b *Bus) remove(event string, match func(*listener, int) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(event, match)
}

func (b *Bus) removeLocked(event string, match func(*listener, int) bool) {
	rest := lo.Reject(b.listeners[event], match)
	if len(rest) == 0 {
		delete(b.listeners, event)
		return
	}
	b.listeners[event] = rest
}

// Emit delivers args to every listener of event in registration order and
// returns how many listeners were invoked. Listener errors and panics are
// logged and do not stop delivery.
func (b *Bus) Emit(ctx context.Context, event string, args []any) int {
	b.mu.Lock()
	targets := b.listeners[event]
	b.removeLocked(event, func(item *listener, _ int) bool {
		return item.once
	})
	b.mu.Unlock()

	for _, l := range targets {
		if err := call(ctx, l.fn, args); err != nil {
			b.log.Warn().Err(err).Str("event", event).Msg("listener failed")
		}
	}
	return len(targets)
}

func call(ctx context.Context, f fn.Func, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bus: panic: %v", r)
		}
	}()
	_, err = f(ctx, args)
	return err
}

// Len returns the number of listeners registered for event.
func (b *Bus) Len(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}

// Events returns the names of events that have listeners.
func (b *Bus) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.Keys(b.listeners)
}
