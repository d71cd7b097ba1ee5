// Package worker is the host-facing facade over a channel to an isolated
// worker, and the worker-side API that serves it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/progrium/wsetp-go/fn"
	"github.com/progrium/wsetp-go/peer"
	"github.com/progrium/wsetp-go/rpc"
	"github.com/rs/zerolog"
)

var (
	// ErrUnsupportedEnvironment is returned by New when the isolated
	// execution capability a Spawner needs is not available.
	ErrUnsupportedEnvironment = errors.New("worker: unsupported environment")

	// ErrNotStarted is returned when sending before Start.
	ErrNotStarted = errors.New("worker: not started")
)

// State is the lifecycle state of a Worker.
type State int

const (
	Created State = iota
	Started
	Terminated
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Started:
		return "started"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger used by the Worker and its peer.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Worker) {
		w.log = log
	}
}

// WithRetention sets the retention policy of the function registry created
// on every Start.
func WithRetention(opts ...fn.RegistryOption) Option {
	return func(w *Worker) {
		w.retention = opts
	}
}

// WithPeerOptions adds options for the peer created on every Start.
func WithPeerOptions(opts ...peer.Option) Option {
	return func(w *Worker) {
		w.peerOpts = append(w.peerOpts, opts...)
	}
}

// StartOption configures a single Start.
type StartOption func(*SpawnOptions)

// AsModule starts the worker in module mode.
func AsModule() StartOption {
	return func(o *SpawnOptions) {
		o.Module = true
	}
}

type bufferedListener struct {
	event   string
	handler any
	once    bool
	cancel  func()
}

// Worker is the host side of a channel to a worker. Listeners registered
// before Start are buffered and attached when it starts. It is safe for
// concurrent use.
type Worker struct {
	spawner   Spawner
	log       zerolog.Logger
	retention []fn.RegistryOption
	peerOpts  []peer.Option

	mu       sync.Mutex
	state    State
	gen      int
	peer     *peer.Peer
	buffered []*bufferedListener
}

// New returns a Worker in the Created state. It fails with
// ErrUnsupportedEnvironment before doing anything else if spawner is nil or
// reports it cannot run here.
func New(spawner Spawner, opts ...Option) (*Worker, error) {
	if spawner == nil {
		return nil, fmt.Errorf("%w: no spawner", ErrUnsupportedEnvironment)
	}
	if s, ok := spawner.(supporter); ok {
		if err := s.Supported(); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedEnvironment, err)
		}
	}
	w := &Worker{
		spawner: spawner,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start spawns the worker and attaches buffered listeners. Calling it again
// replaces the channel with a new one; listeners attached to the old channel
// are not carried over.
func (w *Worker) Start(ctx context.Context, opts ...StartOption) error {
	spawnOpts := SpawnOptions{Log: w.log}
	for _, opt := range opts {
		opt(&spawnOpts)
	}

	w.mu.Lock()
	w.gen++
	gen := w.gen
	old := w.peer
	w.peer = nil
	w.mu.Unlock()
	if old != nil {
		old.Close()
	}

	conn, err := w.spawner.Spawn(ctx, spawnOpts)
	if err != nil {
		return fmt.Errorf("worker: spawn: %w", err)
	}
	popts := append([]peer.Option{
		peer.WithLogger(w.log),
		peer.WithRegistry(fn.NewRegistry(w.retention...)),
		peer.OnTerminate(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.gen == gen {
				w.state = Terminated
			}
		}),
	}, w.peerOpts...)
	gate := &gatedConn{Conn: conn}
	p := peer.New(gate, popts...)
	defer gate.open()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		// a later Start or Terminate won
		go p.Close()
		return nil
	}
	w.peer = p
	w.state = Started
	select {
	case <-p.Done():
		// shut down before we got here
		w.state = Terminated
	default:
	}
	for _, l := range w.buffered {
		if l.once {
			l.cancel = p.Once(l.event, l.handler)
		} else {
			l.cancel = p.On(l.event, l.handler)
		}
	}
	w.buffered = nil
	w.log.Debug().Bool("module", spawnOpts.Module).Msg("worker started")
	return nil
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Peer returns the peer of the current channel, or nil before Start.
func (w *Worker) Peer() *peer.Peer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.peer
}

func (w *Worker) current() (*peer.Peer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.peer == nil {
		return nil, ErrNotStarted
	}
	return w.peer, nil
}

// Emit sends an event to the worker.
func (w *Worker) Emit(event string, args ...any) error {
	p, err := w.current()
	if err != nil {
		return err
	}
	return p.Emit(event, args...)
}

// On registers a durable listener for events from the worker. It panics if
// handler is not a function.
func (w *Worker) On(event string, handler any) (cancel func()) {
	return w.listen(event, handler, false)
}

// Once registers a listener removed after its first delivery.
func (w *Worker) Once(event string, handler any) (cancel func()) {
	return w.listen(event, handler, true)
}

func (w *Worker) listen(event string, handler any, once bool) func() {
	fn.MustWrap(handler)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.peer != nil {
		if once {
			return w.peer.Once(event, handler)
		}
		return w.peer.On(event, handler)
	}
	l := &bufferedListener{event: event, handler: handler, once: once}
	w.buffered = append(w.buffered, l)
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if l.cancel != nil {
			l.cancel()
			return
		}
		for i, b := range w.buffered {
			if b == l {
				w.buffered = append(w.buffered[:i], w.buffered[i+1:]...)
				return
			}
		}
	}
}

// Fn returns a handle for calling the function the worker exported as name.
func (w *Worker) Fn(name string) Remote {
	return Remote{Name: name, w: w}
}

// Terminate closes the channel without notifying the worker.
func (w *Worker) Terminate() error {
	return w.terminate(false)
}

// TerminateGracefully sends the worker the terminate event before closing
// the channel.
func (w *Worker) TerminateGracefully() error {
	return w.terminate(true)
}

func (w *Worker) terminate(graceful bool) error {
	w.mu.Lock()
	w.gen++
	p := w.peer
	w.state = Terminated
	w.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Terminate(graceful)
}

// Wait blocks until the current channel shuts down or ctx is done.
func (w *Worker) Wait(ctx context.Context) error {
	p, err := w.current()
	if err != nil {
		return err
	}
	select {
	case <-p.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remote is a function exported by the worker.
type Remote struct {
	Name string

	w *Worker
}

// Call invokes the function. Before Start the returned future has already
// failed with ErrNotStarted.
func (r Remote) Call(args ...any) *rpc.Future {
	p, err := r.w.current()
	if err != nil {
		return rpc.Failed(err)
	}
	return p.Call(r.Name, args...)
}
