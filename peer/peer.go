// Package peer implements the symmetric engine that runs on each side of a
// channel: it encodes outgoing events, calls and function invocations, and
// dispatches incoming frames to listeners, exported functions, registered
// functions and pending calls.
package peer

import (
	"context"
	"fmt"
	"sync"

	"github.com/progrium/wsetp-go/bus"
	"github.com/progrium/wsetp-go/codec"
	"github.com/progrium/wsetp-go/fn"
	"github.com/progrium/wsetp-go/rpc"
	"github.com/progrium/wsetp-go/transport"
	"github.com/rs/zerolog"
)

// Peer is one side of a channel. It is safe for concurrent use.
//
// Events are delivered to listeners one at a time in arrival order. Returns
// are resolved as soon as they are read, so listeners and functions may wait
// on remote calls. Each incoming invocation runs on its own goroutine.
type Peer struct {
	conn        transport.Conn
	log         zerolog.Logger
	registry    *fn.Registry
	tracker     *rpc.Tracker
	bus         *bus.Bus
	failure     FailureMode
	onTerminate []func()

	mu      sync.Mutex
	exports map[string]fn.Func

	events *mailbox
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// New starts a Peer on conn.
func New(conn transport.Conn, opts ...Option) *Peer {
	p := &Peer{
		conn:    conn,
		log:     zerolog.Nop(),
		tracker: rpc.NewTracker(),
		exports: make(map[string]fn.Func),
		events:  newMailbox(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = fn.NewRegistry()
	}
	p.bus = bus.New(p.log)
	p.ctx, p.cancel = context.WithCancel(context.Background())

	go p.deliverEvents()
	go func() {
		select {
		case <-conn.Done():
			// events that arrived before the channel closed are still
			// delivered, then deliverEvents shuts the peer down
			p.cancel()
			p.events.end()
		case <-p.ctx.Done():
		}
	}()
	conn.OnMessage(p.receive)
	return p
}

// Emit sends an event to the other side. It does not wait for delivery.
func (p *Peer) Emit(event string, args ...any) error {
	return p.send(codec.TypeData, event, args)
}

// On registers a durable listener for event. The handler may be any function;
// its parameters are converted from the event arguments. It panics if handler
// is not a function.
func (p *Peer) On(event string, handler any) (cancel func()) {
	return p.bus.On(event, fn.MustWrap(handler))
}

// Once registers a listener that is removed after its first delivery.
func (p *Peer) Once(event string, handler any) (cancel func()) {
	return p.bus.Once(event, fn.MustWrap(handler))
}

// Export makes callable invocable by name from the other side, replacing any
// previous export of the same name. It panics if callable is not a function.
func (p *Peer) Export(name string, callable any) {
	if name == "" {
		panic("peer: empty export name")
	}
	f := fn.MustWrap(callable)
	p.mu.Lock()
	p.exports[name] = f
	p.mu.Unlock()
}

// ExportMethods exports every exported method of rcvr under its method name.
func (p *Peer) ExportMethods(rcvr any) {
	funcs := fn.Methods(rcvr)
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, f := range funcs {
		p.exports[name] = f
	}
}

// Unexport removes an exported function.
func (p *Peer) Unexport(name string) {
	p.mu.Lock()
	delete(p.exports, name)
	p.mu.Unlock()
}

// Call invokes a function the other side exported under name.
func (p *Peer) Call(name string, args ...any) *rpc.Future {
	id := rpc.NewID()
	return p.request(codec.TypeCall, codec.CallEvent(name, id), id, args)
}

// InvokeRef invokes the function the other side registered under index.
func (p *Peer) InvokeRef(index uint64, args []any) *rpc.Future {
	id := rpc.NewID()
	return p.request(codec.TypeFunc, codec.FuncEvent(index, id), id, args)
}

// Fn returns a handle for calling the function exported under name.
func (p *Peer) Fn(name string) Remote {
	return Remote{Name: name, caller: p}
}

// Terminate shuts the peer down. When graceful, the other side is first sent
// the terminate event so it shuts down too.
func (p *Peer) Terminate(graceful bool) error {
	var err error
	if graceful {
		err = p.Emit(codec.TerminateEvent)
	}
	p.shutdown()
	return err
}

// Close shuts the peer down without notifying the other side.
func (p *Peer) Close() error {
	return p.Terminate(false)
}

// Done is closed once the peer has shut down and its terminate hooks have
// run.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Pending returns the number of calls waiting for a return.
func (p *Peer) Pending() int {
	return p.tracker.Len()
}

// Registry returns the registry of functions sent by reference.
func (p *Peer) Registry() *fn.Registry {
	return p.registry
}

func (p *Peer) request(origin codec.Type, event, id string, args []any) *rpc.Future {
	f := p.tracker.Track(origin, id)
	if err := p.send(origin, event, args); err != nil {
		p.tracker.Resolve(origin, id, nil, err)
	}
	return f
}

func (p *Peer) send(t codec.Type, event string, args []any) error {
	vals := make([]codec.Value, len(args))
	for i, arg := range args {
		vals[i] = codec.ValueOf(arg, p.registry)
	}
	text, err := codec.EncodeFrame(codec.Frame{Type: t, Event: event, Args: vals})
	if err != nil {
		return err
	}
	return p.conn.Send(text)
}

func (p *Peer) shutdown() {
	p.once.Do(func() {
		p.cancel()
		p.events.close()
		if n := p.tracker.Release(); n > 0 {
			p.log.Debug().Int("pending", n).Msg("released unresolved calls")
		}
		if err := p.conn.Close(); err != nil {
			p.log.Debug().Err(err).Msg("closing transport")
		}
		for _, f := range p.onTerminate {
			f()
		}
		close(p.done)
	})
}

func (p *Peer) receive(text string) {
	frame, err := codec.DecodeFrame(text)
	if err != nil {
		p.log.Warn().Err(err).Str("frame", text).Msg("dropping frame")
		return
	}
	switch frame.Type {
	case codec.TypeData:
		p.events.put(frame)
	case codec.TypeFunc, codec.TypeCall:
		go p.respond(frame)
	case codec.TypeReturn:
		p.resolve(frame)
	}
}

func (p *Peer) deliverEvents() {
	for {
		frame, ok := p.events.take()
		if !ok {
			p.shutdown()
			return
		}
		p.bus.Emit(p.ctx, frame.Event, p.args(frame.Args))
		if frame.Event == codec.TerminateEvent {
			p.shutdown()
			return
		}
	}
}

func (p *Peer) resolve(frame *codec.Frame) {
	origin, id, err := codec.ParseReturnEvent(frame.Event)
	if err != nil {
		p.log.Warn().Err(err).Msg("dropping return")
		return
	}
	var (
		value any
		rerr  error
	)
	if len(frame.Args) > 0 {
		if failure, ok := frame.Args[0].(codec.Failure); ok {
			rerr = rpc.RemoteError(failure.Message)
		} else {
			value = p.arg(frame.Args[0])
		}
	}
	if !p.tracker.Resolve(origin, id, value, rerr) {
		p.log.Debug().Str("event", frame.Event).Msg("unsolicited return")
	}
}

func (p *Peer) respond(frame *codec.Frame) {
	var (
		f   fn.Func
		id  string
		err error
	)
	switch frame.Type {
	case codec.TypeFunc:
		var index uint64
		index, id, err = codec.ParseFuncEvent(frame.Event)
		if err != nil {
			p.log.Warn().Err(err).Msg("dropping invocation")
			return
		}
		f, err = p.registry.Resolve(index)
	case codec.TypeCall:
		var name string
		name, id, err = codec.ParseCallEvent(frame.Event)
		if err != nil {
			p.log.Warn().Err(err).Msg("dropping call")
			return
		}
		f, err = p.export(name)
	}

	var result any
	if err == nil {
		result, err = p.invoke(f, p.args(frame.Args))
	}
	p.reply(frame.Type, id, result, err)
}

func (p *Peer) export(name string) (fn.Func, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.exports[name]
	if !ok {
		return nil, fmt.Errorf("%w: function %q", fn.ErrUnknownReference, name)
	}
	return f, nil
}

func (p *Peer) invoke(f fn.Func, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("peer: panic: %v", r)
		}
	}()
	result, err = f(p.ctx, args)
	if err != nil {
		return nil, err
	}
	if future, ok := result.(*rpc.Future); ok {
		return future.Await(p.ctx)
	}
	return result, nil
}

func (p *Peer) reply(origin codec.Type, id string, result any, err error) {
	v := codec.ValueOf(result, p.registry)
	if err != nil {
		v = p.failureValue(err)
	}
	text, encErr := codec.EncodeFrame(codec.Frame{
		Type:  codec.TypeReturn,
		Event: codec.ReturnEvent(origin, id),
		Args:  []codec.Value{v},
	})
	if encErr != nil {
		p.log.Warn().Err(encErr).Msg("encoding return")
		text, _ = codec.EncodeFrame(codec.Frame{
			Type:  codec.TypeReturn,
			Event: codec.ReturnEvent(origin, id),
			Args:  []codec.Value{p.failureValue(encErr)},
		})
	}
	if err := p.conn.Send(text); err != nil {
		p.log.Debug().Err(err).Str("id", id).Msg("sending return")
	}
}

func (p *Peer) failureValue(err error) codec.Value {
	if p.failure == Collapsed {
		return codec.Scalar{V: err.Error()}
	}
	return codec.Failure{Message: err.Error()}
}

func (p *Peer) args(vals []codec.Value) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = p.arg(v)
	}
	return args
}

func (p *Peer) arg(v codec.Value) any {
	switch vv := v.(type) {
	case codec.Scalar:
		return vv.V
	case codec.Temporal:
		return vv.T
	case codec.FuncRef:
		return rpc.NewStub(vv.Index, p)
	case codec.Failure:
		return rpc.RemoteError(vv.Message)
	default:
		return nil
	}
}

// Remote is a function exported by the other side.
type Remote struct {
	Name string

	caller *Peer
}

// Call invokes the remote function with args.
func (r Remote) Call(args ...any) *rpc.Future {
	return r.caller.Call(r.Name, args...)
}

// Invoke calls the remote function and waits for its result.
func (r Remote) Invoke(ctx context.Context, args []any) (any, error) {
	return r.caller.Call(r.Name, args...).Await(ctx)
}
