package worker

import (
	"context"
	"fmt"
	"os"

	"github.com/progrium/wsetp-go/peer"
	"github.com/progrium/wsetp-go/rpc"
	"github.com/progrium/wsetp-go/transport"
)

// Self is the worker side of a channel.
type Self struct {
	peer   *peer.Peer
	gate   *gatedConn
	module bool
	ctx    context.Context
}

func newSelf(conn transport.Conn, module bool, opts ...peer.Option) *Self {
	ctx, cancel := context.WithCancel(context.Background())
	gate := &gatedConn{Conn: conn}
	opts = append(opts, peer.OnTerminate(cancel))
	return &Self{
		peer:   peer.New(gate, opts...),
		gate:   gate,
		module: module,
		ctx:    ctx,
	}
}

// run calls body and then starts delivering incoming frames.
func (s *Self) run(body Body, args []any) {
	defer s.gate.open()
	defer func() {
		if r := recover(); r != nil {
			s.peer.Emit("error", fmt.Sprint(r))
			s.Terminate()
		}
	}()
	body(s, args...)
}

// Emit sends an event to the host.
func (s *Self) Emit(event string, args ...any) error {
	return s.peer.Emit(event, args...)
}

// On registers a durable listener for events from the host.
func (s *Self) On(event string, handler any) (cancel func()) {
	return s.peer.On(event, handler)
}

// Once registers a listener removed after its first delivery.
func (s *Self) Once(event string, handler any) (cancel func()) {
	return s.peer.Once(event, handler)
}

// Fn exports callable to the host under name.
func (s *Self) Fn(name string, callable any) {
	s.peer.Export(name, callable)
}

// Call invokes a function the host exported on its peer.
func (s *Self) Call(name string, args ...any) *rpc.Future {
	return s.peer.Call(name, args...)
}

// Terminate tells the host the worker is done and shuts the worker down.
func (s *Self) Terminate() error {
	return s.peer.Terminate(true)
}

// Module reports whether the worker was started in module mode.
func (s *Self) Module() bool {
	return s.module
}

// Context is cancelled once the worker has been terminated from either side.
func (s *Self) Context() context.Context {
	return s.ctx
}

// Done is closed once the worker has shut down.
func (s *Self) Done() <-chan struct{} {
	return s.peer.Done()
}

// Peer returns the underlying peer.
func (s *Self) Peer() *peer.Peer {
	return s.peer
}

// ServeStdio runs body as a subprocess worker over stdin and stdout and
// returns once the worker is terminated. Start arguments are the process
// arguments after the program name.
func ServeStdio(body Body, opts ...peer.Option) error {
	conn, err := transport.DialStdio()
	if err != nil {
		return err
	}
	args := make([]any, 0, len(os.Args))
	for _, a := range os.Args[1:] {
		args = append(args, a)
	}
	serve(conn, os.Getenv(ModuleEnv) == "1", body, args, opts)
	return nil
}

// Serve runs body as a worker on conn, such as one accepted from a
// transport.Listener, and returns once the worker is terminated.
func Serve(conn transport.Conn, body Body, args []any, opts ...peer.Option) {
	serve(conn, false, body, args, opts)
}

func serve(conn transport.Conn, module bool, body Body, args []any, opts []peer.Option) {
	self := newSelf(conn, module, opts...)
	self.run(body, args)
	<-self.Done()
}

// gatedConn holds back incoming messages until open is called.
type gatedConn struct {
	transport.Conn
	handler func(string)
}

func (g *gatedConn) OnMessage(handler func(text string)) {
	g.handler = handler
}

func (g *gatedConn) open() {
	if g.handler != nil {
		g.Conn.OnMessage(g.handler)
	}
}
