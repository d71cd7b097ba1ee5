// Package transport provides the raw, ordered, bidirectional text channels
// that frames travel over between two contexts.
package transport

import (
	"errors"
	"sync"
)

// ErrClosed is returned when sending on a closed Conn.
var ErrClosed = errors.New("transport: closed")

// Conn is an ordered, reliable, bidirectional channel of text messages
// between two contexts.
type Conn interface {
	// Send queues text for delivery to the other side.
	Send(text string) error

	// OnMessage sets the handler for incoming messages. Messages are
	// delivered one at a time in arrival order. Messages that arrive before
	// a handler is set are held until one is.
	OnMessage(handler func(text string))

	// Close closes the underlying transport. No messages are delivered
	// after this call.
	Close() error

	// Done is closed once the Conn is closed from either side.
	Done() <-chan struct{}
}

// Listener accepts incoming Conns.
type Listener interface {
	// Close closes the listener.
	// Any blocked Accept operations will be unblocked and return errors.
	Close() error

	// Accept waits for and returns the next incoming Conn.
	Accept() (Conn, error)
}

// endpoint implements Conn on top of a send function and an unbounded inbox
// filled by a transport specific reader.
type endpoint struct {
	send     func(string) error
	shutdown func() error

	mu      sync.Mutex
	cond    *sync.Cond
	inbox   []string
	handler func(string)
	closed  bool
	ended   bool

	done chan struct{}
	once sync.Once
	err  error
}

func newEndpoint(send func(string) error, shutdown func() error) *endpoint {
	e := &endpoint{
		send:     send,
		shutdown: shutdown,
		done:     make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	go e.deliver()
	return e
}

func (e *endpoint) Send(text string) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	return e.send(text)
}

func (e *endpoint) OnMessage(handler func(text string)) {
	e.mu.Lock()
	e.handler = handler
	e.mu.Unlock()
	e.cond.Broadcast()
}

func (e *endpoint) Done() <-chan struct{} {
	return e.done
}

func (e *endpoint) Close() error {
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.inbox = nil
		e.mu.Unlock()
		e.cond.Broadcast()
		if e.shutdown != nil {
			e.err = e.shutdown()
		}
		close(e.done)
	})
	return e.err
}

// receive queues a message read from the other side.
func (e *endpoint) receive(text string) {
	e.mu.Lock()
	if !e.closed && !e.ended {
		e.inbox = append(e.inbox, text)
	}
	e.mu.Unlock()
	e.cond.Broadcast()
}

// end marks that the other side is gone. Messages already queued are still
// delivered before the endpoint closes.
func (e *endpoint) end() {
	e.mu.Lock()
	e.ended = true
	e.mu.Unlock()
	e.cond.Broadcast()
}

func (e *endpoint) deliver() {
	for {
		e.mu.Lock()
		for !e.closed && (e.handler == nil || len(e.inbox) == 0) && !(e.ended && len(e.inbox) == 0) {
			e.cond.Wait()
		}
		if e.closed {
			e.mu.Unlock()
			return
		}
		if len(e.inbox) == 0 {
			e.mu.Unlock()
			e.Close()
			return
		}
		msg := e.inbox[0]
		e.inbox[0] = ""
		e.inbox = e.inbox[1:]
		handler := e.handler
		e.mu.Unlock()
		handler(msg)
	}
}
