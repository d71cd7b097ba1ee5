package transport

// Pipe returns two connected in-process Conns. Each direction has an
// unbounded queue, so Send never blocks. Closing one side closes the other
// once it has delivered what was already sent.
func Pipe() (Conn, Conn) {
	a := newEndpoint(nil, nil)
	b := newEndpoint(nil, nil)
	a.send = pipeSend(b)
	b.send = pipeSend(a)
	a.shutdown = pipeShutdown(b)
	b.shutdown = pipeShutdown(a)
	return a, b
}

func pipeSend(remote *endpoint) func(string) error {
	return func(text string) error {
		select {
		case <-remote.done:
			return ErrClosed
		default:
		}
		remote.receive(text)
		return nil
	}
}

func pipeShutdown(remote *endpoint) func() error {
	return func() error {
		remote.end()
		return nil
	}
}
