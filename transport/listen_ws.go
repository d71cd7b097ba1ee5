package transport

import (
	"net"
	"net/http"

	"golang.org/x/net/websocket"
)

// HandleWS is used to take WebSocket connections, wrap them as Conns, and send
// them to a NetListener to be accepted. It returns once the Conn is closed.
func HandleWS(l *NetListener, ws *websocket.Conn) {
	conn := newWSConn(ws)
	l.accepted <- conn
	<-conn.Done()
}

// ListenWS takes a TCP address and returns a NetListener with an HTTP+WebSocket server listening on the given address.
func ListenWS(addr string) (*NetListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	nl := &NetListener{
		Listener: l,
		accepted: make(chan Conn),
		errs:     make(chan error, 2),
		closer:   make(chan bool, 1),
	}
	s := &http.Server{
		Addr: addr,
		Handler: websocket.Handler(func(ws *websocket.Conn) {
			HandleWS(nl, ws)
		}),
	}
	go func() {
		nl.errs <- s.Serve(l)
	}()
	return nl, nil
}
