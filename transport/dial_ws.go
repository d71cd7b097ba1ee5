package transport

import (
	"fmt"
	"sync"

	"golang.org/x/net/websocket"
)

// DialWS establishes a Conn via WebSocket connection.
// The address must be a host and port. Opening a WebSocket
// connection at a particular path is not supported.
func DialWS(addr string) (Conn, error) {
	ws, err := websocket.Dial(fmt.Sprintf("ws://%s/", addr), "", fmt.Sprintf("http://%s/", addr))
	if err != nil {
		return nil, err
	}
	return newWSConn(ws), nil
}

// newWSConn carries each message as one WebSocket text message.
func newWSConn(ws *websocket.Conn) *endpoint {
	ws.PayloadType = websocket.TextFrame
	var mu sync.Mutex
	e := newEndpoint(func(text string) error {
		mu.Lock()
		defer mu.Unlock()
		return websocket.Message.Send(ws, text)
	}, ws.Close)
	go func() {
		defer e.end()
		for {
			var msg string
			if err := websocket.Message.Receive(ws, &msg); err != nil {
				return
			}
			e.receive(msg)
		}
	}()
	return e
}
