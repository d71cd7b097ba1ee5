package peer

import (
	"fmt"

	"github.com/progrium/wsetp-go/transport"
)

// A Dialer connects to address and establishes a transport.Conn
type Dialer func(addr string) (transport.Conn, error)

// Dialers is map of transport strings to Dialers
// and includes all builtin transports
var Dialers map[string]Dialer

func init() {
	Dialers = map[string]Dialer{
		"tcp":  transport.DialTCP,
		"unix": transport.DialUnix,
		"ws":   transport.DialWS,
		"quic": func(addr string) (transport.Conn, error) {
			return transport.DialQUIC(addr, nil)
		},
		"stdio": func(_ string) (transport.Conn, error) {
			return transport.DialStdio()
		},
	}
}

// Dial connects to a remote address using a registered transport and returns a Peer.
// Available transports are "tcp", "unix", "ws", "quic" and "stdio". In the case of "stdio",
// the addr can be left an empty string.
func Dial(transport, addr string, opts ...Option) (*Peer, error) {
	d, ok := Dialers[transport]
	if !ok {
		return nil, fmt.Errorf("transport '%s' not available in Dialers", transport)
	}
	conn, err := d(addr)
	if err != nil {
		return nil, err
	}
	return New(conn, opts...), nil
}
