package transport

import (
	"net"
)

func dialNet(proto, addr string) (Conn, error) {
	conn, err := net.Dial(proto, addr)
	if err != nil {
		return nil, err
	}
	return NewStream(conn), nil
}

// DialTCP establishes a Conn to a TCP address.
func DialTCP(addr string) (Conn, error) {
	return dialNet("tcp", addr)
}

// DialUnix establishes a Conn to a Unix domain socket path.
func DialUnix(addr string) (Conn, error) {
	return dialNet("unix", addr)
}
