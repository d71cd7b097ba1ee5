package transport

import (
	"context"
	"crypto/tls"
	"io"
	"sync"

	"github.com/quic-go/quic-go"
)

// QUICProtocol is the ALPN protocol negotiated for QUIC Conns.
const QUICProtocol = "wsetp-quic"

var defaultTLSConfig = tls.Config{
	NextProtos: []string{QUICProtocol},
}

// DialQUIC establishes a Conn over a single bidirectional QUIC stream. A nil
// tlsConf uses a default config negotiating QUICProtocol.
func DialQUIC(addr string, tlsConf *tls.Config) (Conn, error) {
	if tlsConf == nil {
		tlsConf = defaultTLSConfig.Clone()
	}
	conn, err := quic.DialAddr(context.Background(), addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(context.Background())
	if err != nil {
		conn.CloseWithError(0, "open stream")
		return nil, err
	}
	// the stream is not announced to the listener until data is written
	if _, err := stream.Write([]byte("!")); err != nil {
		conn.CloseWithError(0, "open stream")
		return nil, err
	}
	return newQUICConn(conn, stream), nil
}

func newQUICConn(conn quic.Connection, stream quic.Stream) Conn {
	return NewStream(&quicStream{conn: conn, stream: stream})
}

type quicStream struct {
	conn   quic.Connection
	stream quic.Stream
	once   sync.Once
}

func (s *quicStream) Read(p []byte) (int, error) {
	return s.stream.Read(p)
}

func (s *quicStream) Write(p []byte) (int, error) {
	return s.stream.Write(p)
}

func (s *quicStream) Close() error {
	var err error
	s.once.Do(func() {
		s.stream.CancelRead(42)
		s.stream.Close()
		err = s.conn.CloseWithError(42, "close connection")
	})
	return err
}

// QUICListener accepts QUIC connections and returns the Conn carried by the
// first stream the dialer opens.
type QUICListener struct {
	l *quic.Listener
}

// ListenQUIC creates a QUIC listener at the given address. The tlsConf must
// carry a certificate.
func ListenQUIC(addr string, tlsConf *tls.Config) (*QUICListener, error) {
	if len(tlsConf.NextProtos) == 0 {
		tlsConf = tlsConf.Clone()
		tlsConf.NextProtos = []string{QUICProtocol}
	}
	l, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	return &QUICListener{l: l}, nil
}

// Accept waits for and returns the next connected Conn to the listener.
func (l *QUICListener) Accept() (Conn, error) {
	conn, err := l.l.Accept(context.Background())
	if err != nil {
		return nil, err
	}
	stream, err := conn.AcceptStream(context.Background())
	if err != nil {
		conn.CloseWithError(0, "accept stream")
		return nil, err
	}
	header := make([]byte, 1)
	if _, err := io.ReadFull(stream, header); err != nil {
		conn.CloseWithError(0, "accept stream")
		return nil, err
	}
	return newQUICConn(conn, stream), nil
}

// Close closes the listener.
func (l *QUICListener) Close() error {
	return l.l.Close()
}
