package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// MaxMessageSize bounds a single length-prefixed message read from a stream.
const MaxMessageSize = 1 << 26

// NewStream returns a Conn over a byte stream. Each message is written with
// a 4 byte big endian length prefix.
func NewStream(rwc io.ReadWriteCloser) Conn {
	var mu sync.Mutex
	e := newEndpoint(func(text string) error {
		mu.Lock()
		defer mu.Unlock()
		return writeMessage(rwc, text)
	}, rwc.Close)
	go func() {
		defer e.end()
		for {
			msg, err := readMessage(rwc)
			if err != nil {
				return
			}
			e.receive(msg)
		}
	}()
	return e
}

func writeMessage(w io.Writer, text string) error {
	buf := make([]byte, 4+len(text))
	binary.BigEndian.PutUint32(buf, uint32(len(text)))
	copy(buf[4:], text)
	_, err := w.Write(buf)
	return err
}

func readMessage(r io.Reader) (string, error) {
	prefix := make([]byte, 4)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return "", err
	}
	size := binary.BigEndian.Uint32(prefix)
	if size > MaxMessageSize {
		return "", fmt.Errorf("transport: message of %d bytes exceeds limit", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(buf), nil
}
