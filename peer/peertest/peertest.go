// Package peertest provides connected peers for tests.
package peertest

import (
	"github.com/progrium/wsetp-go/peer"
	"github.com/progrium/wsetp-go/transport"
)

// NewPair returns two peers connected by an in-process pipe. Both are
// configured with opts.
func NewPair(opts ...peer.Option) (*peer.Peer, *peer.Peer) {
	a, b := transport.Pipe()
	return peer.New(a, opts...), peer.New(b, opts...)
}

// NewRecordedPair is like NewPair but also returns the raw text each side
// sent, in order, through sentA and sentB.
func NewRecordedPair(opts ...peer.Option) (pa, pb *peer.Peer, sentA, sentB <-chan string) {
	a, b := transport.Pipe()
	outA := make(chan string, 1024)
	outB := make(chan string, 1024)
	pa = peer.New(&tap{Conn: a, out: outA}, opts...)
	pb = peer.New(&tap{Conn: b, out: outB}, opts...)
	return pa, pb, outA, outB
}

type tap struct {
	transport.Conn
	out chan string
}

func (t *tap) Send(text string) error {
	if err := t.Conn.Send(text); err != nil {
		return err
	}
	select {
	case t.out <- text:
	default:
	}
	return nil
}
