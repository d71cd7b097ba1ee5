package peer

import (
	"github.com/progrium/wsetp-go/fn"
	"github.com/rs/zerolog"
)

// FailureMode selects how a failed invocation is reported to the caller.
type FailureMode int

const (
	// Tagged sends failures as a distinguished value so the caller's future
	// fails with an rpc.RemoteError.
	Tagged FailureMode = iota
	// Collapsed sends the error text as an ordinary string value, so the
	// caller always observes success. Use it to talk to peers that do not
	// understand tagged failures.
	Collapsed
)

func (m FailureMode) String() string {
	switch m {
	case Tagged:
		return "tagged"
	case Collapsed:
		return "collapsed"
	default:
		return "unknown"
	}
}

// Option configures a Peer.
type Option func(*Peer)

// WithLogger sets the logger for dropped frames and failed listeners.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Peer) {
		p.log = log
	}
}

// WithRegistry sets the registry that holds functions sent by reference.
func WithRegistry(r *fn.Registry) Option {
	return func(p *Peer) {
		p.registry = r
	}
}

// WithFailureMode sets how failures are sent back to callers.
func WithFailureMode(m FailureMode) Option {
	return func(p *Peer) {
		p.failure = m
	}
}

// OnTerminate adds a function run once when the peer shuts down, whichever
// side initiated it.
func OnTerminate(f func()) Option {
	return func(p *Peer) {
		p.onTerminate = append(p.onTerminate, f)
	}
}
