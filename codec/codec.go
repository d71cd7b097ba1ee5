// Package codec implements the WSETP wire format: tagged argument values
// and the frames that carry them between two contexts as plain strings.
package codec

import (
	"errors"
	"fmt"
)

// Version is the protocol version written into every frame header.
const Version = "WSETP1.0"

// TerminateEvent is the reserved event name that signals graceful shutdown.
const TerminateEvent = "$WSETP_TERMINATE"

// ErrMalformedFrame is returned for any frame or value that cannot be decoded.
var ErrMalformedFrame = errors.New("codec: malformed frame")

// Type is the single letter tag at the start of every frame.
type Type byte

const (
	// TypeData is a fire-and-forget event.
	TypeData Type = 'D'
	// TypeFunc invokes a function reference registered by the receiver.
	TypeFunc Type = 'F'
	// TypeCall invokes a function the receiver exported by name.
	TypeCall Type = 'C'
	// TypeReturn carries the result of a prior TypeFunc or TypeCall frame.
	TypeReturn Type = 'R'
)

func (t Type) String() string {
	return string(t)
}

// Valid reports whether t is one of the four frame types.
func (t Type) Valid() bool {
	switch t {
	case TypeData, TypeFunc, TypeCall, TypeReturn:
		return true
	default:
		return false
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedFrame, fmt.Sprintf(format, args...))
}
