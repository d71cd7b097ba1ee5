// Package rpc correlates outgoing invocations with the responses that settle
// them, and provides the stub used to invoke functions held by the other side.
package rpc

import (
	"fmt"

	"github.com/rs/xid"
)

// RemoteError is an error that has been returned from
// the remote side of the channel.
type RemoteError string

func (e RemoteError) Error() string {
	return fmt.Sprintf("remote: %s", string(e))
}

// NewID returns a fresh correlation id. Ids are unique for the life of the
// process even under rapid successive calls and never contain '_'.
func NewID() string {
	return xid.New().String()
}
