package transport

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction of a traced message relative to the recording side.
const (
	DirSent     = "out"
	DirReceived = "in"
)

// TraceEntry is one message seen by a recorded Conn.
type TraceEntry struct {
	Dir   string    `cbor:"dir"`
	Time  time.Time `cbor:"time"`
	Frame string    `cbor:"frame"`
}

var traceMode cbor.EncMode

func init() {
	var err error
	traceMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
}

// Record wraps conn so every message sent or received through it is appended
// to w as a CBOR encoded TraceEntry. Write errors stop the recording but not
// the Conn.
func Record(conn Conn, w io.Writer) Conn {
	return &recorder{Conn: conn, enc: traceMode.NewEncoder(w)}
}

type recorder struct {
	Conn

	mu     sync.Mutex
	enc    *cbor.Encoder
	failed bool
}

func (r *recorder) Send(text string) error {
	if err := r.Conn.Send(text); err != nil {
		return err
	}
	r.write(DirSent, text)
	return nil
}

func (r *recorder) OnMessage(handler func(text string)) {
	r.Conn.OnMessage(func(text string) {
		r.write(DirReceived, text)
		handler(text)
	})
}

func (r *recorder) write(dir, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return
	}
	if err := r.enc.Encode(TraceEntry{Dir: dir, Time: time.Now().UTC(), Frame: text}); err != nil {
		r.failed = true
	}
}

// ReadTrace decodes every TraceEntry written by Record.
func ReadTrace(r io.Reader) ([]TraceEntry, error) {
	dec := cbor.NewDecoder(r)
	var entries []TraceEntry
	for {
		var e TraceEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return entries, nil
			}
			return entries, err
		}
		entries = append(entries, e)
	}
}
