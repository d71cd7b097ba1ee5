package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// maxArgIndex bounds the positional index a decoder will honor, so a hostile
// "D4000000000=" segment cannot force a huge allocation.
const maxArgIndex = 1 << 16

// Frame is one complete protocol message.
type Frame struct {
	Type  Type
	Event string
	Args  []Value
}

func (f Frame) String() string {
	return fmt.Sprintf("%s[%s](%d)", f.Type, f.Event, len(f.Args))
}

// EncodeFrame renders f as
//
//	<T>_WSETP1.0;EV=<event>;DL=<n>;D0=<v0>;...;D<n-1>=<vn-1>;
//
// with the event and every value percent-encoded.
func EncodeFrame(f Frame) (string, error) {
	if !f.Type.Valid() {
		return "", fmt.Errorf("codec: invalid frame type %q", byte(f.Type))
	}
	var b strings.Builder
	b.WriteByte(byte(f.Type))
	b.WriteString("_" + Version + ";EV=")
	b.WriteString(Escape(f.Event))
	b.WriteString(";DL=")
	b.WriteString(strconv.Itoa(len(f.Args)))
	b.WriteByte(';')
	for i, v := range f.Args {
		text, err := EncodeValue(v)
		if err != nil {
			return "", fmt.Errorf("codec: arg %d: %w", i, err)
		}
		b.WriteByte('D')
		b.WriteString(strconv.Itoa(i))
		b.WriteByte('=')
		b.WriteString(Escape(text))
		b.WriteByte(';')
	}
	return b.String(), nil
}

// DecodeFrame parses a frame. Argument segments may appear in any order; the
// index in each segment, not its position, decides where the value lands.
// Positions never written decode as Undefined.
func DecodeFrame(s string) (*Frame, error) {
	var segs []string
	for _, seg := range strings.Split(s, ";") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	if len(segs) < 3 {
		return nil, malformed("expected at least 3 segments, got %d", len(segs))
	}

	header := segs[0]
	if len(header) != 2+len(Version) || header[1] != '_' {
		return nil, malformed("bad header %q", header)
	}
	if header[2:] != Version {
		return nil, malformed("unsupported version %q", header[2:])
	}
	t := Type(header[0])
	if !t.Valid() {
		return nil, malformed("unknown frame type %q", header[0])
	}

	ev, ok := strings.CutPrefix(segs[1], "EV=")
	if !ok {
		return nil, malformed("missing EV segment")
	}
	event, err := Unescape(ev)
	if err != nil {
		return nil, err
	}

	dl, ok := strings.CutPrefix(segs[2], "DL=")
	if !ok {
		return nil, malformed("missing DL segment")
	}
	if dl, err = Unescape(dl); err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(dl)
	if err != nil || count < 0 {
		return nil, malformed("bad data length %q", dl)
	}

	argSegs := segs[3:]
	if len(argSegs) != count {
		return nil, malformed("declared %d args, got %d", count, len(argSegs))
	}

	args := make([]Value, count)
	seen := make(map[int]bool, count)
	for _, seg := range argSegs {
		idxStr, raw, ok := strings.Cut(seg, "=")
		if !ok || !strings.HasPrefix(idxStr, "D") {
			return nil, malformed("bad data segment %q", seg)
		}
		idx, err := strconv.Atoi(idxStr[1:])
		if err != nil || idx < 0 || idx >= maxArgIndex {
			return nil, malformed("bad data index %q", idxStr)
		}
		if seen[idx] {
			return nil, malformed("duplicate data index %d", idx)
		}
		seen[idx] = true

		text, err := Unescape(raw)
		if err != nil {
			return nil, err
		}
		v, err := DecodeValue(text)
		if err != nil {
			return nil, err
		}
		for len(args) <= idx {
			args = append(args, nil)
		}
		args[idx] = v
	}
	for i := range args {
		if args[i] == nil {
			args[i] = Undefined{}
		}
	}

	return &Frame{Type: t, Event: event, Args: args}, nil
}
