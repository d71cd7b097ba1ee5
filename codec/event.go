package codec

import (
	"strconv"
	"strings"
)

// CallbackPrefix marks F frames sent by invoking a received function stub.
const CallbackPrefix = "CBC_"

// CallEvent is the event field of a C frame.
func CallEvent(name, id string) string {
	return name + "_" + id
}

// ParseCallEvent splits a C frame event field into exported name and
// correlation id. Ids never contain '_', so names may.
func ParseCallEvent(ev string) (name, id string, err error) {
	i := strings.LastIndexByte(ev, '_')
	if i <= 0 || i == len(ev)-1 {
		return "", "", malformed("bad call event %q", ev)
	}
	return ev[:i], ev[i+1:], nil
}

// FuncEvent is the event field of an F frame.
func FuncEvent(index uint64, id string) string {
	return CallbackPrefix + strconv.FormatUint(index, 10) + "_" + id
}

// ParseFuncEvent splits an F frame event field into registry index and
// correlation id. The callback prefix is optional.
func ParseFuncEvent(ev string) (index uint64, id string, err error) {
	rest := strings.TrimPrefix(ev, CallbackPrefix)
	idx, id, ok := strings.Cut(rest, "_")
	if !ok || id == "" {
		return 0, "", malformed("bad function event %q", ev)
	}
	index, err = strconv.ParseUint(idx, 10, 64)
	if err != nil {
		return 0, "", malformed("bad function index in %q", ev)
	}
	return index, id, nil
}

// ReturnEvent is the event field of an R frame answering a frame of type origin.
func ReturnEvent(origin Type, id string) string {
	return origin.String() + "_" + id
}

// ParseReturnEvent splits an R frame event field into origin type and
// correlation id.
func ParseReturnEvent(ev string) (origin Type, id string, err error) {
	if len(ev) < 3 || ev[1] != '_' {
		return 0, "", malformed("bad return event %q", ev)
	}
	origin = Type(ev[0])
	if origin != TypeFunc && origin != TypeCall {
		return 0, "", malformed("bad return origin %q", ev[0])
	}
	return origin, ev[2:], nil
}
