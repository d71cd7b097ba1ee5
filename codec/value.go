package codec

import (
	"context"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	funcPrefix       = "@FUNC&"
	datePrefix       = "@DATE&"
	errPrefix        = "@ERR&"
	undefinedLiteral = "undefined"

	// DateLayout matches JavaScript's Date.prototype.toISOString.
	DateLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Value is one argument of a frame. It is a closed set of variants:
// Scalar, Temporal, FuncRef, Undefined and Failure.
type Value interface {
	isValue()
}

// Scalar is anything representable as JSON, including objects and arrays.
// A nil V is JSON null.
type Scalar struct {
	V any
}

// Temporal is an instant in time, carried as an ISO-8601 string with
// millisecond precision.
type Temporal struct {
	T time.Time
}

// FuncRef is an index into the sending peer's function registry.
type FuncRef struct {
	Index uint64
}

// Undefined is the absent value. Functions without a return value produce it
// and unfilled argument positions decode to it.
type Undefined struct{}

// Failure is the error half of a tagged return value. It only appears as the
// sole argument of an R frame when the sender tags failures.
type Failure struct {
	Message string
}

func (Scalar) isValue()    {}
func (Temporal) isValue()  {}
func (FuncRef) isValue()   {}
func (Undefined) isValue() {}
func (Failure) isValue()   {}

// Registrar assigns a registry index to a local callable that is about to
// cross the channel.
type Registrar interface {
	Register(callable any) uint64
}

// Callable is implemented by values that are not Go funcs but should still
// cross the channel as function references, like received remote stubs.
type Callable interface {
	Invoke(ctx context.Context, args []any) (any, error)
}

// ValueOf maps a Go value to its wire variant. Funcs and Callables are
// registered with r, which may be nil only if x holds no callable.
func ValueOf(x any, r Registrar) Value {
	switch v := x.(type) {
	case Value:
		return v
	case time.Time:
		return Temporal{T: v}
	case *time.Time:
		if v == nil {
			return Scalar{}
		}
		return Temporal{T: *v}
	case Callable:
		return FuncRef{Index: r.Register(v)}
	case nil:
		return Scalar{}
	}
	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Func {
		if rv.IsNil() {
			return Scalar{}
		}
		return FuncRef{Index: r.Register(x)}
	}
	return Scalar{V: x}
}

// EncodeValue renders v in its tagged textual form, before escaping.
func EncodeValue(v Value) (string, error) {
	switch vv := v.(type) {
	case Scalar:
		b, err := json.Marshal(vv.V)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case Temporal:
		return datePrefix + vv.T.UTC().Format(DateLayout), nil
	case FuncRef:
		return funcPrefix + strconv.FormatUint(vv.Index, 10), nil
	case Undefined:
		return undefinedLiteral, nil
	case Failure:
		return errPrefix + vv.Message, nil
	case nil:
		return undefinedLiteral, nil
	default:
		panic("codec: unknown value variant")
	}
}

// DecodeValue parses the tagged textual form of a value, after unescaping.
func DecodeValue(text string) (Value, error) {
	switch {
	case strings.HasPrefix(text, datePrefix):
		t, err := time.Parse(time.RFC3339Nano, text[len(datePrefix):])
		if err != nil {
			return nil, malformed("bad date %q", text)
		}
		return Temporal{T: t}, nil
	case strings.HasPrefix(text, funcPrefix):
		idx, err := strconv.ParseUint(text[len(funcPrefix):], 10, 64)
		if err != nil {
			return nil, malformed("bad function reference %q", text)
		}
		return FuncRef{Index: idx}, nil
	case strings.HasPrefix(text, errPrefix):
		return Failure{Message: text[len(errPrefix):]}, nil
	case text == undefinedLiteral:
		return Undefined{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, malformed("bad json %q: %s", text, err)
	}
	return Scalar{V: v}, nil
}
