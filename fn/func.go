// Package fn turns arbitrary Go functions into uniform callables and keeps
// the per-peer registry of functions passed by reference across the channel.
package fn

import (
	"context"
	"fmt"
	"reflect"

	"github.com/progrium/wsetp-go/codec"
)

// Func is the uniform shape every local callable is invoked through.
type Func func(ctx context.Context, args []any) (any, error)

// Wrap uses reflection to return a Func from v. Funcs and codec.Callables are
// used as is. Any other function is called through Call, so its parameters may
// be typed (ints, structs, slices of structs, typed callbacks) and it may
// optionally take a leading context.Context and return a trailing error.
func Wrap(v any) (Func, error) {
	switch f := v.(type) {
	case nil:
		return nil, fmt.Errorf("fn: nil callable")
	case Func:
		return f, nil
	case func(context.Context, []any) (any, error):
		return f, nil
	case codec.Callable:
		return f.Invoke, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("fn: must be func, got %T", v)
	}
	if rv.IsNil() {
		return nil, fmt.Errorf("fn: nil callable")
	}
	return func(ctx context.Context, args []any) (any, error) {
		return Call(ctx, v, args)
	}, nil
}

// MustWrap is like Wrap but panics if v is not callable.
func MustWrap(v any) Func {
	f, err := Wrap(v)
	if err != nil {
		panic(err)
	}
	return f
}
