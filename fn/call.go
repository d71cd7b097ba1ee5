package fn

import (
	"context"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/progrium/wsetp-go/codec"
)

var (
	errorInterface = reflect.TypeOf((*error)(nil)).Elem()
	contextType    = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// Call wraps invoking a function via reflection, converting the arguments with
// ArgsTo and the returns with ParseReturn. A leading context.Context parameter
// receives ctx. No return values yields codec.Undefined, one yields that value
// and more are returned as a slice.
func Call(ctx context.Context, fn any, args []any) (_ any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("fn: panic: %v", p)
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	fnval := reflect.ValueOf(fn)
	fntyp := fnval.Type()

	var params []reflect.Value
	if fntyp.NumIn() > 0 && fntyp.In(0) == contextType {
		params = append(params, reflect.ValueOf(ctx))
	}
	rest, err := ArgsTo(fntyp, len(params), args)
	if err != nil {
		return nil, err
	}
	out, err := ParseReturn(fnval.Call(append(params, rest...)))
	if err != nil {
		return nil, err
	}
	switch len(out) {
	case 0:
		return codec.Undefined{}, nil
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}

// ArgsTo converts the arguments into `reflect.Value`s suitable to pass as
// parameters, starting at parameter offset, to a function with the given type.
// Missing arguments become zero values and surplus arguments are dropped,
// unless the function is variadic.
func ArgsTo(fntyp reflect.Type, offset int, args []any) ([]reflect.Value, error) {
	numIn := fntyp.NumIn() - offset
	fixed := numIn
	if fntyp.IsVariadic() {
		fixed--
	}
	var fnParams []reflect.Value
	for idx := 0; idx < fixed; idx++ {
		typ := fntyp.In(offset + idx)
		if idx >= len(args) {
			fnParams = append(fnParams, reflect.Zero(typ))
			continue
		}
		v, err := convert(args[idx], typ)
		if err != nil {
			return nil, fmt.Errorf("fn: arg %d: %w", idx, err)
		}
		fnParams = append(fnParams, v)
	}
	if fntyp.IsVariadic() && len(args) > fixed {
		elem := fntyp.In(fntyp.NumIn() - 1).Elem()
		for idx := fixed; idx < len(args); idx++ {
			v, err := convert(args[idx], elem)
			if err != nil {
				return nil, fmt.Errorf("fn: arg %d: %w", idx, err)
			}
			fnParams = append(fnParams, v)
		}
	}
	return fnParams, nil
}

// ParseReturn splits the results of reflect.Call() into the values, and
// possibly an error.
// If the last value is a non-nil error, this will return `nil, err`.
// If the last value is a nil error it will be removed from the value list.
// Any remaining values will be converted and returned as `any` typed values.
func ParseReturn(ret []reflect.Value) ([]any, error) {
	if len(ret) == 0 {
		return nil, nil
	}
	last := ret[len(ret)-1]
	if last.Type().Implements(errorInterface) {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		ret = ret[:len(ret)-1]
	}
	out := make([]any, len(ret))
	for i, r := range ret {
		out[i] = r.Interface()
	}
	return out, nil
}

func convert(arg any, typ reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(typ), nil
	}
	if _, ok := arg.(codec.Undefined); ok && typ.Kind() != reflect.Interface {
		return reflect.Zero(typ), nil
	}
	rv := reflect.ValueOf(arg)
	if rv.Type().AssignableTo(typ) {
		return rv, nil
	}
	if typ.Kind() == reflect.Func {
		if c, ok := arg.(codec.Callable); ok {
			return stubFunc(c, typ), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, typ)
	}
	if isNumber(rv.Kind()) && isNumber(typ.Kind()) {
		return rv.Convert(typ), nil
	}
	// decode to the param type using mapstructure, which covers structs,
	// slices of structs, maps and pointers
	ref := reflect.New(typ)
	if err := mapstructure.Decode(arg, ref.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("mapstructure: %s", err.Error())
	}
	return ref.Elem(), nil
}

// stubFunc makes a Go func of type typ that invokes c, so handlers can take a
// typed callback parameter instead of a stub.
func stubFunc(c codec.Callable, typ reflect.Type) reflect.Value {
	return reflect.MakeFunc(typ, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, v := range in {
			args[i] = v.Interface()
		}
		ret, err := c.Invoke(context.Background(), args)
		out := make([]reflect.Value, typ.NumOut())
		valueSet := false
		for i := range out {
			ot := typ.Out(i)
			switch {
			case ot == errorInterface:
				if err != nil {
					out[i] = reflect.ValueOf(&err).Elem()
				} else {
					out[i] = reflect.Zero(ot)
				}
			case !valueSet && err == nil:
				v, cerr := convert(ret, ot)
				if cerr != nil {
					v = reflect.Zero(ot)
				}
				out[i] = v
				valueSet = true
			default:
				out[i] = reflect.Zero(ot)
			}
		}
		return out
	})
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
