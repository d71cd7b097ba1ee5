package fn

import (
	"reflect"
)

// Methods uses reflection to return a Func for each exported method of rcvr,
// keyed by method name. From there, methods are treated just like functions.
// It panics if rcvr is not a struct or a pointer to one.
func Methods(rcvr any) map[string]Func {
	rv := reflect.ValueOf(rcvr)
	if reflect.Indirect(rv).Kind() != reflect.Struct {
		panic("fn: must be struct")
	}
	t := rv.Type()
	funcs := make(map[string]Func, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		funcs[t.Method(i).Name] = MustWrap(rv.Method(i).Interface())
	}
	return funcs
}
