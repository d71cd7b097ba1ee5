package fn

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/progrium/wsetp-go/codec"
)

func fatal(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func callParseReturn(fn interface{}, args []reflect.Value) ([]any, error) {
	ret := reflect.ValueOf(fn).Call(args)
	return ParseReturn(ret)
}

func values(args ...any) []reflect.Value {
	r := make([]reflect.Value, len(args))
	for i, a := range args {
		r[i] = reflect.ValueOf(a)
	}
	return r
}

func equal(expected, actual []any) bool {
	if len(expected) == 0 {
		return len(actual) == 0
	}
	return reflect.DeepEqual(expected, actual)
}

func TestParseReturn(t *testing.T) {
	tests := []struct {
		name        string
		fn          interface{}
		args        []reflect.Value
		expected    []any
		expectedErr bool
	}{
		{"no return values", func() {}, nil, nil, false},
		{
			"single value return", func(i int) int { return i * 2 }, values(int(21)),
			[]any{int(42)}, false,
		},
		{
			"multiple value return", func(i int) (int, float64) {
				return i * 2, float64(i) / 2
			}, values(int(21)),
			[]any{int(42), float64(10.5)}, false,
		},

		{"return nil error", func() error { return nil }, nil, nil, false},
		{"return non-nil error", func() error { return fmt.Errorf("an error") }, nil, nil, true},

		{
			"single value with nil error", func() (int, error) { return 42, nil }, nil,
			[]any{int(42)}, false,
		},
		{
			"single value with non-nil error", func() (int, error) { return 42, fmt.Errorf("an error") }, nil,
			nil, true,
		},

		{
			"multiple value with nil error", func() (int, float64, error) { return 42, 0.5, nil }, nil,
			[]any{int(42), float64(0.5)}, false,
		},
		{
			"multiple value with non-nil error", func() (int, float64, error) { return 42, 0.5, fmt.Errorf("an error") }, nil,
			nil, true,
		},

		{
			"return error as value", func() any { return fmt.Errorf("an error") }, nil,
			[]any{fmt.Errorf("an error")}, false,
		},
	}
	for _, td := range tests {
		t.Run(td.name, func(t *testing.T) {
			actual, err := callParseReturn(td.fn, td.args)
			if !td.expectedErr {
				fatal(err, t)
			} else if err == nil {
				t.Fatalf("expected an error")
			}
			if !equal(td.expected, actual) {
				t.Errorf("expected: %v\ngot: %v", td.expected, actual)
			}
		})
	}
}

type point struct {
	X int
	Y int
}

type echoCallable struct {
	calls [][]any
}

func (e *echoCallable) Invoke(ctx context.Context, args []any) (any, error) {
	e.calls = append(e.calls, args)
	if len(args) == 0 {
		return nil, fmt.Errorf("no args")
	}
	return args[0], nil
}

func TestCall(t *testing.T) {
	ctx := context.Background()

	t.Run("json numbers to ints", func(t *testing.T) {
		ret, err := Call(ctx, func(a, b int) int { return a + b }, []any{float64(2), float64(3)})
		fatal(err, t)
		if ret != 5 {
			t.Fatalf("unexpected sum: %v", ret)
		}
	})

	t.Run("missing and surplus args", func(t *testing.T) {
		ret, err := Call(ctx, func(a, b int) int { return a + b }, []any{float64(2)})
		fatal(err, t)
		if ret != 2 {
			t.Fatalf("unexpected sum: %v", ret)
		}
		ret, err = Call(ctx, func(a int) int { return a }, []any{float64(2), "extra"})
		fatal(err, t)
		if ret != 2 {
			t.Fatalf("unexpected value: %v", ret)
		}
	})

	t.Run("variadic", func(t *testing.T) {
		ret, err := Call(ctx, func(prefix string, nums ...int) string {
			return fmt.Sprint(prefix, nums)
		}, []any{"n", float64(1), float64(2)})
		fatal(err, t)
		if ret != "n[1 2]" {
			t.Fatalf("unexpected value: %v", ret)
		}
	})

	t.Run("context and structs", func(t *testing.T) {
		ret, err := Call(ctx, func(c context.Context, p point, ps []point) int {
			if c == nil {
				t.Fatal("context not injected")
			}
			return p.X + p.Y + len(ps)
		}, []any{
			map[string]any{"X": float64(1), "Y": float64(2)},
			[]any{map[string]any{"X": float64(0)}},
		})
		fatal(err, t)
		if ret != 4 {
			t.Fatalf("unexpected value: %v", ret)
		}
	})

	t.Run("no return is undefined", func(t *testing.T) {
		ret, err := Call(ctx, func() {}, nil)
		fatal(err, t)
		if ret != (codec.Undefined{}) {
			t.Fatalf("unexpected value: %#v", ret)
		}
	})

	t.Run("multiple returns", func(t *testing.T) {
		ret, err := Call(ctx, func() (int, string) { return 1, "a" }, nil)
		fatal(err, t)
		if !reflect.DeepEqual(ret, []any{1, "a"}) {
			t.Fatalf("unexpected value: %#v", ret)
		}
	})

	t.Run("panic", func(t *testing.T) {
		_, err := Call(ctx, func() { panic("boom") }, nil)
		if err == nil || err.Error() != "fn: panic: boom" {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("typed callback", func(t *testing.T) {
		cb := &echoCallable{}
		ret, err := Call(ctx, func(f func(string) (string, error)) (string, error) {
			return f("ping")
		}, []any{cb})
		fatal(err, t)
		if ret != "ping" || len(cb.calls) != 1 {
			t.Fatalf("unexpected value: %#v", ret)
		}
	})

	t.Run("bad argument", func(t *testing.T) {
		_, err := Call(ctx, func(p point) {}, []any{"nope"})
		if err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestWrap(t *testing.T) {
	if _, err := Wrap(42); err == nil {
		t.Fatal("expected an error for non-func")
	}
	if _, err := Wrap(nil); err == nil {
		t.Fatal("expected an error for nil")
	}
	f, err := Wrap(func(s string) string { return s + "!" })
	fatal(err, t)
	ret, err := f(context.Background(), []any{"hi"})
	fatal(err, t)
	if ret != "hi!" {
		t.Fatalf("unexpected value: %v", ret)
	}
}
