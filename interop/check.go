package interop

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/progrium/wsetp-go/rpc"
	"github.com/progrium/wsetp-go/worker"
	"golang.org/x/sync/errgroup"
)

// Check runs every interop check against a started worker serving
// InteropService, calling report with the outcome of each. It stops at the
// first failed check.
func Check(ctx context.Context, w *worker.Worker, report func(name string, v any)) error {
	p := w.Peer()
	if p == nil {
		return worker.ErrNotStarted
	}
	p.ExportMethods(CallbackService{})

	call := func(name string, args ...any) (any, error) {
		return w.Fn(name).Call(args...).Await(ctx)
	}

	// Unary check
	ret, err := call("Unary", []any{1, 2, 3})
	if err != nil {
		return fmt.Errorf("unary: %w", err)
	}
	if !reflect.DeepEqual(ret, []any{float64(1), float64(2), float64(3)}) {
		return fmt.Errorf("unary: unexpected return %v", ret)
	}
	report("Unary", ret)

	// Callback check
	ret, err = call("Callback", func(s string) string { return s + "!" }, "hello")
	if err != nil {
		return fmt.Errorf("callback: %w", err)
	}
	if ret != "hello!" {
		return fmt.Errorf("callback: unexpected return %v", ret)
	}
	report("Callback", ret)

	// Echo check
	values := []any{"text; with=separators", float64(123), true, nil, map[string]any{"a": []any{"b"}}}
	ret, err = call("Echo", values...)
	if err != nil {
		return fmt.Errorf("echo: %w", err)
	}
	if !reflect.DeepEqual(ret, values) {
		return fmt.Errorf("echo: unexpected return %v", ret)
	}
	report("Echo", ret)

	// Date check
	when := time.Date(2020, 2, 28, 12, 0, 0, 0, time.UTC)
	ret, err = call("Date", when)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if t, ok := ret.(time.Time); !ok || !t.Equal(when.Add(24*time.Hour)) {
		return fmt.Errorf("date: unexpected return %v", ret)
	}
	report("Date", ret)

	// Correlation check
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 5; i++ {
		ms := 50 - i*10
		g.Go(func() error {
			ret, err := w.Fn("Sleep").Call(ms).Await(gctx)
			if err != nil {
				return err
			}
			if ret != float64(ms) {
				return fmt.Errorf("sleep %d: unexpected return %v", ms, ret)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("correlation: %w", err)
	}
	report("Correlation", 5)

	// Event check
	got := make(chan any, 1)
	cancel := w.Once("interop", func(v any) { got <- v })
	defer cancel()
	if _, err := call("Emit", "interop", "ping"); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	select {
	case v := <-got:
		if v != "ping" {
			return fmt.Errorf("emit: unexpected event %v", v)
		}
		report("Event", v)
	case <-ctx.Done():
		return fmt.Errorf("emit: %w", ctx.Err())
	}

	// Error check
	_, err = call("Error", "test")
	var remote rpc.RemoteError
	if !errors.As(err, &remote) {
		return fmt.Errorf("error: expected remote error, got %v", err)
	}
	report("Error", string(remote))

	// Unknown function check
	_, err = call("Missing")
	if !errors.As(err, &remote) {
		return fmt.Errorf("unknown: expected remote error, got %v", err)
	}
	report("Unknown", string(remote))

	return nil
}
