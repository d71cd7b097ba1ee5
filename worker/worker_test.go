package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/progrium/wsetp-go/fn"
	"github.com/progrium/wsetp-go/rpc"
	"github.com/progrium/wsetp-go/transport"
	"github.com/stretchr/testify/require"
)

func await(t *testing.T, f *rpc.Future) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.Await(ctx)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 5*time.Millisecond)
}

func TestUnsupportedEnvironment(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrUnsupportedEnvironment)

	_, err = New(Command("wsetp-no-such-binary-here"))
	require.ErrorIs(t, err, ErrUnsupportedEnvironment)

	_, err = New(Remote("carrier-pigeon", "coop:1"))
	require.ErrorIs(t, err, ErrUnsupportedEnvironment)
	require.ErrorContains(t, err, "transport 'carrier-pigeon' not available in Dialers")

	_, err = New(Goroutine(nil))
	require.ErrorIs(t, err, ErrUnsupportedEnvironment)
}

func TestBeforeStart(t *testing.T) {
	w, err := New(Goroutine(func(self *Self, args ...any) {}))
	require.NoError(t, err)
	require.Equal(t, Created, w.State())

	require.ErrorIs(t, w.Emit("hello"), ErrNotStarted)
	_, err = await(t, w.Fn("myfunc").Call(1))
	require.ErrorIs(t, err, ErrNotStarted)
	require.ErrorIs(t, w.Wait(context.Background()), ErrNotStarted)
	require.Nil(t, w.Peer())
}

func TestBufferedListener(t *testing.T) {
	w, err := New(Goroutine(func(self *Self, args ...any) {
		self.Emit("ready", args...)
	}, "a", 1))
	require.NoError(t, err)

	got := make(chan []any, 2)
	w.On("ready", func(s string, n int) {
		got <- []any{s, n}
	})
	cancelled := w.On("ready", func() {
		got <- []any{"cancelled"}
	})
	cancelled()

	require.NoError(t, w.Start(context.Background()))
	defer w.Terminate()
	require.Equal(t, Started, w.State())
	require.Equal(t, []any{"a", 1}, <-got)
	select {
	case v := <-got:
		t.Fatalf("unexpected delivery: %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUsage(t *testing.T) {
	w, err := New(Goroutine(func(self *Self, args ...any) {
		self.Emit("myevent", "hello", func(n int) int { return n * 2 })
		self.Fn("myfunc", func(n int) int { return n + 1 })
		self.Fn("func2", func() *rpc.Future {
			f := rpc.NewFuture()
			time.AfterFunc(20*time.Millisecond, func() {
				f.Settle("slow", nil)
			})
			return f
		})
		self.On("ping", func(s string) {
			self.Emit("pong", s)
		})
	}))
	require.NoError(t, err)

	doubled := make(chan any, 1)
	w.On("myevent", func(ctx context.Context, msg string, cb *rpc.Stub) {
		v, err := cb.Call(21).Await(ctx)
		if err != nil {
			doubled <- err
			return
		}
		doubled <- v
	})
	pong := make(chan string, 1)
	w.On("pong", func(s string) { pong <- s })

	require.NoError(t, w.Start(context.Background()))
	defer w.Terminate()

	require.Equal(t, float64(42), <-doubled)

	v, err := await(t, w.Fn("myfunc").Call(123))
	require.NoError(t, err)
	require.Equal(t, float64(124), v)

	v, err = await(t, w.Fn("func2").Call())
	require.NoError(t, err)
	require.Equal(t, "slow", v)

	require.NoError(t, w.Emit("ping", "x"))
	require.Equal(t, "x", <-pong)
}

func TestModule(t *testing.T) {
	module := make(chan bool, 1)
	w, err := New(Goroutine(func(self *Self, args ...any) {
		module <- self.Module()
	}))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), AsModule()))
	defer w.Terminate()
	require.True(t, <-module)
}

func TestRestart(t *testing.T) {
	starts := make(chan *Self, 2)
	w, err := New(Goroutine(func(self *Self, args ...any) {
		starts <- self
	}))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	first := <-starts
	p1 := w.Peer()

	require.NoError(t, w.Start(context.Background()))
	second := <-starts
	require.NotSame(t, p1, w.Peer())
	require.Equal(t, Started, w.State())

	// the first channel is gone
	waitFor(t, first.Done())
	select {
	case <-second.Done():
		t.Fatal("second worker should still run")
	default:
	}
	require.NoError(t, w.Terminate())
	waitFor(t, second.Done())
}

func TestTerminate(t *testing.T) {
	selves := make(chan *Self, 1)
	w, err := New(Goroutine(func(self *Self, args ...any) {
		selves <- self
	}))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	self := <-selves

	require.NoError(t, w.TerminateGracefully())
	require.Equal(t, Terminated, w.State())
	waitFor(t, self.Done())
	require.ErrorIs(t, self.Context().Err(), context.Canceled)
}

func TestWorkerTerminatesHost(t *testing.T) {
	w, err := New(Goroutine(func(self *Self, args ...any) {
		self.On("quit", func() {
			self.Terminate()
		})
	}))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Emit("quit"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Wait(ctx))
	eventually(t, func() bool { return w.State() == Terminated })
}

func TestSingleUseRetention(t *testing.T) {
	results := make(chan error, 2)
	w, err := New(Goroutine(func(self *Self, args ...any) {
		self.Fn("twice", func(ctx context.Context, cb *rpc.Stub) error {
			if _, err := cb.Call().Await(ctx); err != nil {
				return err
			}
			_, err := cb.Call().Await(ctx)
			results <- err
			return nil
		})
	}), WithRetention(fn.SingleUse()))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Terminate()

	_, err = await(t, w.Fn("twice").Call(func() {}))
	require.NoError(t, err)
	err = <-results
	require.Error(t, err)
	require.True(t, errors.As(err, new(rpc.RemoteError)))
	require.Contains(t, err.Error(), "unknown reference")
}

func TestRemoteOverTCP(t *testing.T) {
	l, err := transport.ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		Serve(conn, func(self *Self, args ...any) {
			self.Fn("myfunc", func(a, b int) int { return a * b })
		}, nil)
	}()

	w, err := New(Remote("tcp", l.Addr().String()))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Terminate()

	ret, err := await(t, w.Fn("myfunc").Call(6, 7))
	require.NoError(t, err)
	require.Equal(t, float64(42), ret)
}
