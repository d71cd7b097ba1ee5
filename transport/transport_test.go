package transport

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// collect installs a handler on c that forwards messages to a channel.
func collect(c Conn) chan string {
	ch := make(chan string, 100)
	c.OnMessage(func(text string) {
		ch <- text
	})
	return ch
}

func next(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func testExchange(t *testing.T, a, b Conn) {
	t.Helper()
	inA := collect(a)
	inB := collect(b)

	for i := 0; i < 10; i++ {
		require.NoError(t, a.Send(fmt.Sprintf("a%d", i)))
	}
	require.NoError(t, b.Send("D_WSETP1.0;EV=x;DL=0;"))
	for i := 0; i < 10; i++ {
		require.Equal(t, fmt.Sprintf("a%d", i), next(t, inB))
	}
	require.Equal(t, "D_WSETP1.0;EV=x;DL=0;", next(t, inA))
}

func TestPipe(t *testing.T) {
	a, b := Pipe()
	testExchange(t, a, b)

	require.NoError(t, a.Close())
	require.ErrorIs(t, a.Send("late"), ErrClosed)
	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("remote side not closed")
	}
	require.ErrorIs(t, b.Send("late"), ErrClosed)
}

func TestPipeBuffersBeforeHandler(t *testing.T) {
	a, b := Pipe()
	require.NoError(t, a.Send("one"))
	require.NoError(t, a.Send("two"))
	// closing the sender still delivers what was already sent
	require.NoError(t, a.Close())
	in := collect(b)
	require.Equal(t, "one", next(t, in))
	require.Equal(t, "two", next(t, in))
	<-b.Done()
}

func TestStreamIO(t *testing.T) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a, err := DialIO(aw, ar)
	require.NoError(t, err)
	b, err := DialIO(bw, br)
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()
	testExchange(t, a, b)
}

func TestStreamMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, "héllo"))
	require.Equal(t, []byte{0, 0, 0, 6}, buf.Bytes()[:4])
	msg, err := readMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, "héllo", msg)

	_, err = readMessage(bytes.NewReader([]byte{0, 0, 0, 9, 'x'}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestTCP(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	b, err := DialTCP(l.Addr().String())
	require.NoError(t, err)
	defer b.Close()
	a, err := l.Accept()
	require.NoError(t, err)
	defer a.Close()
	testExchange(t, a, b)
}

func TestUnix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wsetp.sock")
	l, err := ListenUnix(path)
	require.NoError(t, err)
	defer l.Close()

	b, err := DialUnix(path)
	require.NoError(t, err)
	defer b.Close()
	a, err := l.Accept()
	require.NoError(t, err)
	defer a.Close()
	testExchange(t, a, b)
}

func TestWS(t *testing.T) {
	l, err := ListenWS("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	b, err := DialWS(l.Addr().String())
	require.NoError(t, err)
	defer b.Close()
	a, err := l.Accept()
	require.NoError(t, err)
	defer a.Close()
	testExchange(t, a, b)
}

func TestRecord(t *testing.T) {
	var trace bytes.Buffer
	a, b := Pipe()
	rec := Record(a, &trace)
	in := collect(rec)
	inB := collect(b)

	require.NoError(t, rec.Send("hello"))
	require.Equal(t, "hello", next(t, inB))
	require.NoError(t, b.Send("world"))
	require.Equal(t, "world", next(t, in))

	entries, err := ReadTrace(&trace)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, DirSent, entries[0].Dir)
	require.Equal(t, "hello", entries[0].Frame)
	require.Equal(t, DirReceived, entries[1].Dir)
	require.Equal(t, "world", entries[1].Frame)
	require.False(t, entries[1].Time.IsZero())
}
