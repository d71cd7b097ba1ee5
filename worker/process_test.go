package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/progrium/wsetp-go/codec"
	"github.com/stretchr/testify/require"
)

// markerEnv makes the test binary serve as a subprocess worker that writes
// the named file when it receives the terminate event.
const markerEnv = "WSETP_TEST_MARKER"

func TestMain(m *testing.M) {
	if marker := os.Getenv(markerEnv); marker != "" {
		err := ServeStdio(func(self *Self, args ...any) {
			self.On(codec.TerminateEvent, func() {
				os.WriteFile(marker, []byte("terminated"), 0o644)
			})
			self.Fn("ping", func() string { return "pong" })
		})
		if err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestCommandTerminateGracefully(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	marker := filepath.Join(t.TempDir(), "terminated")
	t.Setenv(markerEnv, marker)

	w, err := New(Command(exe))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	ret, err := await(t, w.Fn("ping").Call())
	require.NoError(t, err)
	require.Equal(t, "pong", ret)

	require.NoError(t, w.TerminateGracefully())
	require.Equal(t, Terminated, w.State())

	// Close waits for the subprocess to exit, so the marker is already there
	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	require.Equal(t, "terminated", string(data))
}
