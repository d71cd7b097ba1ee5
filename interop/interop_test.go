package interop

import (
	"context"
	"testing"
	"time"

	"github.com/progrium/wsetp-go/worker"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	w, err := worker.New(worker.Goroutine(Serve))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Terminate()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var checks []string
	err = Check(ctx, w, func(name string, v any) {
		checks = append(checks, name)
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		"Unary", "Callback", "Echo", "Date", "Correlation", "Event", "Error", "Unknown",
	}, checks)
}

func TestCheckNotStarted(t *testing.T) {
	w, err := worker.New(worker.Goroutine(Serve))
	require.NoError(t, err)
	require.ErrorIs(t, Check(context.Background(), w, func(string, any) {}), worker.ErrNotStarted)
}
