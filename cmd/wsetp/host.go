package main

import (
	"context"
	"fmt"
	"os"

	"github.com/progrium/wsetp-go/peer"
	"github.com/progrium/wsetp-go/transport"
	"github.com/progrium/wsetp-go/worker"
)

// spawner picks how to reach the worker from the config: dial a running
// one, run a shell command, or run this binary's interop worker.
func spawner() (worker.Spawner, error) {
	switch {
	case cfg.Transport != "":
		if cfg.Addr == "" && cfg.Transport != "stdio" {
			return nil, fmt.Errorf("addr is required for transport %q", cfg.Transport)
		}
		return worker.Remote(cfg.Transport, cfg.Addr), nil
	case cfg.Exec != "":
		return worker.Command("sh", "-c", cfg.Exec), nil
	default:
		path, err := os.Executable()
		if err != nil {
			return nil, err
		}
		return worker.Command(path, "interop"), nil
	}
}

// startWorker creates and starts a worker per the config. The returned
// cleanup terminates it and closes the trace file, if any.
func startWorker(ctx context.Context, setup func(w *worker.Worker)) (*worker.Worker, func(), error) {
	s, err := spawner()
	if err != nil {
		return nil, nil, err
	}
	var trace *os.File
	if cfg.Trace != "" {
		trace, err = os.Create(cfg.Trace)
		if err != nil {
			return nil, nil, err
		}
		s = &recordingSpawner{Spawner: s, trace: trace}
	}
	closeTrace := func() {
		if trace != nil {
			trace.Close()
		}
	}

	failure, _ := cfg.FailureMode()
	retention, _ := cfg.RetentionPolicy()
	w, err := worker.New(s,
		worker.WithLogger(logger),
		worker.WithRetention(retention),
		worker.WithPeerOptions(peer.WithFailureMode(failure)),
	)
	if err != nil {
		closeTrace()
		return nil, nil, err
	}
	if setup != nil {
		setup(w)
	}

	var opts []worker.StartOption
	if cfg.Module {
		opts = append(opts, worker.AsModule())
	}
	if err := w.Start(ctx, opts...); err != nil {
		closeTrace()
		return nil, nil, err
	}
	return w, func() {
		if err := w.TerminateGracefully(); err != nil {
			logger.Debug().Err(err).Msg("terminating worker")
		}
		closeTrace()
	}, nil
}

// recordingSpawner records the frames of every channel it spawns.
type recordingSpawner struct {
	worker.Spawner
	trace *os.File
}

func (s *recordingSpawner) Supported() error {
	if sup, ok := s.Spawner.(interface{ Supported() error }); ok {
		return sup.Supported()
	}
	return nil
}

func (s *recordingSpawner) Spawn(ctx context.Context, opts worker.SpawnOptions) (transport.Conn, error) {
	conn, err := s.Spawner.Spawn(ctx, opts)
	if err != nil {
		return nil, err
	}
	return transport.Record(conn, s.trace), nil
}
