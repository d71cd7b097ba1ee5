package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/progrium/wsetp-go/peer"
	"github.com/progrium/wsetp-go/transport"
	"github.com/rs/zerolog"
)

// ModuleEnv is set to "1" in the environment of a subprocess worker started
// in module mode.
const ModuleEnv = "WSETP_MODULE"

// SpawnOptions are passed to a Spawner by Start.
type SpawnOptions struct {
	Module bool
	Log    zerolog.Logger
}

// A Spawner creates an isolated execution context and returns the host side
// of the channel to it.
type Spawner interface {
	Spawn(ctx context.Context, opts SpawnOptions) (transport.Conn, error)
}

// supporter is implemented by Spawners that can detect a missing capability
// before anything is spawned.
type supporter interface {
	Supported() error
}

// Body is the code run inside a worker. It registers listeners and exported
// functions on self and returns; the worker keeps serving until terminated.
// Incoming frames are held until Body returns.
type Body func(self *Self, args ...any)

// Goroutine returns a Spawner running body in-process over a pipe, passing it
// args on every start.
func Goroutine(body Body, args ...any) Spawner {
	return &goroutineSpawner{body: body, args: args}
}

type goroutineSpawner struct {
	body Body
	args []any
}

func (s *goroutineSpawner) Supported() error {
	if s.body == nil {
		return fmt.Errorf("nil worker body")
	}
	return nil
}

func (s *goroutineSpawner) Spawn(ctx context.Context, opts SpawnOptions) (transport.Conn, error) {
	host, worker := transport.Pipe()
	self := newSelf(worker, opts.Module, peer.WithLogger(opts.Log.With().Str("side", "worker").Logger()))
	go self.run(s.body, s.args)
	return host, nil
}

// Command returns a Spawner running a subprocess worker that serves the
// channel over its stdin and stdout, such as one using ServeStdio.
func Command(name string, args ...string) Spawner {
	return &commandSpawner{name: name, args: args}
}

type commandSpawner struct {
	name string
	args []string
}

func (s *commandSpawner) Supported() error {
	_, err := exec.LookPath(s.name)
	return err
}

func (s *commandSpawner) Spawn(ctx context.Context, opts SpawnOptions) (transport.Conn, error) {
	cmd := exec.Command(s.name, s.args...)
	cmd.Env = os.Environ()
	if opts.Module {
		cmd.Env = append(cmd.Env, ModuleEnv+"=1")
	}
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return transport.NewStream(&process{WriteCloser: stdin, ReadCloser: stdout, cmd: cmd}), nil
}

// ExitGracePeriod is how long a subprocess worker has to exit on its own
// after its stdin is closed before it is killed.
var ExitGracePeriod = 3 * time.Second

// process closes the worker's stdin, gives it ExitGracePeriod to finish
// what it has already read, and then kills and reaps it.
type process struct {
	io.WriteCloser
	io.ReadCloser
	cmd  *exec.Cmd
	once sync.Once
}

func (p *process) Close() error {
	p.once.Do(func() {
		p.WriteCloser.Close()
		exited := make(chan struct{})
		go func() {
			p.cmd.Wait()
			close(exited)
		}()
		select {
		case <-exited:
		case <-time.After(ExitGracePeriod):
			p.cmd.Process.Kill()
			<-exited
		}
	})
	return nil
}

// Remote returns a Spawner that dials an already running worker using one of
// the transports in peer.Dialers.
func Remote(transport, addr string) Spawner {
	return &remoteSpawner{transport: transport, addr: addr}
}

type remoteSpawner struct {
	transport string
	addr      string
}

func (s *remoteSpawner) Supported() error {
	if _, ok := peer.Dialers[s.transport]; !ok {
		return fmt.Errorf("transport '%s' not available in Dialers", s.transport)
	}
	return nil
}

func (s *remoteSpawner) Spawn(ctx context.Context, opts SpawnOptions) (transport.Conn, error) {
	d, ok := peer.Dialers[s.transport]
	if !ok {
		return nil, s.Supported()
	}
	return d(s.addr)
}
