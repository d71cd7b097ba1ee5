package main

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/progrium/wsetp-go/peer"
	"github.com/progrium/wsetp-go/transport"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "dev"

var (
	cfg        = DefaultConfig()
	configPath string
	logger     zerolog.Logger
)

func main() {
	root := &cobra.Command{
		Use:               "wsetp",
		Short:             "wsetp is a utility for working with WSETP workers",
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to TOML config file (default ~/.wsetp/config.toml)")
	flags.StringVar(&cfg.Transport, "transport", cfg.Transport, "dial a running worker over tcp, unix, ws, quic or stdio")
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "address of a running worker")
	flags.StringVar(&cfg.Exec, "exec", cfg.Exec, "shell command of a worker to spawn (default: this binary's interop worker)")
	flags.StringVar(&cfg.Failure, "failure", cfg.Failure, "how failures are returned: tagged or collapsed")
	flags.StringVar(&cfg.Retention, "retention", cfg.Retention, "callback retention: persistent, single-use or a ttl duration")
	flags.BoolVar(&cfg.Module, "module", cfg.Module, "start the worker in module mode")
	flags.BoolVar(&cfg.Insecure, "insecure", cfg.Insecure, "skip certificate verification when dialing quic")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "how long to wait for returns")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flags.StringVar(&cfg.Trace, "trace", cfg.Trace, "record every frame to a CBOR trace file")

	root.AddCommand(callCmd)
	root.AddCommand(emitCmd)
	root.AddCommand(interopCmd)
	root.AddCommand(checkCmd)
	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the config file and the environment under the flags
// set on the command line.
func loadConfig(cmd *cobra.Command, args []string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	path := configPath
	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return err
		}
		if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	if cfg.Insecure {
		peer.Dialers["quic"] = func(addr string) (transport.Conn, error) {
			return transport.DialQUIC(addr, &tls.Config{
				InsecureSkipVerify: true,
				NextProtos:         []string{transport.QUICProtocol},
			})
		}
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
