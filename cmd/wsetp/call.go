package main

import (
	"context"
	"os"

	"github.com/progrium/clon-go"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call <name> [args...]",
	Short: "call a function exported by a worker",
	Long: `Call starts a worker and calls one of its exported functions.

Arguments are parsed with CLON. A top-level array is spread into
positional arguments; anything else is passed as the only argument.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cargs, err := parseArgs(args[1:])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		w, stop, err := startWorker(ctx, nil)
		if err != nil {
			return err
		}
		defer stop()

		ret, err := w.Fn(args[0]).Call(cargs...).Await(ctx)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, ret)
	},
}

// parseArgs parses CLON arguments. A top-level array is spread into
// positional arguments.
func parseArgs(args []string) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	v, err := clon.Parse(args)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	return []any{v}, nil
}
