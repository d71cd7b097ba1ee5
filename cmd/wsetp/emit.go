package main

import (
	"context"
	"os"

	"github.com/progrium/wsetp-go/worker"
	"github.com/spf13/cobra"
)

var waitEvent string

var emitCmd = &cobra.Command{
	Use:   "emit <event> [args...]",
	Short: "emit an event to a worker",
	Long: `Emit starts a worker and sends it an event. With --wait it then prints
the arguments of the first event of that name the worker sends back.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eargs, err := parseArgs(args[1:])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		replies := make(chan []any, 1)
		w, stop, err := startWorker(ctx, func(w *worker.Worker) {
			if waitEvent == "" {
				return
			}
			w.Once(waitEvent, func(args ...any) {
				replies <- args
			})
		})
		if err != nil {
			return err
		}
		defer stop()

		if err := w.Emit(args[0], eargs...); err != nil {
			return err
		}
		if waitEvent == "" {
			return nil
		}
		select {
		case reply := <-replies:
			return printJSON(os.Stdout, reply)
		case <-ctx.Done():
			return ctx.Err()
		}
	},
}

func init() {
	emitCmd.Flags().StringVar(&waitEvent, "wait", "", "event to wait for after emitting")
}
