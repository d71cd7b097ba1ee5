package main

import (
	"context"
	"fmt"

	"github.com/progrium/wsetp-go/interop"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "check interop against a worker",
	Long: `Check runs the interop checks against a worker serving the interop
service. Without --exec or --transport it checks this binary's own interop
worker.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		w, stop, err := startWorker(ctx, nil)
		if err != nil {
			return err
		}
		defer stop()

		return interop.Check(ctx, w, func(name string, v any) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, v)
		})
	},
}
