package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/progrium/wsetp-go/codec"
	"github.com/progrium/wsetp-go/transport"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var replayDir string

var replayCmd = &cobra.Command{
	Use:   "replay <trace-file>",
	Short: "print the frames of a recorded trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		entries, err := transport.ReadTrace(f)
		if err != nil {
			return err
		}
		if replayDir != "" {
			entries = lo.Filter(entries, func(e transport.TraceEntry, _ int) bool {
				return e.Dir == replayDir
			})
		}
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), formatEntry(e))
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayDir, "dir", "", "only print frames in this direction (in or out)")
}

func formatEntry(e transport.TraceEntry) string {
	prefix := fmt.Sprintf("%s %-3s", e.Time.Format(time.RFC3339Nano), e.Dir)
	frame, err := codec.DecodeFrame(e.Frame)
	if err != nil {
		return fmt.Sprintf("%s !%s (%v)", prefix, e.Frame, err)
	}
	args := lo.Map(frame.Args, func(v codec.Value, _ int) string {
		s, err := codec.EncodeValue(v)
		if err != nil {
			return "?"
		}
		return s
	})
	return fmt.Sprintf("%s %c %s [%s]", prefix, frame.Type, frame.Event, strings.Join(args, ", "))
}
