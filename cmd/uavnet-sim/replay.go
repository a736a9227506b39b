package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"uavnet-sim/internal/logging"
	"uavnet-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayFormat    string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a packet event log",
	Long:  "replay feeds packet events from a JSONL log back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		log := logging.NewWithLevel(os.Stderr, slog.LevelInfo, false)
		writers, cleanup, err := newWriters(nil, writerOptions{
			printOnly: replayPrintOnly,
			format:    replayFormat,
			verbose:   true,
			log:       log,
		})
		if err != nil {
			return err
		}
		defer cleanup()
		return sim.ReplayLogFile(replayInput, writers.Events, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to packet event log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print events to STDOUT instead of writing to DB")
	replayCmd.Flags().StringVar(&replayFormat, "format", formatJSON, "STDOUT format: color or json")
	replayCmd.MarkFlagRequired("input")
}
