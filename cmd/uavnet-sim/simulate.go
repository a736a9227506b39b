package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"uavnet-sim/internal/admin"
	"uavnet-sim/internal/config"
	"uavnet-sim/internal/logging"
	"uavnet-sim/internal/metrics"
	"uavnet-sim/internal/sim"
)

var (
	simPrintOnly  bool
	simFormat     string
	simConfigPath string
	simSchemaPath string
	simLogFile    string
	simState      bool
	simVerbose    bool
	simAdminAddr  string
	simPace       float64
	simLogLevel   string
	simLogJSON    bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the drone network simulation",
	Long:  "simulate runs the configured scenario in virtual time, streams packet events and metrics to the selected sinks and prints the final metrics as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(simLogLevel)
		if err != nil {
			return err
		}
		log := logging.NewWithLevel(os.Stderr, level, simLogJSON)

		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}

		var hub *sim.EventHub
		if simAdminAddr != "" {
			hub = sim.NewEventHub(256, log)
		}
		writers, cleanup, err := newWriters(cfg, writerOptions{
			printOnly: simPrintOnly,
			format:    simFormat,
			logFile:   simLogFile,
			state:     simState,
			verbose:   simVerbose,
			hub:       hub,
			log:       log,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		simulator, err := sim.NewSimulator(cfg, writers, log)
		if err != nil {
			return fmt.Errorf("cannot build simulation: %w", err)
		}
		simulator.SetPace(simPace)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		if simAdminAddr != "" {
			srv := admin.NewServer(simulator, hub, log)
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					log.Error("admin server failed", "err", err)
				}
			}()
		}

		if err := simulator.Run(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("simulation interrupted", "t", simulator.Now())
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RunID string `json:"run_id"`
			metrics.Summary
		}{simulator.RunID(), simulator.Metrics()})
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print events and metrics to STDOUT instead of writing to DB")
	simulateCmd.Flags().StringVar(&simFormat, "format", formatColor, "STDOUT format: color or json")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export packet events (JSONL); metrics and state go to .metrics and .state siblings")
	simulateCmd.Flags().BoolVar(&simState, "state", false, "Also emit per-drone state samples")
	simulateCmd.Flags().BoolVar(&simVerbose, "verbose", false, "Print transmissions, receptions and hellos in color output")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", "", "Serve /metrics, /nodes and /ws/events on this address (e.g. :8080)")
	simulateCmd.Flags().Float64Var(&simPace, "pace", 0, "Virtual seconds per wall-clock second (0 runs as fast as possible)")
	simulateCmd.Flags().StringVar(&simLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	simulateCmd.Flags().BoolVar(&simLogJSON, "log-json", false, "Emit logs as JSON")
}
