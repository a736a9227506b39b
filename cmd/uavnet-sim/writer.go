package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"uavnet-sim/internal/config"
	"uavnet-sim/internal/sim"
)

const (
	formatColor = "color"
	formatJSON  = "json"
)

type writerOptions struct {
	printOnly bool
	format    string
	logFile   string
	state     bool
	verbose   bool
	hub       *sim.EventHub
	log       *slog.Logger
}

type sink interface {
	sim.EventWriter
	sim.MetricsWriter
	sim.StateWriter
}

// newWriters sets up the event, metrics and state sinks based on flags and
// env vars. It returns the writers and a cleanup function to close any resources.
func newWriters(cfg *config.Config, opts writerOptions) (sim.Writers, func(), error) {
	cleanup := func() {}

	base, err := baseWriter(cfg, opts)
	if err != nil {
		return sim.Writers{}, nil, err
	}
	if opts.logFile == "" && opts.hub == nil {
		w := sim.Writers{Events: base, Metrics: base}
		if opts.state {
			w.State = base
		}
		return w, cleanup, nil
	}

	events := []sim.EventWriter{base}
	metrics := []sim.MetricsWriter{base}
	var states []sim.StateWriter
	if opts.state {
		states = append(states, base)
	}
	if opts.logFile != "" {
		statePath := ""
		if opts.state {
			statePath = opts.logFile + ".state"
		}
		fw, err := sim.NewFileWriter(opts.logFile, opts.logFile+".metrics", statePath)
		if err != nil {
			return sim.Writers{}, nil, fmt.Errorf("cannot create log file: %w", err)
		}
		events = append(events, fw)
		metrics = append(metrics, fw)
		if opts.state {
			states = append(states, fw)
		}
		cleanup = func() { fw.Close() }
	}
	if opts.hub != nil {
		events = append(events, opts.hub)
		metrics = append(metrics, opts.hub)
	}
	mw := sim.NewMultiWriter(events, metrics, states)
	w := sim.Writers{Events: mw, Metrics: mw}
	if opts.state {
		w.State = mw
	}
	return w, cleanup, nil
}

// baseWriter chooses STDOUT or GreptimeDB based on the printOnly flag and env vars.
func baseWriter(cfg *config.Config, opts writerOptions) (sink, error) {
	host := os.Getenv("GREPTIMEDB_HOST")
	if opts.printOnly || host == "" {
		switch opts.format {
		case formatJSON:
			return sim.NewJSONStdoutWriter(), nil
		case formatColor, "":
			cw := sim.NewColorStdoutWriter(cfg)
			cw.Verbose = opts.verbose
			return cw, nil
		default:
			return nil, fmt.Errorf("unknown output format %q", opts.format)
		}
	}

	port := 4001
	if v := os.Getenv("GREPTIMEDB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GREPTIMEDB_PORT: %w", err)
		}
		port = p
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	w, err := sim.NewGreptimeDBWriter(host, port, database, opts.log)
	if err != nil {
		return nil, fmt.Errorf("cannot init GreptimeDB writer: %w", err)
	}
	return w, nil
}
