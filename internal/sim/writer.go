package sim

import "uavnet-sim/internal/telemetry"

// EventWriter receives packet lifecycle events.
type EventWriter interface {
	WriteEvent(telemetry.PacketEventRow) error
}

// MetricsWriter receives periodic network metrics samples.
type MetricsWriter interface {
	WriteMetrics(telemetry.MetricsRow) error
}

// StateWriter receives per-drone state samples.
type StateWriter interface {
	WriteState(telemetry.NodeStateRow) error
}

// Optional: event writers may support batch mode
type batchEventWriter interface {
	WriteEvents([]telemetry.PacketEventRow) error
}

// Optional: state writers may support batch mode
type batchStateWriter interface {
	WriteStates([]telemetry.NodeStateRow) error
}

// Writers groups the sinks a simulator reports to. Any of them may be nil.
type Writers struct {
	Events  EventWriter
	Metrics MetricsWriter
	State   StateWriter
}

func writeEvents(w EventWriter, rows []telemetry.PacketEventRow) error {
	if w == nil || len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchEventWriter); ok {
		return bw.WriteEvents(rows)
	}
	for _, r := range rows {
		if err := w.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}

func writeStates(w StateWriter, rows []telemetry.NodeStateRow) error {
	if w == nil || len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchStateWriter); ok {
		return bw.WriteStates(rows)
	}
	for _, r := range rows {
		if err := w.WriteState(r); err != nil {
			return err
		}
	}
	return nil
}
