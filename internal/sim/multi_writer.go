package sim

import (
	"uavnet-sim/internal/telemetry"
)

// MultiWriter fan-outs events, metrics and state rows to multiple writers.
type MultiWriter struct {
	events  []EventWriter
	metrics []MetricsWriter
	states  []StateWriter
}

// NewMultiWriter creates a new MultiWriter. Nil entries are skipped.
func NewMultiWriter(ews []EventWriter, mws []MetricsWriter, sws []StateWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ews {
		if w != nil {
			mw.events = append(mw.events, w)
		}
	}
	for _, w := range mws {
		if w != nil {
			mw.metrics = append(mw.metrics, w)
		}
	}
	for _, w := range sws {
		if w != nil {
			mw.states = append(mw.states, w)
		}
	}
	return mw
}

// WriteEvent sends a packet event to all event writers.
func (mw *MultiWriter) WriteEvent(row telemetry.PacketEventRow) error {
	for _, w := range mw.events {
		if err := w.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents sends multiple events to all event writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.PacketEventRow) error {
	for _, w := range mw.events {
		if err := writeEvents(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetrics sends a metrics sample to all metrics writers.
func (mw *MultiWriter) WriteMetrics(row telemetry.MetricsRow) error {
	for _, w := range mw.metrics {
		if err := w.WriteMetrics(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteState sends a node state row to all state writers.
func (mw *MultiWriter) WriteState(row telemetry.NodeStateRow) error {
	for _, w := range mw.states {
		if err := w.WriteState(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteStates sends multiple state rows to all state writers, using batch if supported.
func (mw *MultiWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	for _, w := range mw.states {
		if err := writeStates(w, rows); err != nil {
			return err
		}
	}
	return nil
}
