package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"uavnet-sim/internal/telemetry"
)

// JSONStdoutWriter prints events, metrics and state rows as JSON to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) print(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteEvent outputs a packet event in JSON format.
func (w *JSONStdoutWriter) WriteEvent(row telemetry.PacketEventRow) error { return w.print(row) }

// WriteEvents outputs multiple packet events in JSON format.
func (w *JSONStdoutWriter) WriteEvents(rows []telemetry.PacketEventRow) error {
	for _, r := range rows {
		if err := w.print(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetrics outputs a metrics sample in JSON format.
func (w *JSONStdoutWriter) WriteMetrics(row telemetry.MetricsRow) error { return w.print(row) }

// WriteState outputs a node state row in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.NodeStateRow) error { return w.print(row) }
