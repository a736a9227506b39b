package sim

import (
	"encoding/json"
	"os"

	"uavnet-sim/internal/telemetry"
)

// FileWriter writes packet events, metrics and node state to JSONL files.
type FileWriter struct {
	eventFile   *os.File
	metricsFile *os.File
	stateFile   *os.File
	eventEnc    *json.Encoder
	metricsEnc  *json.Encoder
	stateEnc    *json.Encoder
}

// NewFileWriter creates a FileWriter. metricsPath or statePath may be empty to skip those logs.
func NewFileWriter(eventPath, metricsPath, statePath string) (*FileWriter, error) {
	ef, err := os.Create(eventPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{eventFile: ef, eventEnc: json.NewEncoder(ef)}
	if metricsPath != "" {
		mf, err := os.Create(metricsPath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.metricsFile = mf
		fw.metricsEnc = json.NewEncoder(mf)
	}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	return fw, nil
}

// WriteEvent logs a single packet event.
func (f *FileWriter) WriteEvent(row telemetry.PacketEventRow) error {
	return f.eventEnc.Encode(row)
}

// WriteEvents logs multiple packet events.
func (f *FileWriter) WriteEvents(rows []telemetry.PacketEventRow) error {
	for _, r := range rows {
		if err := f.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetrics logs a metrics sample, if enabled.
func (f *FileWriter) WriteMetrics(row telemetry.MetricsRow) error {
	if f.metricsEnc == nil {
		return nil
	}
	return f.metricsEnc.Encode(row)
}

// WriteState logs a node state row, if enabled.
func (f *FileWriter) WriteState(row telemetry.NodeStateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// WriteStates logs multiple node state rows.
func (f *FileWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	for _, r := range rows {
		if err := f.WriteState(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range []*os.File{f.eventFile, f.metricsFile, f.stateFile} {
		if file == nil {
			continue
		}
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
