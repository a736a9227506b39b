package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"uavnet-sim/internal/telemetry"
)

func readLines(t *testing.T, path string) [][]byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines [][]byte
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	return lines
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	ts := time.Unix(0, 0).UTC()
	eRow := telemetry.PacketEventRow{RunID: "r", NodeID: 2, Event: telemetry.EventDelivered, PacketID: 5, Src: 0, Dst: 2, Peer: -1, Delay: 3.5, Hops: 2, Timestamp: ts}
	mRow := telemetry.MetricsRow{RunID: "r", SimTime: 1, Generated: 4, Delivered: 3, PDR: 75, Timestamp: ts}
	sRow := telemetry.NodeStateRow{RunID: "r", NodeID: 1, X: 10, Residual: 1500, Asleep: true, Timestamp: ts}

	cases := []struct {
		name   string
		write  func(*FileWriter) error
		decode func([]byte)
	}{
		{
			name:  "events",
			write: func(fw *FileWriter) error { return fw.WriteEvents([]telemetry.PacketEventRow{eRow}) },
			decode: func(b []byte) {
				var got telemetry.PacketEventRow
				if err := json.Unmarshal(b, &got); err != nil {
					t.Fatalf("decode event: %v", err)
				}
				if got.PacketID != eRow.PacketID || got.Delay != eRow.Delay || got.Peer != -1 || !got.Timestamp.Equal(ts) {
					t.Fatalf("unexpected event: %#v", got)
				}
			},
		},
		{
			name:  "metrics",
			write: func(fw *FileWriter) error { return fw.WriteMetrics(mRow) },
			decode: func(b []byte) {
				var got telemetry.MetricsRow
				if err := json.Unmarshal(b, &got); err != nil {
					t.Fatalf("decode metrics: %v", err)
				}
				if got.PDR != mRow.PDR || got.Delivered != mRow.Delivered {
					t.Fatalf("unexpected metrics: %#v", got)
				}
			},
		},
		{
			name:  "state",
			write: func(fw *FileWriter) error { return fw.WriteStates([]telemetry.NodeStateRow{sRow}) },
			decode: func(b []byte) {
				var got telemetry.NodeStateRow
				if err := json.Unmarshal(b, &got); err != nil {
					t.Fatalf("decode state: %v", err)
				}
				if got.Residual != sRow.Residual || !got.Asleep {
					t.Fatalf("unexpected state: %#v", got)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			paths := map[string]string{
				"events":  filepath.Join(dir, tc.name+"_events.jsonl"),
				"metrics": filepath.Join(dir, tc.name+"_metrics.jsonl"),
				"state":   filepath.Join(dir, tc.name+"_state.jsonl"),
			}
			fw, err := NewFileWriter(paths["events"], paths["metrics"], paths["state"])
			if err != nil {
				t.Fatalf("NewFileWriter: %v", err)
			}
			if err := tc.write(fw); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := fw.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			lines := readLines(t, paths[tc.name])
			if len(lines) != 1 {
				t.Fatalf("lines = %d, want 1", len(lines))
			}
			tc.decode(lines[0])
		})
	}
}

func TestFileWriterOptionalLogs(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWriter(filepath.Join(dir, "events.jsonl"), "", "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer fw.Close()
	if err := fw.WriteMetrics(telemetry.MetricsRow{}); err != nil {
		t.Fatalf("disabled metrics log returned %v", err)
	}
	if err := fw.WriteState(telemetry.NodeStateRow{}); err != nil {
		t.Fatalf("disabled state log returned %v", err)
	}
}

func TestFileWriterBadPath(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewFileWriter(filepath.Join(dir, "events.jsonl"), filepath.Join(dir, "missing", "m.jsonl"), ""); err == nil {
		t.Fatalf("expected error for unwritable metrics path")
	}
}
