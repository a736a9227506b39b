package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"uavnet-sim/internal/config"
	"uavnet-sim/internal/telemetry"
)

func TestJSONStdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONStdoutWriter{out: &buf}
	if err := w.WriteEvents([]telemetry.PacketEventRow{{NodeID: 1}, {NodeID: 2}}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if err := w.WriteMetrics(telemetry.MetricsRow{PDR: 50}); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	var m telemetry.MetricsRow
	if err := json.Unmarshal([]byte(lines[2]), &m); err != nil || m.PDR != 50 {
		t.Fatalf("metrics line %q: %v", lines[2], err)
	}
}

func TestColorStdoutWriter(t *testing.T) {
	cfg := config.Default()
	var buf bytes.Buffer
	w := &ColorStdoutWriter{cfg: &cfg, out: &buf}

	_ = w.WriteEvent(telemetry.PacketEventRow{NodeID: 3, Event: telemetry.EventTransmitted, Peer: 4})
	_ = w.WriteEvent(telemetry.PacketEventRow{NodeID: 3, Event: telemetry.EventDropped, PacketID: 8, Kind: "data", Src: 3, Dst: 9, Peer: -1, Reason: "ttl"})
	_ = w.WriteMetrics(telemetry.MetricsRow{PDR: 42, Timestamp: time.Unix(0, 0)})
	_ = w.WriteMetrics(telemetry.MetricsRow{PDR: 99})

	out := buf.String()
	if strings.Count(out, "Simulation Configuration:") != 1 {
		t.Fatalf("overview should print once:\n%s", out)
	}
	if strings.Contains(out, "transmitted") {
		t.Fatalf("transmissions printed without Verbose:\n%s", out)
	}
	if !strings.Contains(out, colorRed+"reason=ttl") {
		t.Fatalf("drop reason missing:\n%s", out)
	}
	if !strings.Contains(out, colorRed+"pdr=42.0%") || !strings.Contains(out, colorGreen+"pdr=99.0%") {
		t.Fatalf("pdr colors wrong:\n%s", out)
	}

	buf.Reset()
	w.Verbose = true
	_ = w.WriteEvent(telemetry.PacketEventRow{NodeID: 3, Event: telemetry.EventTransmitted, Peer: 4})
	if !strings.Contains(buf.String(), "transmitted") {
		t.Fatalf("verbose writer skipped a transmission")
	}
}
