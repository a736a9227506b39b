package sim

import (
	"errors"
	"testing"

	"uavnet-sim/internal/telemetry"
)

type batchCounter struct {
	collectWriter
	batches int
}

func (b *batchCounter) WriteEvents(rows []telemetry.PacketEventRow) error {
	b.batches++
	b.events = append(b.events, rows...)
	return nil
}

type failingWriter struct{}

func (failingWriter) WriteEvent(telemetry.PacketEventRow) error { return errors.New("disk full") }

func TestMultiWriterFanOut(t *testing.T) {
	plain, batch := &collectWriter{}, &batchCounter{}
	mw := NewMultiWriter([]EventWriter{plain, nil, batch}, []MetricsWriter{plain}, []StateWriter{plain})

	rows := []telemetry.PacketEventRow{{PacketID: 1}, {PacketID: 2}, {PacketID: 3}}
	if err := mw.WriteEvents(rows); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if len(plain.events) != 3 || len(batch.events) != 3 {
		t.Fatalf("events plain=%d batch=%d", len(plain.events), len(batch.events))
	}
	if batch.batches != 1 {
		t.Fatalf("batch writer called %d times, want 1", batch.batches)
	}

	_ = mw.WriteMetrics(telemetry.MetricsRow{Delivered: 1})
	_ = mw.WriteStates([]telemetry.NodeStateRow{{NodeID: 1}, {NodeID: 2}})
	if len(plain.metrics) != 1 || len(plain.states) != 2 {
		t.Fatalf("metrics=%d states=%d", len(plain.metrics), len(plain.states))
	}
}

func TestMultiWriterStopsOnError(t *testing.T) {
	after := &collectWriter{}
	mw := NewMultiWriter([]EventWriter{failingWriter{}, after}, nil, nil)
	if err := mw.WriteEvent(telemetry.PacketEventRow{}); err == nil {
		t.Fatalf("expected error")
	}
	if len(after.events) != 0 {
		t.Fatalf("writer after the failing one should not run")
	}
}
