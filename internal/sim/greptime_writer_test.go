package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"uavnet-sim/internal/telemetry"
)

type mockGreptimeClient struct {
	table *table.Table
	calls int
	err   error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.calls++
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, m.err
}

func TestGreptimeWriterEvents(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	rows := []telemetry.PacketEventRow{
		{RunID: "r1", NodeID: 3, Event: telemetry.EventDropped, PacketID: 42, Kind: "data", Src: 1, Dst: 7, Peer: -1, Reason: "ttl", Hops: 16, Timestamp: ts},
		{RunID: "r1", NodeID: 7, Event: telemetry.EventDelivered, PacketID: 43, Src: 1, Dst: 7, Peer: -1, Delay: 12.5, Timestamp: ts},
	}

	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, eventTable: "packet_events"}
	if err := w.WriteEvents(rows); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}

	got := m.table.GetRows()
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(got.Rows))
	}
	if got.Schema[1].Datatype != gpb.ColumnDataType_INT64 || got.Schema[1].SemanticType != gpb.SemanticType_TAG {
		t.Fatalf("node_id column = %v/%v", got.Schema[1].Datatype, got.Schema[1].SemanticType)
	}
	if got.Schema[3].Datatype != gpb.ColumnDataType_UINT64 {
		t.Fatalf("packet_id column type = %v", got.Schema[3].Datatype)
	}
	first := got.Rows[0].Values
	if first[0].GetStringValue() != "r1" || first[1].GetI64Value() != 3 || first[3].GetU64Value() != 42 {
		t.Fatalf("unexpected first row: %v", first)
	}
	if first[8].GetStringValue() != "ttl" || first[7].GetI64Value() != -1 {
		t.Fatalf("reason/peer = %v/%v", first[8], first[7])
	}
	if d := got.Rows[1].Values[9].GetF64Value(); d != 12.5 {
		t.Fatalf("delay_ms = %v, want 12.5", d)
	}
}

func TestGreptimeWriterMetrics(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, metricsTable: "network_metrics"}
	row := telemetry.MetricsRow{RunID: "r1", SimTime: 2, Generated: 10, Delivered: 9, PDR: 90, DropsRetry: 1, Timestamp: time.Unix(2, 0)}
	if err := w.WriteMetrics(row); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	vals := m.table.GetRows().Rows[0].Values
	if vals[2].GetI64Value() != 10 || vals[3].GetI64Value() != 9 {
		t.Fatalf("generated/delivered = %v/%v", vals[2], vals[3])
	}
	if vals[7].GetI64Value() != 1 || vals[10].GetF64Value() != 90 {
		t.Fatalf("drops_retry/pdr = %v/%v", vals[7], vals[10])
	}
}

func TestGreptimeWriterStates(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, stateTable: "node_state"}
	rows := []telemetry.NodeStateRow{{RunID: "r1", NodeID: 2, X: 10, Y: 20, Z: 5, Asleep: true, Neighbors: 4, Timestamp: time.Unix(1, 0)}}
	if err := w.WriteStates(rows); err != nil {
		t.Fatalf("WriteStates: %v", err)
	}
	schema := m.table.GetRows().Schema
	if schema[7].Datatype != gpb.ColumnDataType_BOOLEAN {
		t.Fatalf("asleep column type = %v", schema[7].Datatype)
	}
	vals := m.table.GetRows().Rows[0].Values
	if !vals[7].GetBoolValue() || vals[10].GetI64Value() != 4 || vals[3].GetF64Value() != 20 {
		t.Fatalf("unexpected state row: %v", vals)
	}
}

func TestGreptimeWriterSkipsEmptyAndPropagatesErrors(t *testing.T) {
	m := &mockGreptimeClient{err: errors.New("unavailable")}
	w := &GreptimeDBWriter{client: m, eventTable: "packet_events"}
	if err := w.WriteEvents(nil); err != nil || m.calls != 0 {
		t.Fatalf("empty batch: err=%v calls=%d", err, m.calls)
	}
	if err := w.WriteEvent(telemetry.PacketEventRow{Timestamp: time.Unix(0, 0)}); err == nil {
		t.Fatalf("expected client error")
	}
}
