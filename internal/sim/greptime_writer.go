package sim

import (
	"context"
	"log/slog"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"uavnet-sim/internal/telemetry"
)

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes packet events, metrics and node state to GreptimeDB.
type GreptimeDBWriter struct {
	client       greptimeClient
	log          *slog.Logger
	eventTable   string
	metricsTable string
	stateTable   string
}

// NewGreptimeDBWriter connects to GreptimeDB at host:port. Tables are created
// on first write.
func NewGreptimeDBWriter(host string, port int, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &GreptimeDBWriter{
		client:       client,
		log:          log.With("component", "GreptimeDBWriter"),
		eventTable:   telemetry.PacketEventTableName,
		metricsTable: telemetry.MetricsTableName,
		stateTable:   telemetry.NodeStateTableName,
	}, nil
}

func (w *GreptimeDBWriter) logger() *slog.Logger {
	if w.log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.log
}

func (w *GreptimeDBWriter) write(name string, tbl *table.Table, n int) error {
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.logger().Error("write failed", "table", name, "error", err)
		return err
	}
	w.logger().Debug("wrote rows", "table", name, "rows", n)
	return nil
}

// WriteEvent inserts a single packet event.
func (w *GreptimeDBWriter) WriteEvent(row telemetry.PacketEventRow) error {
	return w.WriteEvents([]telemetry.PacketEventRow{row})
}

// WriteEvents inserts multiple packet events.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.PacketEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddTagColumn("node_id", types.INT64)
	tbl.AddTagColumn("event", types.STRING)
	tbl.AddFieldColumn("packet_id", types.UINT64)
	tbl.AddFieldColumn("kind", types.STRING)
	tbl.AddFieldColumn("src", types.INT64)
	tbl.AddFieldColumn("dst", types.INT64)
	tbl.AddFieldColumn("peer", types.INT64)
	tbl.AddFieldColumn("reason", types.STRING)
	tbl.AddFieldColumn("delay_ms", types.FLOAT64)
	tbl.AddFieldColumn("hops", types.INT64)
	tbl.AddFieldColumn("sim_time_s", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID,
			int64(r.NodeID),
			r.Event,
			r.PacketID,
			r.Kind,
			int64(r.Src),
			int64(r.Dst),
			int64(r.Peer),
			r.Reason,
			r.Delay,
			int64(r.Hops),
			r.SimTime,
			r.Timestamp,
		); err != nil {
			return err
		}
	}
	return w.write(w.eventTable, tbl, len(rows))
}

// WriteMetrics inserts a metrics sample.
func (w *GreptimeDBWriter) WriteMetrics(r telemetry.MetricsRow) error {
	tbl, err := table.New(w.metricsTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddFieldColumn("sim_time_s", types.FLOAT64)
	tbl.AddFieldColumn("generated", types.INT64)
	tbl.AddFieldColumn("delivered", types.INT64)
	tbl.AddFieldColumn("collisions", types.INT64)
	tbl.AddFieldColumn("control_packets", types.INT64)
	tbl.AddFieldColumn("drops_ttl", types.INT64)
	tbl.AddFieldColumn("drops_retry", types.INT64)
	tbl.AddFieldColumn("drops_expired", types.INT64)
	tbl.AddFieldColumn("drops_asleep", types.INT64)
	tbl.AddFieldColumn("pdr", types.FLOAT64)
	tbl.AddFieldColumn("e2e_delay_ms", types.FLOAT64)
	tbl.AddFieldColumn("routing_load", types.FLOAT64)
	tbl.AddFieldColumn("throughput_kbps", types.FLOAT64)
	tbl.AddFieldColumn("hop_count", types.FLOAT64)
	tbl.AddFieldColumn("mac_delay_ms", types.FLOAT64)
	tbl.AddFieldColumn("sleeping", types.INT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	if err := tbl.AddRow(
		r.RunID,
		r.SimTime,
		int64(r.Generated),
		int64(r.Delivered),
		int64(r.Collisions),
		int64(r.ControlPackets),
		int64(r.DropsTTL),
		int64(r.DropsRetry),
		int64(r.DropsExpired),
		int64(r.DropsAsleep),
		r.PDR,
		r.E2EDelayMS,
		r.RoutingLoad,
		r.ThroughputKbps,
		r.HopCount,
		r.MACDelayMS,
		int64(r.Sleeping),
		r.Timestamp,
	); err != nil {
		return err
	}
	return w.write(w.metricsTable, tbl, 1)
}

// WriteState inserts a single node state row.
func (w *GreptimeDBWriter) WriteState(row telemetry.NodeStateRow) error {
	return w.WriteStates([]telemetry.NodeStateRow{row})
}

// WriteStates inserts multiple node state rows.
func (w *GreptimeDBWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddTagColumn("node_id", types.INT64)
	tbl.AddFieldColumn("x", types.FLOAT64)
	tbl.AddFieldColumn("y", types.FLOAT64)
	tbl.AddFieldColumn("z", types.FLOAT64)
	tbl.AddFieldColumn("speed", types.FLOAT64)
	tbl.AddFieldColumn("residual_j", types.FLOAT64)
	tbl.AddFieldColumn("asleep", types.BOOLEAN)
	tbl.AddFieldColumn("queue_len", types.INT64)
	tbl.AddFieldColumn("waiting_len", types.INT64)
	tbl.AddFieldColumn("neighbors", types.INT64)
	tbl.AddFieldColumn("sim_time_s", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID,
			int64(r.NodeID),
			r.X,
			r.Y,
			r.Z,
			r.Speed,
			r.Residual,
			r.Asleep,
			int64(r.QueueLen),
			int64(r.WaitingLen),
			int64(r.Neighbors),
			r.SimTime,
			r.Timestamp,
		); err != nil {
			return err
		}
	}
	return w.write(w.stateTable, tbl, len(rows))
}
