// Telemetry rows with greptime tags
package telemetry

import (
	"os"
	"time"
)

// Packet event names.
const (
	EventGenerated   = "generated"
	EventTransmitted = "transmitted"
	EventReceived    = "received"
	EventCollision   = "collision"
	EventDropped     = "dropped"
	EventDelivered   = "delivered"
	EventControl     = "control"
	EventSlept       = "slept"
)

// PacketEventRow is one packet lifecycle event seen by a drone.
type PacketEventRow struct {
	RunID     string    `json:"run_id"`           // TAG
	NodeID    int       `json:"node_id"`          // TAG
	Event     string    `json:"event"`            // TAG
	PacketID  uint64    `json:"packet_id"`        // FIELD
	Kind      string    `json:"kind,omitempty"`   // FIELD
	Src       int       `json:"src"`              // FIELD
	Dst       int       `json:"dst"`              // FIELD
	Peer      int       `json:"peer"`             // FIELD, previous or next hop, -1 if none
	Reason    string    `json:"reason,omitempty"` // FIELD
	Delay     float64   `json:"delay_ms"`         // FIELD, end-to-end delay on delivery
	Hops      int       `json:"hops"`             // FIELD
	SimTime   float64   `json:"sim_time_s"`       // FIELD
	Timestamp time.Time `json:"ts"`               // TIME INDEX
}

// MetricsRow is a periodic snapshot of the network-wide counters.
type MetricsRow struct {
	RunID          string    `json:"run_id"` // TAG
	SimTime        float64   `json:"sim_time_s"`
	Generated      int       `json:"generated"`
	Delivered      int       `json:"delivered"`
	Collisions     int       `json:"collisions"`
	ControlPackets int       `json:"control_packets"`
	DropsTTL       int       `json:"drops_ttl"`
	DropsRetry     int       `json:"drops_retry"`
	DropsExpired   int       `json:"drops_expired"`
	DropsAsleep    int       `json:"drops_asleep"`
	PDR            float64   `json:"pdr"`
	E2EDelayMS     float64   `json:"e2e_delay_ms"`
	RoutingLoad    float64   `json:"routing_load"`
	ThroughputKbps float64   `json:"throughput_kbps"`
	HopCount       float64   `json:"hop_count"`
	MACDelayMS     float64   `json:"mac_delay_ms"`
	Sleeping       int       `json:"sleeping"`
	Timestamp      time.Time `json:"ts"` // TIME INDEX
}

// NodeStateRow captures one drone's state at a sampling instant.
type NodeStateRow struct {
	RunID      string    `json:"run_id"`  // TAG
	NodeID     int       `json:"node_id"` // TAG
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Z          float64   `json:"z"`
	Speed      float64   `json:"speed"`
	Residual   float64   `json:"residual_j"`
	Asleep     bool      `json:"asleep"`
	QueueLen   int       `json:"queue_len"`
	WaitingLen int       `json:"waiting_len"`
	Neighbors  int       `json:"neighbors"`
	SimTime    float64   `json:"sim_time_s"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

func tableName(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// Table names used when writing to GreptimeDB. Each can be overridden via
// the environment.
var (
	PacketEventTableName = tableName("GREPTIMEDB_EVENTS_TABLE", "packet_events")
	MetricsTableName     = tableName("GREPTIMEDB_METRICS_TABLE", "network_metrics")
	NodeStateTableName   = tableName("GREPTIMEDB_STATE_TABLE", "node_state")
)

func (PacketEventRow) TableName() string { return PacketEventTableName }
func (MetricsRow) TableName() string     { return MetricsTableName }
func (NodeStateRow) TableName() string   { return NodeStateTableName }
