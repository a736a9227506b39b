package node

import "time"

// Traffic patterns understood by the generator.
const (
	TrafficNone    = "none"
	TrafficUniform = "uniform"
	TrafficPoisson = "poisson"
)

// Traffic describes packet inter-arrival times.
type Traffic struct {
	Pattern     string
	IntervalMin time.Duration
	IntervalMax time.Duration
	Rate        float64 // packets per second, poisson only
}

// Config holds the constants consumed by the per-drone pipeline.
type Config struct {
	BitRate             float64 // bit/s
	DataLength          int     // bits
	PacketLifetime      time.Duration
	MaxTTL              int
	MaxRetransmissions  int
	SINRThreshold       float64 // dB
	EnergyThreshold     float64 // J
	PollInterval        time.Duration
	EnergyCheckInterval time.Duration
	Traffic             Traffic
}

// DefaultConfig mirrors an 802.11g-like link with 1 KiB payloads.
func DefaultConfig() Config {
	return Config{
		BitRate:             54e6,
		DataLength:          128 + 1024*8,
		PacketLifetime:      10 * time.Second,
		MaxTTL:              15,
		MaxRetransmissions:  5,
		SINRThreshold:       6,
		EnergyThreshold:     2000,
		PollInterval:        10 * time.Microsecond,
		EnergyCheckInterval: 100 * time.Millisecond,
		Traffic: Traffic{
			Pattern:     TrafficUniform,
			IntervalMin: 500 * time.Millisecond,
			IntervalMax: 505 * time.Millisecond,
			Rate:        2,
		},
	}
}
