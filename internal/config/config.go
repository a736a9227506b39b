// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

// Area is the flight volume in metres.
type Area struct {
	Length float64 `yaml:"length"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Simulation holds run-level settings.
type Simulation struct {
	Seed            int64         `yaml:"seed"`
	Duration        time.Duration `yaml:"duration"`
	Drones          int           `yaml:"drones"`
	Area            Area          `yaml:"area"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
	RunID           string        `yaml:"run_id"`
	// Chunk is how much virtual time runs per lock acquisition.
	Chunk time.Duration `yaml:"chunk"`
}

// Radio is the physical layer.
type Radio struct {
	BitRate          float64 `yaml:"bit_rate"`
	TxPower          float64 `yaml:"tx_power"`
	Noise            float64 `yaml:"noise"`
	Frequency        float64 `yaml:"frequency"`
	PathLossExponent float64 `yaml:"path_loss_exponent"`
	SensingRange     float64 `yaml:"sensing_range"`
	SINRThreshold    float64 `yaml:"sinr_threshold"`
}

// Packet sizes are in bits.
type Packet struct {
	DataLength  int           `yaml:"data_length"`
	AckLength   int           `yaml:"ack_length"`
	HelloLength int           `yaml:"hello_length"`
	Lifetime    time.Duration `yaml:"lifetime"`
	MaxTTL      int           `yaml:"max_ttl"`
}

// MAC selects and tunes the medium access protocol.
type MAC struct {
	Protocol           string        `yaml:"protocol"`
	Slot               time.Duration `yaml:"slot"`
	SIFS               time.Duration `yaml:"sifs"`
	DIFS               time.Duration `yaml:"difs"`
	CWMin              int           `yaml:"cw_min"`
	CWMax              int           `yaml:"cw_max"`
	AckTimeout         time.Duration `yaml:"ack_timeout"`
	MaxRetransmissions int           `yaml:"max_retransmissions"`
}

// Routing selects and tunes the network layer.
type Routing struct {
	Protocol             string        `yaml:"protocol"`
	HelloInterval        time.Duration `yaml:"hello_interval"`
	NeighborLifetime     time.Duration `yaml:"neighbor_lifetime"`
	WaitingCheckInterval time.Duration `yaml:"waiting_check_interval"`
	EntryLifetime        time.Duration `yaml:"entry_lifetime"` // dsdv routes, grad costs
	RequestBudget        int           `yaml:"request_budget"` // grad request hops
	LearningRate         float64       `yaml:"learning_rate"`  // q_routing
}

// Mobility selects and tunes the movement model.
type Mobility struct {
	Model             string        `yaml:"model"`
	Speed             float64       `yaml:"speed"`
	UpdateInterval    time.Duration `yaml:"update_interval"`
	DirectionInterval time.Duration `yaml:"direction_interval"`
	Alpha             float64       `yaml:"alpha"`
	MarginXY          float64       `yaml:"margin_xy"`
	MarginZ           float64       `yaml:"margin_z"`
	Pause             time.Duration `yaml:"pause"` // random_waypoint
}

// Energy configures the battery and the sleep threshold.
type Energy struct {
	Initial            float64       `yaml:"initial"`
	Threshold          float64       `yaml:"threshold"`
	CheckInterval      time.Duration `yaml:"check_interval"`
	Propulsion         bool          `yaml:"propulsion"`
	PropulsionInterval time.Duration `yaml:"propulsion_interval"`
}

// Traffic configures data packet generation.
type Traffic struct {
	Pattern     string        `yaml:"pattern"`
	IntervalMin time.Duration `yaml:"interval_min"`
	IntervalMax time.Duration `yaml:"interval_max"`
	Rate        float64       `yaml:"rate"`
}

// Node holds per-drone process settings.
type Node struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Config is the root configuration of a run.
type Config struct {
	Simulation Simulation `yaml:"simulation"`
	Radio      Radio      `yaml:"radio"`
	Packet     Packet     `yaml:"packet"`
	MAC        MAC        `yaml:"mac"`
	Routing    Routing    `yaml:"routing"`
	Mobility   Mobility   `yaml:"mobility"`
	Energy     Energy     `yaml:"energy"`
	Traffic    Traffic    `yaml:"traffic"`
	Node       Node       `yaml:"node"`
}

// Default returns the reference scenario: 20 drones over 1 km² for 15 s.
func Default() Config {
	return Config{
		Simulation: Simulation{
			Seed:            2024,
			Duration:        15 * time.Second,
			Drones:          20,
			Area:            Area{Length: 1000, Width: 1000, Height: 10},
			MetricsInterval: time.Second,
			Chunk:           10 * time.Millisecond,
		},
		Radio: Radio{
			BitRate:          54e6,
			TxPower:          0.1,
			Noise:            1e-9,
			Frequency:        2.4e9,
			PathLossExponent: 2,
			SensingRange:     300,
			SINRThreshold:    6,
		},
		Packet: Packet{
			DataLength:  128 + 1024*8,
			AckLength:   128,
			HelloLength: 384,
			Lifetime:    10 * time.Second,
			MaxTTL:      15,
		},
		MAC: MAC{
			Protocol:           "csma_ca",
			Slot:               50 * time.Microsecond,
			SIFS:               28 * time.Microsecond,
			DIFS:               128 * time.Microsecond,
			CWMin:              16,
			CWMax:              1024,
			AckTimeout:         1000 * time.Microsecond,
			MaxRetransmissions: 5,
		},
		Routing: Routing{
			Protocol:             "gpsr",
			HelloInterval:        500 * time.Millisecond,
			NeighborLifetime:     time.Second,
			WaitingCheckInterval: 600 * time.Millisecond,
			EntryLifetime:        5 * time.Second,
			RequestBudget:        20,
			LearningRate:         0.5,
		},
		Mobility: Mobility{
			Model:             "gauss_markov",
			Speed:             10,
			UpdateInterval:    100 * time.Millisecond,
			DirectionInterval: 500 * time.Millisecond,
			Alpha:             0.85,
			MarginXY:          50,
			MarginZ:           1,
		},
		Energy: Energy{
			Initial:            20e3,
			Threshold:          2000,
			CheckInterval:      100 * time.Millisecond,
			Propulsion:         true,
			PropulsionInterval: 100 * time.Millisecond,
		},
		Traffic: Traffic{
			Pattern:     "uniform",
			IntervalMin: 500 * time.Millisecond,
			IntervalMax: 505 * time.Millisecond,
			Rate:        2,
		},
		Node: Node{PollInterval: 10 * time.Microsecond},
	}
}

// Load reads a YAML config on top of Default, validates it against the CUE
// schema when schemaPath is set, then applies environment overrides.
func Load(configPath, schemaPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if schemaPath != "" {
		schema, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read CUE schema: %w", err)
		}
		if err := ValidateWithCue(configPath, data, schema); err != nil {
			return nil, err
		}
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	return &cfg, nil
}

// ValidateWithCue checks YAML data against a CUE schema.
func ValidateWithCue(filename string, data, schema []byte) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileBytes(schema, cue.Filename("schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}

	f, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(f)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("cannot build config value: %w", err)
	}

	final := schemaVal.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ApplyEnv overrides the seed, duration and run id from SIM_SEED,
// SIM_DURATION and RUN_ID.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("SIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SIM_SEED: %w", err)
		}
		c.Simulation.Seed = seed
	}
	if v := os.Getenv("SIM_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SIM_DURATION: %w", err)
		}
		c.Simulation.Duration = d
	}
	if v := os.Getenv("RUN_ID"); v != "" {
		c.Simulation.RunID = v
	}
	return nil
}

// Validate checks the invariants the simulator relies on.
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.Drones < 1:
		return fmt.Errorf("simulation.drones must be at least 1, got %d", s.Drones)
	case s.Duration <= 0:
		return fmt.Errorf("simulation.duration must be positive")
	case s.Area.Length <= 0 || s.Area.Width <= 0 || s.Area.Height <= 0:
		return fmt.Errorf("simulation.area must be positive, got %+v", s.Area)
	case c.Radio.BitRate <= 0:
		return fmt.Errorf("radio.bit_rate must be positive")
	case c.Packet.DataLength <= 0 || c.Packet.AckLength <= 0 || c.Packet.HelloLength <= 0:
		return fmt.Errorf("packet lengths must be positive")
	case c.MAC.CWMin < 1 || c.MAC.CWMax < c.MAC.CWMin:
		return fmt.Errorf("mac contention window must satisfy 1 <= cw_min <= cw_max, got %d..%d", c.MAC.CWMin, c.MAC.CWMax)
	case c.MAC.Slot <= 0 || c.MAC.AckTimeout <= 0:
		return fmt.Errorf("mac slot and ack_timeout must be positive")
	case c.MAC.MaxRetransmissions < 1:
		return fmt.Errorf("mac.max_retransmissions must be at least 1")
	case c.Node.PollInterval <= 0:
		return fmt.Errorf("node.poll_interval must be positive")
	case c.Energy.CheckInterval <= 0:
		return fmt.Errorf("energy.check_interval must be positive")
	case c.Routing.HelloInterval <= 0 || c.Routing.WaitingCheckInterval <= 0:
		return fmt.Errorf("routing intervals must be positive")
	case c.Routing.LearningRate < 0 || c.Routing.LearningRate > 1:
		return fmt.Errorf("routing.learning_rate must be within [0, 1], got %v", c.Routing.LearningRate)
	case c.Mobility.UpdateInterval <= 0:
		return fmt.Errorf("mobility.update_interval must be positive")
	case c.Mobility.Pause < 0:
		return fmt.Errorf("mobility.pause must not be negative")
	}
	switch c.Traffic.Pattern {
	case "none", "":
	case "uniform":
		if c.Traffic.IntervalMin <= 0 || c.Traffic.IntervalMax < c.Traffic.IntervalMin {
			return fmt.Errorf("traffic interval must satisfy 0 < interval_min <= interval_max")
		}
	case "poisson":
		if c.Traffic.Rate <= 0 {
			return fmt.Errorf("traffic.rate must be positive")
		}
	default:
		return fmt.Errorf("unknown traffic pattern %q", c.Traffic.Pattern)
	}
	return nil
}
