// Simulator wiring the drone network onto the virtual-time engine
package sim

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"uavnet-sim/internal/config"
	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/metrics"
	"uavnet-sim/internal/node"
	"uavnet-sim/internal/telemetry"

	"github.com/google/uuid"
)

const defaultChunk = 10 * time.Millisecond

// ErrAlreadyRun is returned when Run is called a second time.
var ErrAlreadyRun = errors.New("simulation already run")

type neighborCounter interface {
	NeighborCount() int
}

// Simulator owns one run: the network, its scheduler and the metrics
// collector. The simulation goroutine holds mu while events execute, so
// snapshots taken from other goroutines see a consistent instant.
type Simulator struct {
	cfg     *config.Config
	runID   string
	base    time.Time
	writers Writers
	log     *slog.Logger
	pace    float64

	mu        sync.Mutex
	sched     *engine.Scheduler
	net       *node.Network
	collector *metrics.Collector
	ran       bool

	// rows produced by the current chunk, flushed outside the lock
	events  []telemetry.PacketEventRow
	samples []telemetry.MetricsRow
	states  []telemetry.NodeStateRow
}

// NewSimulator builds the network described by cfg. The run id comes from
// the config or a fresh UUID.
func NewSimulator(cfg *config.Config, writers Writers, log *slog.Logger) (*Simulator, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	runID := cfg.Simulation.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	s := &Simulator{
		cfg:     cfg,
		runID:   runID,
		base:    time.Now().UTC(),
		writers: writers,
		log:     log.With("run_id", runID),
		sched:   engine.NewScheduler(),
	}
	s.collector = metrics.NewCollector(runID, s.sched.Now, s.base)
	if writers.Events != nil {
		s.collector.OnEvent(func(row telemetry.PacketEventRow) {
			s.events = append(s.events, row)
		})
	}
	net, err := buildNetwork(cfg, s.sched, s.collector, s.log)
	if err != nil {
		return nil, err
	}
	s.net = net
	return s, nil
}

// SetPace throttles the run to factor virtual seconds per wall-clock second.
// Zero or less runs as fast as possible.
func (s *Simulator) SetPace(factor float64) { s.pace = factor }

// RunID returns the identifier stamped on every row of this run.
func (s *Simulator) RunID() string { return s.runID }

// Config returns the configuration of the run.
func (s *Simulator) Config() *config.Config { return s.cfg }

// Now returns the current virtual time.
func (s *Simulator) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Now()
}

// Metrics returns the network summary so far.
func (s *Simulator) Metrics() metrics.Summary {
	return s.collector.Summary()
}

// Nodes returns the current state of every drone.
func (s *Simulator) Nodes() []telemetry.NodeStateRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodeStates()
}

func (s *Simulator) nodeStates() []telemetry.NodeStateRow {
	now := s.sched.Now()
	drones := s.net.Drones()
	rows := make([]telemetry.NodeStateRow, 0, len(drones))
	for _, d := range drones {
		pos := d.Position()
		row := telemetry.NodeStateRow{
			RunID:      s.runID,
			NodeID:     d.ID(),
			X:          pos.X,
			Y:          pos.Y,
			Z:          pos.Z,
			Speed:      d.Velocity().Norm(),
			Residual:   d.Energy().Residual(),
			Asleep:     d.Asleep(),
			QueueLen:   d.QueueLen(),
			WaitingLen: d.WaitingLen(),
			SimTime:    now.Seconds(),
			Timestamp:  s.base.Add(now),
		}
		if nc, ok := d.Router().(neighborCounter); ok {
			row.Neighbors = nc.NeighborCount()
		}
		rows = append(rows, row)
	}
	return rows
}

// sample records a metrics row and, if a state writer is set, every drone's state.
func (s *Simulator) sample() {
	now := s.sched.Now()
	s.samples = append(s.samples, s.collector.Summary().Row(s.runID, now, s.base.Add(now)))
	if s.writers.State != nil {
		s.states = append(s.states, s.nodeStates()...)
	}
}

// flush hands the rows of the last chunk to the writers. Writer failures are
// logged and do not stop the run.
func (s *Simulator) flush() {
	s.mu.Lock()
	events, samples, states := s.events, s.samples, s.states
	s.events, s.samples, s.states = nil, nil, nil
	s.mu.Unlock()

	if err := writeEvents(s.writers.Events, events); err != nil {
		s.log.Error("event write failed", "rows", len(events), "err", err)
	}
	if s.writers.Metrics != nil {
		for _, row := range samples {
			if err := s.writers.Metrics.WriteMetrics(row); err != nil {
				s.log.Error("metrics write failed", "sim_time", row.SimTime, "err", err)
			}
		}
	}
	if err := writeStates(s.writers.State, states); err != nil {
		s.log.Error("state write failed", "rows", len(states), "err", err)
	}
}
