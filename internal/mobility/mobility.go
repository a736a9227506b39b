// Mobility models moving drones inside the simulation area
package mobility

import (
	"math"
	"math/rand"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/geo"
)

// Model names accepted in configuration.
const (
	ModelGaussMarkov    = "gauss_markov"
	ModelRandomWalk     = "random_walk"
	ModelRandomWaypoint = "random_waypoint"
	ModelStatic         = "static"
)

// Config parameterises the moving models.
type Config struct {
	Speed             float64 // m/s
	UpdateInterval    time.Duration
	DirectionInterval time.Duration
	Alpha             float64
	Bounds            geo.Bounds
	Margin            geo.Vec3
	Pause             time.Duration // at each waypoint
}

// DefaultConfig matches a 1000x1000x10 m area flown at 10 m/s.
func DefaultConfig() Config {
	return Config{
		Speed:             10,
		UpdateInterval:    100 * time.Millisecond,
		DirectionInterval: 500 * time.Millisecond,
		Alpha:             0.85,
		Bounds:            geo.Bounds{Length: 1000, Width: 1000, Height: 10},
		Margin:            geo.Vec3{X: 50, Y: 50, Z: 1},
	}
}

// Static never moves.
type Static struct {
	pos geo.Vec3
}

func NewStatic(pos geo.Vec3) *Static { return &Static{pos: pos} }

func (s *Static) Position() geo.Vec3 { return s.pos }
func (s *Static) Velocity() geo.Vec3 { return geo.Vec3{} }
func (s *Static) Speed() float64     { return 0 }

// heading holds a drone's kinematic state shared by the moving models.
type heading struct {
	pos       geo.Vec3
	speed     float64
	direction float64 // azimuth, rad
	pitch     float64 // rad
}

func (h *heading) velocity() geo.Vec3 {
	return geo.Vec3{
		X: h.speed * math.Cos(h.direction) * math.Cos(h.pitch),
		Y: h.speed * math.Sin(h.direction) * math.Cos(h.pitch),
		Z: h.speed * math.Sin(h.pitch),
	}
}

// advance moves the position by dt seconds and reflects off the area edges.
// It reports which axes were reflected.
func (h *heading) advance(dt float64, cfg Config) (rx, ry, rz bool) {
	next := h.pos.Add(h.velocity().Scale(dt))
	b, m := cfg.Bounds, cfg.Margin
	if next.X < m.X || next.X > b.Length-m.X {
		h.direction = math.Pi - h.direction
		rx = true
	}
	if next.Y < m.Y || next.Y > b.Width-m.Y {
		h.direction = -h.direction
		ry = true
	}
	if next.Z < m.Z || next.Z > b.Height-m.Z {
		h.pitch = -h.pitch
		rz = true
	}
	h.pos = b.Clamp(next, m)
	return rx, ry, rz
}

func start(sched *engine.Scheduler, owner int, every time.Duration, step func()) {
	sched.Every(sched.Now()+every, every, engine.PhaseDefault, owner, func() bool {
		step()
		return true
	})
}

// RandomWalk flies at constant speed and picks a fresh heading on every
// direction update.
type RandomWalk struct {
	sched    *engine.Scheduler
	owner    int
	cfg      Config
	rng      *rand.Rand
	h        heading
	lastTurn time.Duration
}

// NewRandomWalk creates a walker starting at pos.
func NewRandomWalk(sched *engine.Scheduler, owner int, pos geo.Vec3, cfg Config, rng *rand.Rand) *RandomWalk {
	w := &RandomWalk{sched: sched, owner: owner, cfg: cfg, rng: rng}
	w.h = heading{pos: pos, speed: cfg.Speed}
	w.turn()
	return w
}

func (w *RandomWalk) Start() { start(w.sched, w.owner, w.cfg.UpdateInterval, w.step) }

func (w *RandomWalk) Position() geo.Vec3 { return w.h.pos }
func (w *RandomWalk) Velocity() geo.Vec3 { return w.h.velocity() }
func (w *RandomWalk) Speed() float64     { return w.h.speed }

func (w *RandomWalk) turn() {
	w.h.direction = w.rng.Float64() * 2 * math.Pi
	w.h.pitch = (w.rng.Float64() - 0.5) * 0.1
	w.lastTurn = w.sched.Now()
}

func (w *RandomWalk) step() {
	if w.sched.Now()-w.lastTurn >= w.cfg.DirectionInterval {
		w.turn()
	}
	w.h.advance(w.cfg.UpdateInterval.Seconds(), w.cfg)
}
