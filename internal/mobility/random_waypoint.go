package mobility

import (
	"math/rand"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/geo"
)

// RandomWaypoint flies in a straight line at constant speed to a waypoint
// drawn uniformly inside the area, pauses there, then draws the next one.
type RandomWaypoint struct {
	sched *engine.Scheduler
	owner int
	cfg   Config
	rng   *rand.Rand

	pos         geo.Vec3
	target      geo.Vec3
	vel         geo.Vec3
	pausedUntil time.Duration
	reached     int
}

// NewRandomWaypoint creates a model starting at pos, heading for its first waypoint.
func NewRandomWaypoint(sched *engine.Scheduler, owner int, pos geo.Vec3, cfg Config, rng *rand.Rand) *RandomWaypoint {
	w := &RandomWaypoint{sched: sched, owner: owner, cfg: cfg, rng: rng, pos: pos}
	w.next()
	return w
}

func (w *RandomWaypoint) Start() { start(w.sched, w.owner, w.cfg.UpdateInterval, w.step) }

func (w *RandomWaypoint) Position() geo.Vec3 { return w.pos }
func (w *RandomWaypoint) Velocity() geo.Vec3 { return w.vel }
func (w *RandomWaypoint) Speed() float64     { return w.vel.Norm() }

// Target returns the waypoint currently flown to.
func (w *RandomWaypoint) Target() geo.Vec3 { return w.target }

// Reached returns how many waypoints have been reached so far.
func (w *RandomWaypoint) Reached() int { return w.reached }

func (w *RandomWaypoint) next() {
	b, m := w.cfg.Bounds, w.cfg.Margin
	uniform := func(lo, hi float64) float64 {
		if hi <= lo {
			return (lo + hi) / 2
		}
		return lo + w.rng.Float64()*(hi-lo)
	}
	w.target = geo.Vec3{
		X: uniform(m.X, b.Length-m.X),
		Y: uniform(m.Y, b.Width-m.Y),
		Z: uniform(m.Z, b.Height-m.Z),
	}
	w.aim()
}

func (w *RandomWaypoint) aim() {
	d := w.target.Sub(w.pos)
	if n := d.Norm(); n > 0 {
		w.vel = d.Scale(w.cfg.Speed / n)
	} else {
		w.vel = geo.Vec3{}
	}
}

func (w *RandomWaypoint) step() {
	now := w.sched.Now()
	if now < w.pausedUntil {
		return
	}
	if w.vel == (geo.Vec3{}) {
		w.aim()
	}
	dt := w.cfg.UpdateInterval.Seconds()
	if geo.Distance(w.pos, w.target) <= w.cfg.Speed*dt {
		w.pos = w.target
		w.reached++
		w.next()
		if w.cfg.Pause > 0 {
			w.pausedUntil = now + w.cfg.Pause
			w.vel = geo.Vec3{}
		}
		return
	}
	w.pos = w.pos.Add(w.vel.Scale(dt))
}
