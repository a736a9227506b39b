package mobility

import (
	"math"
	"math/rand"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/geo"
)

// GaussMarkov is a 3-D Gauss-Markov model: speed, azimuth and pitch are
// redrawn on every direction update as
//
//	x' = alpha*x + (1-alpha)*mean + sqrt(1-alpha^2)*N(0, sigma)
//
// and the drone reflects off the edges of the area.
type GaussMarkov struct {
	sched *engine.Scheduler
	owner int
	cfg   Config
	rng   *rand.Rand

	h             heading
	meanSpeed     float64
	meanDirection float64
	meanPitch     float64
	lastUpdate    time.Duration
}

// NewGaussMarkov creates a model starting at pos with a random heading.
func NewGaussMarkov(sched *engine.Scheduler, owner int, pos geo.Vec3, cfg Config, rng *rand.Rand) *GaussMarkov {
	g := &GaussMarkov{sched: sched, owner: owner, cfg: cfg, rng: rng}
	g.h = heading{
		pos:       pos,
		speed:     cfg.Speed,
		direction: rng.Float64() * 2 * math.Pi,
		pitch:     (rng.Float64() - 0.5) * 0.1,
	}
	g.meanSpeed = g.h.speed
	g.meanDirection = g.h.direction
	g.meanPitch = g.h.pitch
	g.lastUpdate = sched.Now()
	return g
}

func (g *GaussMarkov) Start() { start(g.sched, g.owner, g.cfg.UpdateInterval, g.step) }

func (g *GaussMarkov) Position() geo.Vec3 { return g.h.pos }
func (g *GaussMarkov) Velocity() geo.Vec3 { return g.h.velocity() }
func (g *GaussMarkov) Speed() float64     { return g.h.speed }

func (g *GaussMarkov) step() {
	if g.sched.Now()-g.lastUpdate >= g.cfg.DirectionInterval {
		g.redraw()
		g.lastUpdate = g.sched.Now()
	}
	rx, ry, rz := g.h.advance(g.cfg.UpdateInterval.Seconds(), g.cfg)
	if rx {
		g.meanDirection = math.Pi - g.meanDirection
	}
	if ry {
		g.meanDirection = -g.meanDirection
	}
	if rz {
		g.meanPitch = -g.meanPitch
	}
}

func (g *GaussMarkov) redraw() {
	a := g.cfg.Alpha
	a2 := 1 - a
	a3 := math.Sqrt(1 - a*a)
	g.h.speed = math.Abs(a*g.h.speed + a2*g.meanSpeed + a3*g.rng.NormFloat64())
	g.h.direction = a*g.h.direction + a2*g.meanDirection + a3*g.rng.NormFloat64()
	g.h.pitch = a*g.h.pitch + a2*g.meanPitch + a3*0.1*g.rng.NormFloat64()
}
