// Energy accounting for rotary-wing drones
package energy

import (
	"math"
	"time"

	"uavnet-sim/internal/engine"
)

// RotorModel is the rotary-wing propulsion power model of Zeng, Xu and Zhang
// (IEEE TWC 2019).
type RotorModel struct {
	ProfileDrag          float64 // delta
	AirDensity           float64 // rho, kg/m^3
	Solidity             float64 // s
	DiscArea             float64 // A, m^2
	BladeAngularVelocity float64 // omega, rad/s
	RotorRadius          float64 // R, m
	InducedCorrection    float64 // k
	Weight               float64 // W, N
	TipSpeed             float64 // U_tip, m/s
	HoverInducedVelocity float64 // v0, m/s
	FuselageDrag         float64 // d0
}

// DefaultRotor returns the reference parameters of the paper.
func DefaultRotor() RotorModel {
	return RotorModel{
		ProfileDrag:          0.012,
		AirDensity:           1.225,
		Solidity:             0.05,
		DiscArea:             0.503,
		BladeAngularVelocity: 300,
		RotorRadius:          0.4,
		InducedCorrection:    0.1,
		Weight:               20,
		TipSpeed:             120,
		HoverInducedVelocity: 4.03,
		FuselageDrag:         0.6,
	}
}

// Power returns the propulsion power in W needed to fly at speed m/s.
func (m RotorModel) Power(speed float64) float64 {
	p0 := m.ProfileDrag / 8 * m.AirDensity * m.Solidity * m.DiscArea *
		math.Pow(m.BladeAngularVelocity, 3) * math.Pow(m.RotorRadius, 3)
	pi := (1 + m.InducedCorrection) * math.Pow(m.Weight, 1.5) / math.Sqrt(2*m.AirDensity*m.DiscArea)

	v2 := speed * speed
	v04 := math.Pow(m.HoverInducedVelocity, 4)
	blade := p0 * (1 + 3*v2/(m.TipSpeed*m.TipSpeed))
	induced := pi * math.Sqrt(math.Sqrt(1+v2*v2/(4*v04))-v2/(2*m.HoverInducedVelocity*m.HoverInducedVelocity))
	parasite := 0.5 * m.FuselageDrag * m.AirDensity * m.Solidity * m.DiscArea * v2 * speed
	return blade + induced + parasite
}

// SpeedSource reports the current flight speed in m/s.
type SpeedSource interface {
	Speed() float64
}

// Battery stores a drone's residual energy in joules. With propulsion
// attached it also drains the flight power periodically once started.
type Battery struct {
	initial  float64
	residual float64
	consumed float64

	sched    *engine.Scheduler
	owner    int
	rotor    RotorModel
	speed    SpeedSource
	interval time.Duration
}

// NewBattery returns a full battery holding joules.
func NewBattery(joules float64) *Battery {
	return &Battery{initial: joules, residual: joules}
}

// WithPropulsion drains rotor power at the speed reported by src every interval.
func (b *Battery) WithPropulsion(sched *engine.Scheduler, owner int, rotor RotorModel, src SpeedSource, interval time.Duration) *Battery {
	b.sched = sched
	b.owner = owner
	b.rotor = rotor
	b.speed = src
	b.interval = interval
	return b
}

// Start begins the propulsion drain, if configured.
func (b *Battery) Start() {
	if b.sched == nil || b.interval <= 0 {
		return
	}
	dt := b.interval.Seconds()
	b.sched.Every(b.sched.Now()+b.interval, b.interval, engine.PhaseDefault, b.owner, func() bool {
		b.Consume(b.rotor.Power(b.speed.Speed()) * dt)
		return b.residual > 0
	})
}

// Residual returns the remaining energy. It never goes below zero.
func (b *Battery) Residual() float64 { return b.residual }

// Consumed returns the energy drawn so far.
func (b *Battery) Consumed() float64 { return b.consumed }

// Initial returns the capacity the battery started with.
func (b *Battery) Initial() float64 { return b.initial }

// Consume draws joules from the battery.
func (b *Battery) Consume(joules float64) {
	if joules <= 0 {
		return
	}
	if joules > b.residual {
		joules = b.residual
	}
	b.residual -= joules
	b.consumed += joules
}
