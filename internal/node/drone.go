package node

import (
	"log/slog"
	"math/rand"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/geo"
	"uavnet-sim/internal/packet"
)

// Drone is one node of the network. All methods must be called from the
// scheduler's goroutine.
type Drone struct {
	id       int
	net      *Network
	log      *slog.Logger
	rng      *rand.Rand
	mobility Mobility
	energy   EnergySource
	router   Router
	mac      MAC

	queue   []*packet.Packet
	waiting []*packet.Packet
	inbox   *Inbox

	arbiter     *engine.Resource
	dispatchSeq uint64
	dispatches  map[DispatchKey]*Dispatch
	finished    uint64

	feeding bool
	asleep  bool
	started bool
}

// Install sets the routing and MAC layers. It must be called before Start.
func (d *Drone) Install(r Router, m MAC) {
	if d.started {
		panic("node: install after start")
	}
	d.router = r
	d.mac = m
}

// Start schedules the generator, feeder, energy monitor and reception
// pipeline, plus any installed collaborator that implements Starter.
func (d *Drone) Start() {
	if d.started {
		return
	}
	if d.router == nil || d.mac == nil {
		panic("node: start without router or mac")
	}
	d.started = true
	for _, c := range []any{d.mobility, d.energy, d.mac, d.router} {
		if s, ok := c.(Starter); ok {
			s.Start()
		}
	}
	d.startGenerator()
	d.startFeeder()
	d.startEnergyMonitor()
	d.startReception()
}

func (d *Drone) ID() int                   { return d.id }
func (d *Drone) Network() *Network         { return d.net }
func (d *Drone) Logger() *slog.Logger      { return d.log }
func (d *Drone) Rand() *rand.Rand          { return d.rng }
func (d *Drone) Router() Router            { return d.router }
func (d *Drone) MAC() MAC                  { return d.mac }
func (d *Drone) Energy() EnergySource      { return d.energy }
func (d *Drone) Inbox() *Inbox             { return d.inbox }
func (d *Drone) Now() time.Duration        { return d.net.sched.Now() }
func (d *Drone) Position() geo.Vec3        { return d.mobility.Position() }
func (d *Drone) Velocity() geo.Vec3        { return d.mobility.Velocity() }
func (d *Drone) Arbiter() *engine.Resource { return d.arbiter }

// Asleep reports whether the drone has entered its terminal sleep state.
func (d *Drone) Asleep() bool { return d.asleep }

// Sleep puts the drone to sleep for the rest of the run. It cannot be undone.
func (d *Drone) Sleep() {
	if d.asleep {
		return
	}
	d.asleep = true
	d.inbox.discard()
	d.inbox.purge(d.Now(), d.net.cfg.BitRate, d.net.purgeHorizon())
	d.net.metrics.Slept(d.id)
	d.log.Info("drone asleep", "t", d.Now(), "residual", d.energy.Residual())
}

// Enqueue appends p to the transmit queue.
func (d *Drone) Enqueue(p *packet.Packet) {
	p.EnqueuedAt = d.Now()
	d.queue = append(d.queue, p)
}

// QueueLen returns the transmit queue length.
func (d *Drone) QueueLen() int { return len(d.queue) }

// WaitingLen returns the number of packets parked for lack of a route.
func (d *Drone) WaitingLen() int { return len(d.waiting) }

// FlushWaiting moves every waiting packet back into the transmit queue.
func (d *Drone) FlushWaiting() {
	d.queue = append(d.queue, d.waiting...)
	d.waiting = nil
}

// WaitAction is the verdict returned by a waiting-list sweep.
type WaitAction int

const (
	Keep WaitAction = iota
	Requeue
	Drop
)

// SweepWaiting applies fn to every waiting packet in order. Requeued packets
// move to the transmit queue and dropped packets are reported as expired.
func (d *Drone) SweepWaiting(fn func(p *packet.Packet) WaitAction) {
	kept := d.waiting[:0]
	for _, p := range d.waiting {
		switch fn(p) {
		case Requeue:
			d.queue = append(d.queue, p)
		case Drop:
			d.net.metrics.Dropped(d.id, p, DropExpired)
		default:
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(d.waiting); i++ {
		d.waiting[i] = nil
	}
	d.waiting = kept
}

func (d *Drone) startEnergyMonitor() {
	cfg := d.net.cfg
	d.net.sched.Every(d.Now(), cfg.EnergyCheckInterval, engine.PhaseDefault, d.id, func() bool {
		if !d.asleep && d.energy.Residual() <= cfg.EnergyThreshold {
			d.Sleep()
		}
		return true
	})
}
