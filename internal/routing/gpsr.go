package routing

import (
	"time"

	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
)

// GPSR is greedy geographic forwarding (Karp and Kung, MobiCom 2000) on
// neighbour positions learned from periodic hello broadcasts.
type GPSR struct {
	base
	table *NeighborTable
}

// NewGPSR attaches GPSR to d.
func NewGPSR(d *node.Drone, radio Unicaster, cfg Config) *GPSR {
	return &GPSR{base: base{d: d, radio: radio, cfg: cfg}, table: NewNeighborTable(cfg.NeighborLifetime)}
}

// Table exposes the neighbour table.
func (g *GPSR) Table() *NeighborTable { return g.table }

// NeighborCount returns the number of neighbours currently known.
func (g *GPSR) NeighborCount() int { return g.table.Len() }

// Start schedules the hello broadcasts and the waiting-list check.
func (g *GPSR) Start() {
	g.startHellos(func() *packet.Packet {
		p := g.newPacket(packet.KindHello, packet.NoNode, g.cfg.HelloLength)
		p.Position = g.d.Position()
		return p
	})
	g.every(g.cfg.WaitingCheckInterval, func(now time.Duration) {
		g.table.Purge(now)
		g.checkWaiting(now, func(p *packet.Packet) bool { return g.best(p) != g.d.ID() })
	})
}

func (g *GPSR) best(p *packet.Packet) int {
	return g.table.Best(g.d.ID(), g.d.Position(), g.d.Network().Position(p.Dst))
}

// NextHop chooses the neighbour closest to the destination.
func (g *GPSR) NextHop(p *packet.Packet) (bool, *packet.Packet, bool) {
	g.table.Purge(g.d.Now())
	next := g.best(p)
	if next == g.d.ID() {
		return false, p, false
	}
	p.NextHop = next
	return true, p, false
}

// Receive handles hellos, data and ACKs accepted by the drone.
func (g *GPSR) Receive(p *packet.Packet, from int) {
	switch p.Kind {
	case packet.KindHello:
		g.table.Add(p.Src, p.Position, g.d.Now())
	case packet.KindData:
		g.acceptData(p)
		g.ack(p, from, nil)
	case packet.KindAck:
		g.d.MAC().HandleAck(p, from)
	}
}
