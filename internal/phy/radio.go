package phy

import (
	"time"

	"uavnet-sim/internal/geo"
	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
)

// Medium tracks which drones are on the air for carrier sensing.
type Medium struct {
	net          *node.Network
	sensingRange float64
	busyUntil    map[int]time.Duration
}

// NewMedium creates a medium where a transmission is sensed within sensingRange metres.
func NewMedium(net *node.Network, sensingRange float64) *Medium {
	return &Medium{net: net, sensingRange: sensingRange, busyUntil: make(map[int]time.Duration)}
}

// Busy reports whether any drone within sensing range of id, id included, is transmitting.
func (m *Medium) Busy(id int) bool {
	now := m.net.Now()
	at := m.net.Position(id)
	for tx, until := range m.busyUntil {
		if until <= now {
			continue
		}
		if tx == id || geo.Distance(at, m.net.Position(tx)) <= m.sensingRange {
			return true
		}
	}
	return false
}

// Transmitting reports whether id is on the air.
func (m *Medium) Transmitting(id int) bool {
	return m.busyUntil[id] > m.net.Now()
}

func (m *Medium) occupy(id int, d time.Duration) {
	until := m.net.Now() + d
	if until > m.busyUntil[id] {
		m.busyUntil[id] = until
	}
}

// Radio is a drone's transceiver front end. Every transmission costs
// airtime times transmit power from the drone's energy source.
type Radio struct {
	d       *node.Drone
	medium  *Medium
	txPower float64
}

// NewRadio attaches a radio to d.
func NewRadio(d *node.Drone, medium *Medium, txPower float64) *Radio {
	return &Radio{d: d, medium: medium, txPower: txPower}
}

// Busy reports whether the channel around this drone is occupied.
func (r *Radio) Busy() bool { return r.medium.Busy(r.d.ID()) }

// Unicast sends p to the inbox of drone to and returns the airtime.
func (r *Radio) Unicast(p *packet.Packet, to int) time.Duration {
	air := r.begin(p)
	net := r.d.Network()
	net.Deliver(to, p, r.d.ID())
	return air
}

// Broadcast sends p to the inbox of every other drone and returns the airtime.
func (r *Radio) Broadcast(p *packet.Packet) time.Duration {
	air := r.begin(p)
	net := r.d.Network()
	for _, other := range net.Drones() {
		if other.ID() == r.d.ID() {
			continue
		}
		net.Deliver(other.ID(), p, r.d.ID())
	}
	return air
}

func (r *Radio) begin(p *packet.Packet) time.Duration {
	net := r.d.Network()
	air := p.Airtime(net.Config().BitRate)
	r.d.Energy().Consume(air.Seconds() * r.txPower)
	r.medium.occupy(r.d.ID(), air)
	// retransmissions of the same frame do not add a hop
	if p.Attempts(r.d.ID()) <= 1 {
		p.IncTTL()
	}
	net.Metrics().Transmitted(r.d.ID(), p)
	r.d.Logger().Debug("transmit", "t", net.Now(), "packet", p.ID, "kind", p.Kind.String(), "next_hop", p.NextHop, "airtime", air)
	return air
}
