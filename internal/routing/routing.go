// Package routing provides the network layers a drone can run: GPSR
// (geographic), DSDV (proactive distance vector), GRAd (reactive gradient
// flooding) and Q-routing (learned per-neighbour delivery delay).
package routing

import (
	"fmt"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
)

// Protocol names accepted in configuration.
const (
	ProtocolGPSR     = "gpsr"
	ProtocolDSDV     = "dsdv"
	ProtocolGRAd     = "grad"
	ProtocolQRouting = "q_routing"
)

// Config holds routing timers and control packet sizes.
type Config struct {
	HelloInterval        time.Duration
	HelloJitterMin       time.Duration
	HelloJitterMax       time.Duration
	NeighborLifetime     time.Duration
	WaitingCheckInterval time.Duration
	EntryLifetime        time.Duration
	RequestBudget        int
	LearningRate         float64
	HelloLength          int // bits
	AckLength            int // bits
	SIFS                 time.Duration
}

// DefaultConfig returns half-second hellos and one-second neighbour entries.
func DefaultConfig() Config {
	return Config{
		HelloInterval:        500 * time.Millisecond,
		HelloJitterMin:       time.Millisecond,
		HelloJitterMax:       2 * time.Millisecond,
		NeighborLifetime:     time.Second,
		WaitingCheckInterval: 600 * time.Millisecond,
		EntryLifetime:        5 * time.Second,
		RequestBudget:        20,
		LearningRate:         0.5,
		HelloLength:          384,
		AckLength:            128,
		SIFS:                 28 * time.Microsecond,
	}
}

// Unicaster sends a frame straight to a neighbour, bypassing the MAC.
type Unicaster interface {
	Unicast(p *packet.Packet, to int) time.Duration
}

// New builds the named protocol for d.
func New(protocol string, d *node.Drone, radio Unicaster, cfg Config) (node.Router, error) {
	switch protocol {
	case ProtocolGPSR, "":
		return NewGPSR(d, radio, cfg), nil
	case ProtocolDSDV:
		return NewDSDV(d, radio, cfg), nil
	case ProtocolGRAd:
		return NewGRAd(d, cfg), nil
	case ProtocolQRouting:
		return NewQRouting(d, radio, cfg), nil
	default:
		return nil, fmt.Errorf("unknown routing protocol %q", protocol)
	}
}

// base is what every protocol shares: its drone, the ACK radio and the
// periodic processes.
type base struct {
	d     *node.Drone
	radio Unicaster
	cfg   Config
}

// every runs fn on the drone's timeline until the drone falls asleep.
func (b *base) every(interval time.Duration, fn func(now time.Duration)) {
	s := b.d.Network().Scheduler()
	s.Every(s.Now()+interval, interval, engine.PhaseDefault, b.d.ID(), func() bool {
		if b.d.Asleep() {
			return false
		}
		fn(s.Now())
		return true
	})
}

// startHellos queues the hello built by mk now and then every hello
// interval plus jitter.
func (b *base) startHellos(mk func() *packet.Packet) {
	s := b.d.Network().Scheduler()
	var hello func()
	hello = func() {
		if b.d.Asleep() {
			return
		}
		p := mk()
		b.d.Network().Metrics().ControlSent(b.d.ID(), p)
		b.d.Enqueue(p)
		s.After(b.cfg.HelloInterval+b.jitter(), b.d.ID(), hello)
	}
	s.At(s.Now(), engine.PhaseDefault, b.d.ID(), hello)
}

func (b *base) jitter() time.Duration {
	span := int64(b.cfg.HelloJitterMax - b.cfg.HelloJitterMin)
	if span <= 0 {
		return b.cfg.HelloJitterMin
	}
	return b.cfg.HelloJitterMin + time.Duration(b.d.Rand().Int63n(span+1))
}

func (b *base) newPacket(kind packet.Kind, dst int, length int) *packet.Packet {
	net := b.d.Network()
	return packet.New(net.Sequence().Next(), kind, b.d.ID(), dst, net.Now(), length, net.Config().PacketLifetime)
}

// acceptData delivers a data frame addressed to this drone or queues a copy
// for the next hop.
func (b *base) acceptData(p *packet.Packet) {
	cp := p.Clone()
	if cp.Dst == b.d.ID() {
		b.d.Network().Metrics().Delivered(b.d.ID(), cp)
		return
	}
	b.d.Enqueue(cp)
}

// ack answers a data frame after SIFS, provided the drone is still awake.
func (b *base) ack(acked *packet.Packet, to int, payload any) {
	net := b.d.Network()
	net.Scheduler().After(b.cfg.SIFS, b.d.ID(), func() {
		if b.d.Asleep() {
			return
		}
		a := b.newPacket(packet.KindAck, to, b.cfg.AckLength)
		a.Acked = acked
		a.NextHop = to
		a.Payload = payload
		b.radio.Unicast(a, to)
	})
}

// checkWaiting drops expired parked packets and requeues those routable.
func (b *base) checkWaiting(now time.Duration, routable func(p *packet.Packet) bool) {
	b.d.SweepWaiting(func(p *packet.Packet) node.WaitAction {
		if p.Expired(now) {
			return node.Drop
		}
		if routable(p) {
			return node.Requeue
		}
		return node.Keep
	})
}
