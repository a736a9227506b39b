// Package mac implements the medium access protocols a drone can run on top
// of its radio: CSMA/CA and pure ALOHA, both with stop-and-wait ACKs.
package mac

import (
	"fmt"
	"time"

	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
)

// Protocol names accepted in configuration.
const (
	ProtocolCSMACA    = "csma_ca"
	ProtocolPureAloha = "pure_aloha"
)

// Config holds the 802.11-style timing constants.
type Config struct {
	SlotDuration       time.Duration
	SIFS               time.Duration
	DIFS               time.Duration
	CWMin              int
	CWMax              int
	AckTimeout         time.Duration
	MaxRetransmissions int
}

// DefaultConfig returns the timings used by the reference scenario.
func DefaultConfig() Config {
	return Config{
		SlotDuration:       50 * time.Microsecond,
		SIFS:               28 * time.Microsecond,
		DIFS:               128 * time.Microsecond,
		CWMin:              16,
		CWMax:              1024,
		AckTimeout:         1000 * time.Microsecond,
		MaxRetransmissions: 5,
	}
}

// Radio is the transceiver a MAC drives.
type Radio interface {
	Busy() bool
	Unicast(p *packet.Packet, to int) time.Duration
	Broadcast(p *packet.Packet) time.Duration
}

// New builds the named protocol for d.
func New(protocol string, d *node.Drone, radio Radio, cfg Config) (node.MAC, error) {
	switch protocol {
	case ProtocolCSMACA, "":
		return NewCSMACA(d, radio, cfg), nil
	case ProtocolPureAloha:
		return NewPureAloha(d, radio, cfg), nil
	default:
		return nil, fmt.Errorf("unknown mac protocol %q", protocol)
	}
}

// ackWait is an outstanding unicast waiting for its ACK.
type ackWait struct {
	p         *packet.Packet
	cancelled bool
}

// acks tracks the ACK timers of one drone, keyed by packet id.
type acks struct {
	d       *node.Drone
	timeout time.Duration
	waits   map[uint64]*ackWait
}

func newAcks(d *node.Drone, timeout time.Duration) *acks {
	return &acks{d: d, timeout: timeout, waits: make(map[uint64]*ackWait)}
}

// wait arms the ACK timer for p. onTimeout runs if no ACK arrives in time.
func (a *acks) wait(p *packet.Packet, onTimeout func(p *packet.Packet)) {
	if old, ok := a.waits[p.ID]; ok {
		old.cancelled = true
	}
	w := &ackWait{p: p}
	a.waits[p.ID] = w
	a.d.Network().Scheduler().After(a.timeout, a.d.ID(), func() {
		if w.cancelled {
			return
		}
		delete(a.waits, p.ID)
		a.d.Logger().Debug("ack timeout", "t", a.d.Now(), "packet", p.ID, "attempt", p.Attempts(a.d.ID()))
		onTimeout(p)
	})
}

// resolve cancels the timer acknowledged by ack and records the MAC delay.
func (a *acks) resolve(ack *packet.Packet, from int) {
	if ack.Acked == nil {
		return
	}
	w, ok := a.waits[ack.Acked.ID]
	if !ok {
		return
	}
	w.cancelled = true
	delete(a.waits, ack.Acked.ID)
	now := a.d.Now()
	a.d.Network().Metrics().MACDelay(a.d.ID(), now-w.p.LastHopTxAt)
	a.d.Logger().Debug("ack received", "t", now, "packet", w.p.ID, "from", from)
}

// Outstanding returns the number of unicasts still waiting for an ACK.
func (a *acks) Outstanding() int { return len(a.waits) }

// exhausted reports a data packet that ran out of attempts at this drone.
func exhausted(d *node.Drone, p *packet.Packet) {
	d.Network().Metrics().Dropped(d.ID(), p, node.DropRetryExhausted)
	d.Logger().Debug("retransmissions exhausted", "t", d.Now(), "packet", p.ID)
}
