package mac

import (
	"time"

	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
)

// PureAloha transmits as soon as it holds the transceiver. After an ACK
// timeout it retries following a random number of timeouts drawn from
// [0, 2^attempt].
type PureAloha struct {
	d     *node.Drone
	radio Radio
	cfg   Config
	acks  *acks
}

// NewPureAloha attaches pure ALOHA to d.
func NewPureAloha(d *node.Drone, radio Radio, cfg Config) *PureAloha {
	return &PureAloha{d: d, radio: radio, cfg: cfg, acks: newAcks(d, cfg.AckTimeout)}
}

// Outstanding returns the number of unicasts waiting for an ACK.
func (a *PureAloha) Outstanding() int { return a.acks.Outstanding() }

func (a *PureAloha) Send(dp *node.Dispatch) {
	p := dp.Packet
	var air time.Duration
	if p.Mode == packet.Unicast {
		if p.IsData() {
			a.acks.wait(p, a.retry)
		}
		air = a.radio.Unicast(p, p.NextHop)
	} else {
		air = a.radio.Broadcast(p)
	}
	a.d.Network().Scheduler().After(air, a.d.ID(), dp.Finish)
}

func (a *PureAloha) retry(p *packet.Packet) {
	attempt := p.Attempts(a.d.ID())
	if attempt >= a.cfg.MaxRetransmissions {
		exhausted(a.d, p)
		return
	}
	if attempt > 30 {
		attempt = 30
	}
	wait := time.Duration(a.d.Rand().Intn(1<<uint(attempt)+1)) * a.cfg.AckTimeout
	a.d.Network().Scheduler().After(wait, a.d.ID(), func() { a.d.PacketComing(p) })
}

func (a *PureAloha) HandleAck(ack *packet.Packet, from int) { a.acks.resolve(ack, from) }
