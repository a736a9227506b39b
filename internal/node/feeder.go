package node

import (
	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/packet"
)

// startFeeder polls the transmit queue. While a packet it handed over is
// still with the transceiver, the feeder stays blocked.
func (d *Drone) startFeeder() {
	poll := d.net.cfg.PollInterval
	d.net.sched.Every(d.Now()+poll, poll, engine.PhaseDefault, d.id, func() bool {
		if d.asleep {
			return false
		}
		if d.feeding || len(d.queue) == 0 {
			return true
		}
		p := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.feed(p)
		return true
	})
}

func (d *Drone) feed(p *packet.Packet) {
	now := d.Now()
	m := d.net.metrics
	if p.Expired(now) {
		m.Dropped(d.id, p, DropExpired)
		return
	}
	if !p.IsData() {
		d.handOff(p)
		return
	}
	if p.Attempts(d.id) >= d.net.cfg.MaxRetransmissions {
		m.Dropped(d.id, p, DropRetryExhausted)
		return
	}
	hasRoute, out, notify := d.router.NextHop(p)
	if hasRoute && out == nil {
		panic("node: router reported a route without a packet")
	}
	if hasRoute {
		d.handOff(out)
	} else {
		d.waiting = append(d.waiting, p)
		d.log.Debug("no route", "t", now, "packet", p.ID, "dst", p.Dst)
	}
	if notify {
		d.FlushWaiting()
	}
}

func (d *Drone) handOff(p *packet.Packet) {
	d.feeding = true
	d.packetComing(p, func() { d.feeding = false })
}
