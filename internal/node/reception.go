package node

import (
	"fmt"

	"uavnet-sim/internal/engine"
)

// startReception runs the reception pipeline in the reception phase so every
// inbox has received all transmissions started at the same instant.
func (d *Drone) startReception() {
	poll := d.net.cfg.PollInterval
	d.net.sched.Every(d.Now()+poll, poll, engine.PhaseReception, d.id, func() bool {
		if d.asleep {
			return false
		}
		d.receive()
		return true
	})
}

// receive performs one reception tick: garbage-collect the inbox, collect the
// signals that completed, resolve interference and deliver at most one winner.
func (d *Drone) receive() {
	now := d.Now()
	cfg := d.net.cfg
	m := d.net.metrics

	d.inbox.purge(now, cfg.BitRate, d.net.purgeHorizon())
	candidates := d.inbox.trigger(now, cfg.BitRate)
	if len(candidates) == 0 {
		return
	}

	interferers := d.net.interferers(candidates)
	sinr := d.net.channel.SINR(d.id, candidates, interferers, d.net.Position)
	if len(sinr) != len(candidates) {
		panic(fmt.Sprintf("node: channel returned %d sinr values for %d candidates", len(sinr), len(candidates)))
	}

	best := 0
	for i := range sinr {
		if sinr[i] > sinr[best] {
			best = i
		}
	}
	if sinr[best] < cfg.SINRThreshold {
		for _, c := range candidates {
			m.Collision(d.id, c.Packet, c.Transmitter)
		}
		d.log.Debug("collision", "t", now, "candidates", len(candidates), "max_sinr", sinr[best])
		return
	}
	for i, c := range candidates {
		if i != best {
			m.Collision(d.id, c.Packet, c.Transmitter)
		}
	}

	w := candidates[best]
	if w.Packet.TTL() > cfg.MaxTTL {
		m.Dropped(d.id, w.Packet, DropTTL)
		return
	}
	m.Received(d.id, w.Packet, w.Transmitter)
	d.log.Debug("received", "t", now, "packet", w.Packet.ID, "kind", w.Packet.Kind.String(), "from", w.Transmitter, "sinr", sinr[best])
	d.router.Receive(w.Packet, w.Transmitter)
}
