package node

import (
	"fmt"
	"time"

	"uavnet-sim/internal/packet"
)

// DispatchKey identifies one MAC attempt.
type DispatchKey struct {
	Node int
	Seq  uint64
}

func (k DispatchKey) String() string { return fmt.Sprintf("%d/%d", k.Node, k.Seq) }

// Dispatch is the handle a MAC uses for one transmission attempt. Finish
// releases the transceiver.
type Dispatch struct {
	Key       DispatchKey
	Packet    *packet.Packet
	StartedAt time.Duration

	drone    *Drone
	done     func()
	finished bool
}

// Finished reports whether Finish has been called.
func (d *Dispatch) Finished() bool { return d.finished }

// Finish marks the attempt complete and releases the transceiver.
func (d *Dispatch) Finish() {
	if d.finished {
		panic(fmt.Sprintf("node: dispatch %s finished twice", d.Key))
	}
	d.finished = true
	dr := d.drone
	delete(dr.dispatches, d.Key)
	dr.finished++
	dr.arbiter.Release()
	if d.done != nil {
		d.done()
	}
}

// PendingDispatches returns the number of MAC attempts not yet finished.
func (d *Drone) PendingDispatches() int { return len(d.dispatches) }

// FinishedDispatches returns the number of completed MAC attempts.
func (d *Drone) FinishedDispatches() uint64 { return d.finished }

// PacketComing queues p for the transceiver. Retransmissions from the MAC use
// this entry point.
func (d *Drone) PacketComing(p *packet.Packet) {
	d.packetComing(p, nil)
}

// packetComing acquires the transceiver in request order and hands p to the
// MAC under a fresh dispatch key. done runs once the MAC finishes or the
// attempt is abandoned.
func (d *Drone) packetComing(p *packet.Packet, done func()) {
	if d.asleep {
		d.net.metrics.Dropped(d.id, p, DropAsleep)
		if done != nil {
			done()
		}
		return
	}
	d.arbiter.Request(func(waited time.Duration) {
		now := d.Now()
		d.net.metrics.QueueDelay(d.id, waited)
		abandon := func(reason DropReason) {
			d.net.metrics.Dropped(d.id, p, reason)
			d.arbiter.Release()
			if done != nil {
				done()
			}
		}
		if d.asleep {
			abandon(DropAsleep)
			return
		}
		if p.IsData() && p.Attempts(d.id) >= d.net.cfg.MaxRetransmissions {
			abandon(DropRetryExhausted)
			return
		}
		if n := p.IncAttempts(d.id); p.IsData() && n > 0 {
			p.LastHopTxAt = now
		}
		d.dispatchSeq++
		disp := &Dispatch{
			Key:       DispatchKey{Node: d.id, Seq: d.dispatchSeq},
			Packet:    p,
			StartedAt: now,
			drone:     d,
			done:      done,
		}
		d.dispatches[disp.Key] = disp
		d.log.Debug("dispatch", "t", now, "key", disp.Key.String(), "packet", p.ID, "attempt", p.Attempts(d.id), "queued", waited)
		d.mac.Send(disp)
	})
}
