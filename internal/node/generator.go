package node

import (
	"math"
	"time"

	"uavnet-sim/internal/packet"
)

func (d *Drone) startGenerator() {
	t := d.net.cfg.Traffic
	if t.Pattern == "" || t.Pattern == TrafficNone || len(d.net.drones) < 2 {
		return
	}
	var next func()
	next = func() {
		if d.asleep {
			return
		}
		d.generate()
		d.net.sched.After(d.interArrival(), d.id, next)
	}
	d.net.sched.After(d.interArrival(), d.id, next)
}

// generate creates one data packet for a random peer and queues it.
func (d *Drone) generate() *packet.Packet {
	cfg := d.net.cfg
	dst := d.rng.Intn(len(d.net.drones) - 1)
	if dst >= d.id {
		dst++
	}
	p := packet.New(d.net.seq.Next(), packet.KindData, d.id, dst, d.Now(), cfg.DataLength, cfg.PacketLifetime)
	d.net.metrics.Generated(p)
	d.log.Debug("generated", "t", d.Now(), "packet", p.ID, "dst", dst)
	d.Enqueue(p)
	return p
}

func (d *Drone) interArrival() time.Duration {
	t := d.net.cfg.Traffic
	switch t.Pattern {
	case TrafficPoisson:
		if t.Rate <= 0 {
			panic("node: poisson traffic needs a positive rate")
		}
		return time.Duration(math.Round(d.rng.ExpFloat64() / t.Rate * float64(time.Second)))
	default:
		span := int64(t.IntervalMax - t.IntervalMin)
		if span <= 0 {
			return t.IntervalMin
		}
		return t.IntervalMin + time.Duration(d.rng.Int63n(span+1))
	}
}
