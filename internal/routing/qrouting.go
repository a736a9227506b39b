package routing

import (
	"math"
	"time"

	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
)

// initialQ is the delivery delay assumed for a pair never tried, in seconds.
const initialQ = 0.03

// QTable holds the estimated delivery delay, in seconds, of handing a
// packet for dst to neighbour next.
type QTable struct {
	values map[[2]int]float64
}

func NewQTable() *QTable { return &QTable{values: make(map[[2]int]float64)} }

// Get returns Q(next, dst).
func (t *QTable) Get(next, dst int) float64 {
	if v, ok := t.values[[2]int{next, dst}]; ok {
		return v
	}
	return initialQ
}

// Update moves Q(next, dst) towards sample by rate.
func (t *QTable) Update(next, dst int, rate, sample float64) {
	t.values[[2]int{next, dst}] = (1-rate)*t.Get(next, dst) + rate*sample
}

// Feedback is what a Q-routing ACK carries back to the previous hop: the
// receiver's own best estimate towards the destination.
type Feedback struct {
	MinQ float64
}

// QRouting is Q-routing (Boyan and Littman, NIPS 1993). Each drone learns,
// per neighbour and destination, how long delivery takes and forwards to
// the neighbour with the lowest estimate. Early in the run it explores a
// random neighbour with probability 0.9 * 0.5^t, t in seconds.
type QRouting struct {
	base
	neighbors *NeighborTable
	q         *QTable
}

// NewQRouting attaches Q-routing to d.
func NewQRouting(d *node.Drone, radio Unicaster, cfg Config) *QRouting {
	return &QRouting{
		base:      base{d: d, radio: radio, cfg: cfg},
		neighbors: NewNeighborTable(cfg.NeighborLifetime),
		q:         NewQTable(),
	}
}

// QTable exposes the learned estimates.
func (r *QRouting) QTable() *QTable { return r.q }

// NeighborCount returns the number of neighbours currently known.
func (r *QRouting) NeighborCount() int { return r.neighbors.Len() }

func (r *QRouting) Start() {
	r.startHellos(func() *packet.Packet {
		p := r.newPacket(packet.KindHello, packet.NoNode, r.cfg.HelloLength)
		p.Position = r.d.Position()
		return p
	})
	r.every(r.cfg.WaitingCheckInterval, func(now time.Duration) {
		r.neighbors.Purge(now)
		r.checkWaiting(now, func(*packet.Packet) bool { return r.neighbors.Len() > 0 })
	})
}

// best returns the next hop for dst, or self without neighbours. Ties on
// the lowest estimate are broken at random.
func (r *QRouting) best(dst int) int {
	nbs := r.neighbors.Neighbors()
	if len(nbs) == 0 {
		return r.d.ID()
	}
	rng := r.d.Rand()
	if rng.Float64() < 0.9*math.Pow(0.5, r.d.Now().Seconds()) {
		return nbs[rng.Intn(len(nbs))].ID
	}
	var ties []int
	bestQ := math.Inf(1)
	for _, n := range nbs {
		switch v := r.q.Get(n.ID, dst); {
		case v < bestQ:
			bestQ = v
			ties = append(ties[:0], n.ID)
		case v == bestQ:
			ties = append(ties, n.ID)
		}
	}
	return ties[rng.Intn(len(ties))]
}

// minQ is this drone's best estimate towards dst over its neighbours.
func (r *QRouting) minQ(dst int) float64 {
	m := math.Inf(1)
	for _, n := range r.neighbors.Neighbors() {
		m = math.Min(m, r.q.Get(n.ID, dst))
	}
	if math.IsInf(m, 1) {
		return initialQ
	}
	return m
}

func (r *QRouting) NextHop(p *packet.Packet) (bool, *packet.Packet, bool) {
	r.neighbors.Purge(r.d.Now())
	next := r.best(p.Dst)
	if next == r.d.ID() {
		return false, p, false
	}
	p.NextHop = next
	return true, p, false
}

func (r *QRouting) Receive(p *packet.Packet, from int) {
	switch p.Kind {
	case packet.KindHello:
		r.neighbors.Add(p.Src, p.Position, r.d.Now())
	case packet.KindData:
		r.acceptData(p)
		r.neighbors.Purge(r.d.Now())
		r.ack(p, from, Feedback{MinQ: r.minQ(p.Dst)})
	case packet.KindAck:
		r.d.MAC().HandleAck(p, from)
		if fb, ok := p.Payload.(Feedback); ok && p.Acked != nil {
			r.learn(p.Acked, from, fb)
		}
	}
}

// learn updates Q(from, dst) with the delay the packet spent here from
// entering the queue to its ACK, plus the neighbour's own estimate unless
// the neighbour was the destination.
func (r *QRouting) learn(acked *packet.Packet, from int, fb Feedback) {
	sample := (r.d.Now() - acked.EnqueuedAt).Seconds()
	if from != acked.Dst {
		sample += fb.MinQ
	}
	r.q.Update(from, acked.Dst, r.cfg.LearningRate, sample)
}
