package routing

import (
	"sort"
	"time"

	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
)

// Route is one DSDV routing table entry.
type Route struct {
	Dst     int
	NextHop int
	Metric  int // hops
	Seq     uint64
	Updated time.Duration
}

// RouteTable is a destination-sequenced distance vector table. The entry
// for the owner never expires.
type RouteTable struct {
	self     int
	lifetime time.Duration
	routes   map[int]Route
	learned  bool
}

// NewRouteTable returns a table holding only the route to self.
func NewRouteTable(self int, lifetime time.Duration, now time.Duration) *RouteTable {
	t := &RouteTable{self: self, lifetime: lifetime, routes: make(map[int]Route)}
	t.routes[self] = Route{Dst: self, NextHop: self, Seq: 0, Updated: now}
	return t
}

// Advertise bumps the owner's sequence number by two and returns a copy of
// every route, ordered by destination.
func (t *RouteTable) Advertise(now time.Duration) []Route {
	own := t.routes[t.self]
	own.Seq += 2
	own.Updated = now
	t.routes[t.self] = own

	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dst < out[j].Dst })
	return out
}

// Merge applies the advertisement of neighbour from. A route is taken when
// the destination is new, its sequence number is fresher, or it is as fresh
// and shorter.
func (t *RouteTable) Merge(from int, adv []Route, now time.Duration) {
	for _, a := range adv {
		if a.Dst == t.self {
			continue
		}
		cand := Route{Dst: a.Dst, NextHop: from, Metric: a.Metric + 1, Seq: a.Seq, Updated: now}
		cur, ok := t.routes[a.Dst]
		switch {
		case !ok:
			t.learned = true
		case a.Seq > cur.Seq:
		case a.Seq == cur.Seq && cand.Metric < cur.Metric:
		default:
			continue
		}
		t.routes[a.Dst] = cand
	}
}

// Purge removes routes not refreshed within the lifetime.
func (t *RouteTable) Purge(now time.Duration) {
	for dst, r := range t.routes {
		if dst != t.self && r.Updated+t.lifetime < now {
			delete(t.routes, dst)
		}
	}
}

// NextHop returns the next hop towards dst, or self when there is none.
func (t *RouteTable) NextHop(dst int) int {
	r, ok := t.routes[dst]
	if !ok {
		return t.self
	}
	return r.NextHop
}

// Get returns the route to dst.
func (t *RouteTable) Get(dst int) (Route, bool) {
	r, ok := t.routes[dst]
	return r, ok
}

func (t *RouteTable) Len() int { return len(t.routes) }

// takeLearned reports whether a new destination appeared since the last call.
func (t *RouteTable) takeLearned() bool {
	l := t.learned
	t.learned = false
	return l
}

// DSDV is the destination-sequenced distance vector protocol (Perkins and
// Bhagwat, SIGCOMM 1994). Full tables ride on the periodic hellos.
type DSDV struct {
	base
	table *RouteTable
}

// NewDSDV attaches DSDV to d.
func NewDSDV(d *node.Drone, radio Unicaster, cfg Config) *DSDV {
	return &DSDV{
		base:  base{d: d, radio: radio, cfg: cfg},
		table: NewRouteTable(d.ID(), cfg.EntryLifetime, d.Now()),
	}
}

// Table exposes the routing table.
func (r *DSDV) Table() *RouteTable { return r.table }

// NeighborCount returns the number of one-hop destinations.
func (r *DSDV) NeighborCount() int {
	n := 0
	for _, rt := range r.table.routes {
		if rt.Metric == 1 {
			n++
		}
	}
	return n
}

func (r *DSDV) Start() {
	r.startHellos(func() *packet.Packet {
		p := r.newPacket(packet.KindHello, packet.NoNode, r.cfg.HelloLength)
		p.Position = r.d.Position()
		p.Payload = r.table.Advertise(r.d.Now())
		return p
	})
	r.every(r.cfg.WaitingCheckInterval, func(now time.Duration) {
		r.table.Purge(now)
		r.checkWaiting(now, func(p *packet.Packet) bool { return r.table.NextHop(p.Dst) != r.d.ID() })
	})
}

// NextHop looks the destination up in the table. The first lookup after a
// new destination was learned asks the drone to retry its waiting list.
func (r *DSDV) NextHop(p *packet.Packet) (bool, *packet.Packet, bool) {
	r.table.Purge(r.d.Now())
	notify := r.table.takeLearned()
	next := r.table.NextHop(p.Dst)
	if next == r.d.ID() {
		return false, p, notify
	}
	p.NextHop = next
	return true, p, notify
}

func (r *DSDV) Receive(p *packet.Packet, from int) {
	switch p.Kind {
	case packet.KindHello:
		if adv, ok := p.Payload.([]Route); ok {
			r.table.Merge(p.Src, adv, r.d.Now())
		}
	case packet.KindData:
		r.acceptData(p)
		r.ack(p, from, nil)
	case packet.KindAck:
		r.d.MAC().HandleAck(p, from)
	}
}
