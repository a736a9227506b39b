package routing

import (
	"time"

	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
)

// MessageType is the role of a GRAd message.
type MessageType int

const (
	MsgData MessageType = iota
	MsgRequest
	MsgReply
)

func (t MessageType) String() string {
	switch t {
	case MsgData:
		return "data"
	case MsgRequest:
		return "request"
	case MsgReply:
		return "reply"
	}
	return "unknown"
}

// Message is the payload of every GRAd frame. Relays never change
// Originator, Target or Seq.
type Message struct {
	Type       MessageType
	Originator int
	Target     int
	Seq        uint64
	Accrued    int // hops travelled so far
	Remaining  int // hops the message may still travel
	Data       *packet.Packet
}

// Cost is what a drone knows about reaching one remote drone.
type Cost struct {
	Seq     uint64
	Hops    int
	Updated time.Duration
}

// CostTable records the best known cost towards every originator heard.
type CostTable struct {
	self     int
	lifetime time.Duration
	costs    map[int]Cost
}

// NewCostTable returns an empty table whose entries live for lifetime.
func NewCostTable(self int, lifetime time.Duration) *CostTable {
	return &CostTable{self: self, lifetime: lifetime, costs: make(map[int]Cost)}
}

// Update learns from a message that reached this drone. A fresher sequence
// number replaces the entry; the same one can only lower the cost.
func (t *CostTable) Update(m *Message, now time.Duration) {
	if m.Originator == t.self {
		return
	}
	cur, ok := t.costs[m.Originator]
	switch {
	case !ok || cur.Seq < m.Seq:
		t.costs[m.Originator] = Cost{Seq: m.Seq, Hops: m.Accrued, Updated: now}
	case m.Accrued < cur.Hops:
		cur.Hops = m.Accrued
		cur.Updated = now
		t.costs[m.Originator] = cur
	}
}

// Purge removes entries not refreshed within the lifetime.
func (t *CostTable) Purge(now time.Duration) {
	for id, c := range t.costs {
		if c.Updated+t.lifetime < now {
			delete(t.costs, id)
		}
	}
}

// Get returns the cost entry for target.
func (t *CostTable) Get(target int) (Cost, bool) {
	c, ok := t.costs[target]
	return c, ok
}

func (t *CostTable) Len() int { return len(t.costs) }

// GRAd is gradient routing (Poor, 2000). Every frame is broadcast; a relay
// forwards data or a reply only when its own cost to the target fits in the
// remaining budget, so copies roll down the cost gradient. Unknown targets
// are discovered by a flooded request answered with a reply.
type GRAd struct {
	d         *node.Drone
	cfg       Config
	table     *CostTable
	seen      map[uint64]time.Duration
	requested map[int]time.Duration
	learned   bool
}

// NewGRAd attaches GRAd to d. GRAd needs no link-layer ACKs.
func NewGRAd(d *node.Drone, cfg Config) *GRAd {
	return &GRAd{
		d:         d,
		cfg:       cfg,
		table:     NewCostTable(d.ID(), cfg.EntryLifetime),
		seen:      make(map[uint64]time.Duration),
		requested: make(map[int]time.Duration),
	}
}

// Table exposes the cost table.
func (g *GRAd) Table() *CostTable { return g.table }

// Start schedules the waiting-list check.
func (g *GRAd) Start() {
	b := base{d: g.d, cfg: g.cfg}
	b.every(g.cfg.WaitingCheckInterval, func(now time.Duration) {
		g.table.Purge(now)
		for id, at := range g.seen {
			if at+g.cfg.EntryLifetime < now {
				delete(g.seen, id)
			}
		}
		b.checkWaiting(now, func(p *packet.Packet) bool {
			_, ok := g.table.Get(p.Dst)
			return ok
		})
	})
}

func (g *GRAd) message(t MessageType, target, length int, m Message) *packet.Packet {
	net := g.d.Network()
	p := packet.New(net.Sequence().Next(), packet.KindControl, g.d.ID(), target, net.Now(), length, net.Config().PacketLifetime)
	p.Mode = packet.Broadcast
	m.Type = t
	m.Originator = g.d.ID()
	m.Target = target
	m.Seq = p.ID
	p.Payload = &m
	// never relay our own flood
	g.seen[p.ID] = net.Now()
	return p
}

// NextHop wraps a data packet for a known target into a broadcast data
// message. For an unknown target it floods a request, at most once per
// waiting-check interval, and leaves the packet to wait. The first lookup
// after a reply arrived asks the drone to retry its waiting list.
func (g *GRAd) NextHop(p *packet.Packet) (bool, *packet.Packet, bool) {
	now := g.d.Now()
	g.table.Purge(now)
	notify := g.learned
	g.learned = false

	if c, ok := g.table.Get(p.Dst); ok {
		msg := g.message(MsgData, p.Dst, p.Length, Message{Remaining: c.Hops, Data: p})
		msg.Deadline = p.Deadline
		return true, msg, notify
	}
	if at, ok := g.requested[p.Dst]; !ok || now-at >= g.cfg.WaitingCheckInterval {
		g.requested[p.Dst] = now
		req := g.message(MsgRequest, p.Dst, g.cfg.HelloLength, Message{Remaining: g.cfg.RequestBudget})
		g.d.Network().Metrics().ControlSent(g.d.ID(), req)
		g.d.Enqueue(req)
	}
	return false, p, notify
}

// relay queues a copy of the message once, while budget remains.
func (g *GRAd) relay(p *packet.Packet, m *Message, control bool) {
	if m.Remaining <= 0 {
		return
	}
	if _, dup := g.seen[p.ID]; dup {
		return
	}
	g.seen[p.ID] = g.d.Now()
	cp := p.Clone()
	cp.Payload = m
	if control {
		g.d.Network().Metrics().ControlSent(g.d.ID(), cp)
	}
	g.d.Enqueue(cp)
}

// fits reports whether this drone is downhill towards target for m.
func (g *GRAd) fits(target int, m *Message) bool {
	c, ok := g.table.Get(target)
	return ok && c.Hops <= m.Remaining
}

func (g *GRAd) Receive(p *packet.Packet, from int) {
	in, ok := p.Payload.(*Message)
	if !ok {
		return
	}
	now := g.d.Now()
	m := *in
	m.Remaining--
	m.Accrued++
	g.table.Update(&m, now)

	self := g.d.ID()
	switch m.Type {
	case MsgRequest:
		if m.Target != self {
			g.relay(p, &m, true)
			return
		}
		if _, dup := g.seen[p.ID]; dup {
			return
		}
		g.seen[p.ID] = now
		c, _ := g.table.Get(m.Originator)
		reply := g.message(MsgReply, m.Originator, g.cfg.HelloLength, Message{Remaining: c.Hops})
		g.d.Network().Metrics().ControlSent(self, reply)
		g.d.Enqueue(reply)
	case MsgData:
		if m.Data.Dst == self {
			if _, dup := g.seen[p.ID]; dup {
				return
			}
			g.seen[p.ID] = now
			data := m.Data.Clone()
			data.SetTTL(p.TTL())
			g.d.Network().Metrics().Delivered(self, data)
			return
		}
		if g.fits(m.Data.Dst, &m) {
			g.relay(p, &m, false)
		}
	case MsgReply:
		if m.Target == self {
			delete(g.requested, m.Originator)
			g.learned = true
			return
		}
		if g.fits(m.Target, &m) {
			g.relay(p, &m, true)
		}
	}
}
