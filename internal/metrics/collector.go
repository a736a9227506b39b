// Package metrics aggregates network performance counters for a run.
package metrics

import (
	"sync"
	"time"

	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
	"uavnet-sim/internal/telemetry"
)

// Summary is the network-level view of a run.
type Summary struct {
	Generated      int            `json:"generated"`
	Delivered      int            `json:"delivered"`
	Transmitted    int            `json:"transmitted"`
	Received       int            `json:"received"`
	Collisions     int            `json:"collisions"`
	ControlPackets int            `json:"control_packets"`
	Drops          map[string]int `json:"drops"`
	Sleeping       int            `json:"sleeping"`
	PDR            float64        `json:"pdr"` // percent
	E2EDelayMS     float64        `json:"e2e_delay_ms"`
	RoutingLoad    float64        `json:"routing_load"`
	ThroughputKbps float64        `json:"throughput_kbps"`
	HopCount       float64        `json:"hop_count"`
	MACDelayMS     float64        `json:"mac_delay_ms"`
	QueueDelayMS   float64        `json:"queue_delay_ms"`
}

// Row converts the summary into a telemetry sample.
func (s Summary) Row(runID string, simTime time.Duration, ts time.Time) telemetry.MetricsRow {
	return telemetry.MetricsRow{
		RunID:          runID,
		SimTime:        simTime.Seconds(),
		Generated:      s.Generated,
		Delivered:      s.Delivered,
		Collisions:     s.Collisions,
		ControlPackets: s.ControlPackets,
		DropsTTL:       s.Drops[string(node.DropTTL)],
		DropsRetry:     s.Drops[string(node.DropRetryExhausted)],
		DropsExpired:   s.Drops[string(node.DropExpired)],
		DropsAsleep:    s.Drops[string(node.DropAsleep)],
		PDR:            s.PDR,
		E2EDelayMS:     s.E2EDelayMS,
		RoutingLoad:    s.RoutingLoad,
		ThroughputKbps: s.ThroughputKbps,
		HopCount:       s.HopCount,
		MACDelayMS:     s.MACDelayMS,
		Sleeping:       s.Sleeping,
		Timestamp:      ts,
	}
}

type delivery struct {
	delay time.Duration
	bits  int
	hops  int
}

// Collector implements node.Metrics. It is safe for concurrent readers while
// the simulation goroutine records events.
type Collector struct {
	mu sync.Mutex

	runID string
	clock func() time.Duration
	base  time.Time
	sink  func(telemetry.PacketEventRow)

	generated   int
	transmitted int
	received    int
	collisions  int
	control     int
	drops       map[node.DropReason]int
	delivered   map[uint64]delivery
	macDelays   []time.Duration
	queueDelay  time.Duration
	queueCount  int
	slept       map[int]time.Duration
	perNodeTx   map[int]int
	perNodeRecv map[int]int
}

// NewCollector creates a collector reading virtual time from clock. Rows
// are stamped base plus the virtual time.
func NewCollector(runID string, clock func() time.Duration, base time.Time) *Collector {
	return &Collector{
		runID:       runID,
		clock:       clock,
		base:        base,
		drops:       make(map[node.DropReason]int),
		delivered:   make(map[uint64]delivery),
		slept:       make(map[int]time.Duration),
		perNodeTx:   make(map[int]int),
		perNodeRecv: make(map[int]int),
	}
}

// OnEvent registers fn to receive every packet event. fn runs on the
// simulation goroutine and must not block.
func (c *Collector) OnEvent(fn func(telemetry.PacketEventRow)) {
	c.mu.Lock()
	c.sink = fn
	c.mu.Unlock()
}

func (c *Collector) emit(n int, event string, p *packet.Packet, peer int, fill func(*telemetry.PacketEventRow)) {
	if c.sink == nil {
		return
	}
	now := c.clock()
	row := telemetry.PacketEventRow{
		RunID:     c.runID,
		NodeID:    n,
		Event:     event,
		Peer:      peer,
		Src:       packet.NoNode,
		Dst:       packet.NoNode,
		SimTime:   now.Seconds(),
		Timestamp: c.base.Add(now),
	}
	if p != nil {
		row.PacketID = p.ID
		row.Kind = p.Kind.String()
		row.Src = p.Src
		row.Dst = p.Dst
		row.Hops = p.TTL()
	}
	if fill != nil {
		fill(&row)
	}
	c.sink(row)
}

func (c *Collector) Generated(p *packet.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generated++
	c.emit(p.Src, telemetry.EventGenerated, p, packet.NoNode, nil)
}

func (c *Collector) Transmitted(n int, p *packet.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transmitted++
	c.perNodeTx[n]++
	c.emit(n, telemetry.EventTransmitted, p, p.NextHop, nil)
}

func (c *Collector) Received(n int, p *packet.Packet, from int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received++
	c.perNodeRecv[n]++
	c.emit(n, telemetry.EventReceived, p, from, nil)
}

func (c *Collector) Collision(n int, p *packet.Packet, from int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collisions++
	c.emit(n, telemetry.EventCollision, p, from, nil)
}

func (c *Collector) Dropped(n int, p *packet.Packet, reason node.DropReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drops[reason]++
	c.emit(n, telemetry.EventDropped, p, packet.NoNode, func(r *telemetry.PacketEventRow) {
		r.Reason = string(reason)
	})
}

// Delivered counts p once per packet id, however many copies arrive.
func (c *Collector) Delivered(n int, p *packet.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.delivered[p.ID]; dup {
		return
	}
	d := delivery{delay: c.clock() - p.CreatedAt, bits: p.Length, hops: p.TTL()}
	c.delivered[p.ID] = d
	c.emit(n, telemetry.EventDelivered, p, packet.NoNode, func(r *telemetry.PacketEventRow) {
		r.Delay = float64(d.delay) / float64(time.Millisecond)
	})
}

func (c *Collector) ControlSent(n int, p *packet.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.control++
	c.emit(n, telemetry.EventControl, p, packet.NoNode, nil)
}

func (c *Collector) QueueDelay(_ int, d time.Duration) {
	c.mu.Lock()
	c.queueDelay += d
	c.queueCount++
	c.mu.Unlock()
}

func (c *Collector) MACDelay(_ int, d time.Duration) {
	c.mu.Lock()
	c.macDelays = append(c.macDelays, d)
	c.mu.Unlock()
}

func (c *Collector) Slept(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.slept[n]; ok {
		return
	}
	c.slept[n] = c.clock()
	c.emit(n, telemetry.EventSlept, nil, packet.NoNode, nil)
}

// NodeCounters returns the transmissions and receptions of drone n.
func (c *Collector) NodeCounters(n int) (tx, rx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perNodeTx[n], c.perNodeRecv[n]
}

// Summary computes the aggregate metrics so far.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Generated:      c.generated,
		Delivered:      len(c.delivered),
		Transmitted:    c.transmitted,
		Received:       c.received,
		Collisions:     c.collisions,
		ControlPackets: c.control,
		Drops:          make(map[string]int, len(c.drops)),
		Sleeping:       len(c.slept),
	}
	for r, n := range c.drops {
		s.Drops[string(r)] = n
	}
	if c.generated > 0 {
		s.PDR = float64(len(c.delivered)) / float64(c.generated) * 100
	}
	if n := len(c.delivered); n > 0 {
		var delay time.Duration
		var throughput, hops float64
		for _, d := range c.delivered {
			delay += d.delay
			hops += float64(d.hops)
			if d.delay > 0 {
				throughput += float64(d.bits) / d.delay.Seconds()
			}
		}
		s.E2EDelayMS = ms(delay) / float64(n)
		s.ThroughputKbps = throughput / float64(n) / 1e3
		s.HopCount = hops / float64(n)
		s.RoutingLoad = float64(c.control) / float64(n)
	}
	if n := len(c.macDelays); n > 0 {
		var total time.Duration
		for _, d := range c.macDelays {
			total += d
		}
		s.MACDelayMS = ms(total) / float64(n)
	}
	if c.queueCount > 0 {
		s.QueueDelayMS = ms(c.queueDelay) / float64(c.queueCount)
	}
	return s
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
