package node

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/geo"
	"uavnet-sim/internal/packet"
)

type fixedMobility struct{ pos geo.Vec3 }

func (m fixedMobility) Position() geo.Vec3 { return m.pos }
func (m fixedMobility) Velocity() geo.Vec3 { return geo.Vec3{} }

type testBattery struct{ residual float64 }

func (b *testBattery) Residual() float64 { return b.residual }
func (b *testBattery) Consume(j float64)  { b.residual -= j }

// sinrByPacket reports a fixed SINR per packet id and a high default.
type sinrByPacket struct {
	values map[uint64]float64
	calls  int
	lastIf []int
}

func (c *sinrByPacket) SINR(rx int, cands []Signal, interferers []int, _ func(int) geo.Vec3) []float64 {
	c.calls++
	c.lastIf = interferers
	out := make([]float64, len(cands))
	for i, s := range cands {
		v, ok := c.values[s.Packet.ID]
		if !ok {
			v = 30
		}
		out[i] = v
	}
	return out
}

func (c *sinrByPacket) Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

type received struct {
	p    *packet.Packet
	from int
}

// stubRouter always routes to next unless noRoute is set.
type stubRouter struct {
	next     int
	noRoute  bool
	notify   bool
	nilOut   bool
	lookups  int
	received []received
}

func (r *stubRouter) NextHop(p *packet.Packet) (bool, *packet.Packet, bool) {
	r.lookups++
	if r.nilOut {
		return true, nil, false
	}
	if r.noRoute {
		return false, p, r.notify
	}
	p.NextHop = r.next
	return true, p, r.notify
}

func (r *stubRouter) Receive(p *packet.Packet, from int) {
	r.received = append(r.received, received{p: p, from: from})
}

// wireMAC puts the packet into the next hop's inbox and finishes after the airtime.
type wireMAC struct {
	d       *Drone
	sent    []*Dispatch
	active  int
	maxSeen int
	onSent  func(*Dispatch)
}

func (m *wireMAC) Send(disp *Dispatch) {
	m.sent = append(m.sent, disp)
	m.active++
	if m.active > m.maxSeen {
		m.maxSeen = m.active
	}
	net := m.d.Network()
	p := disp.Packet
	p.IncTTL()
	if p.NextHop != packet.NoNode {
		net.Drone(p.NextHop).Inbox().Deliver(p, net.Now(), m.d.ID())
	}
	net.Scheduler().After(p.Airtime(net.Config().BitRate), m.d.ID(), func() {
		m.active--
		disp.Finish()
		if m.onSent != nil {
			m.onSent(disp)
		}
	})
}

func (m *wireMAC) HandleAck(*packet.Packet, int) {}

type countingMetrics struct {
	NopMetrics
	now        func() time.Duration
	generated  []*packet.Packet
	collisions []uint64
	received   []uint64
	dropped    map[DropReason]int
	slept      []int
	sleptAt    time.Duration
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{dropped: make(map[DropReason]int)}
}

func (m *countingMetrics) Generated(p *packet.Packet) { m.generated = append(m.generated, p) }
func (m *countingMetrics) Collision(_ int, p *packet.Packet, _ int) {
	m.collisions = append(m.collisions, p.ID)
}
func (m *countingMetrics) Received(_ int, p *packet.Packet, _ int) {
	m.received = append(m.received, p.ID)
}
func (m *countingMetrics) Dropped(_ int, _ *packet.Packet, r DropReason) { m.dropped[r]++ }
func (m *countingMetrics) Slept(n int) {
	m.slept = append(m.slept, n)
	m.sleptAt = m.now()
}

type testNet struct {
	net     *Network
	sched   *engine.Scheduler
	channel *sinrByPacket
	metrics *countingMetrics
	routers []*stubRouter
	macs    []*wireMAC
	bats    []*testBattery
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Traffic.Pattern = TrafficNone
	cfg.SINRThreshold = 10
	cfg.EnergyThreshold = 10
	cfg.EnergyCheckInterval = time.Millisecond
	cfg.BitRate = 1e6
	cfg.DataLength = 100
	return cfg
}

func newTestNet(t *testing.T, n int, cfg Config) *testNet {
	t.Helper()
	tn := &testNet{
		sched:   engine.NewScheduler(),
		channel: &sinrByPacket{values: make(map[uint64]float64)},
		metrics: newCountingMetrics(),
	}
	tn.metrics.now = tn.sched.Now
	tn.net = NewNetwork(tn.sched, cfg, tn.channel, tn.metrics, nil)
	for i := 0; i < n; i++ {
		bat := &testBattery{residual: 1000}
		d := tn.net.AddDrone(fixedMobility{pos: geo.Vec3{X: float64(i) * 10}}, bat, rand.New(rand.NewSource(int64(i)+1)))
		r := &stubRouter{next: (i + 1) % n}
		m := &wireMAC{d: d}
		d.Install(r, m)
		tn.routers = append(tn.routers, r)
		tn.macs = append(tn.macs, m)
		tn.bats = append(tn.bats, bat)
	}
	return tn
}

func (tn *testNet) run(t *testing.T, end time.Duration) {
	t.Helper()
	if err := tn.sched.RunUntil(context.Background(), end); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
}
