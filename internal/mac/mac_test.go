package mac

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"uavnet-sim/internal/energy"
	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/geo"
	"uavnet-sim/internal/mobility"
	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
	"uavnet-sim/internal/phy"
)

type recorder struct {
	node.NopMetrics
	sched     *engine.Scheduler
	sentAt    map[int][]time.Duration
	dropped   map[node.DropReason]int
	macDelays []time.Duration
}

func (r *recorder) Transmitted(n int, p *packet.Packet) {
	if p.IsData() {
		r.sentAt[n] = append(r.sentAt[n], r.sched.Now())
	}
}
func (r *recorder) Dropped(_ int, _ *packet.Packet, reason node.DropReason) { r.dropped[reason]++ }
func (r *recorder) MACDelay(_ int, d time.Duration)                         { r.macDelays = append(r.macDelays, d) }

// echoRouter forwards straight to next and acknowledges data after SIFS.
type echoRouter struct {
	d        *node.Drone
	radio    *phy.Radio
	next     int
	silent   bool
	received int
}

func (r *echoRouter) NextHop(p *packet.Packet) (bool, *packet.Packet, bool) {
	p.NextHop = r.next
	return true, p, false
}

func (r *echoRouter) Receive(p *packet.Packet, from int) {
	switch p.Kind {
	case packet.KindData:
		r.received++
		if r.silent {
			return
		}
		net := r.d.Network()
		net.Scheduler().After(DefaultConfig().SIFS, r.d.ID(), func() {
			ack := packet.New(net.Sequence().Next(), packet.KindAck, r.d.ID(), from, net.Now(), 128, time.Second)
			ack.Acked = p
			ack.NextHop = from
			r.radio.Unicast(ack, from)
		})
	case packet.KindAck:
		r.d.MAC().HandleAck(p, from)
	}
}

type testNet struct {
	sched   *engine.Scheduler
	net     *node.Network
	rec     *recorder
	routers []*echoRouter
	radios  []*phy.Radio
}

func newTestNet(t *testing.T, protocol string, xs ...float64) *testNet {
	t.Helper()
	s := engine.NewScheduler()
	rec := &recorder{sched: s, sentAt: map[int][]time.Duration{}, dropped: map[node.DropReason]int{}}
	cfg := node.DefaultConfig()
	cfg.Traffic.Pattern = node.TrafficNone
	net := node.NewNetwork(s, cfg, phy.DefaultPathLoss(), rec, nil)
	medium := phy.NewMedium(net, 300)
	tn := &testNet{sched: s, net: net, rec: rec}
	for i, x := range xs {
		d := net.AddDrone(mobility.NewStatic(geo.Vec3{X: x}), energy.NewBattery(1e6), rand.New(rand.NewSource(int64(i+1))))
		radio := phy.NewRadio(d, medium, 0.1)
		m, err := New(protocol, d, radio, DefaultConfig())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		r := &echoRouter{d: d, radio: radio, next: (i + 1) % len(xs)}
		d.Install(r, m)
		tn.routers = append(tn.routers, r)
		tn.radios = append(tn.radios, radio)
	}
	net.Start()
	return tn
}

func (tn *testNet) data(src, dst int) *packet.Packet {
	cfg := tn.net.Config()
	p := packet.New(tn.net.Sequence().Next(), packet.KindData, src, dst, tn.net.Now(), cfg.DataLength, cfg.PacketLifetime)
	tn.net.Drone(src).Enqueue(p)
	return p
}

func (tn *testNet) run(t *testing.T, end time.Duration) {
	t.Helper()
	if err := tn.sched.RunUntil(context.Background(), end); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
}

func TestNewRejectsUnknownProtocol(t *testing.T) {
	if _, err := New("token_ring", nil, nil, DefaultConfig()); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestAckedUnicastIsSentOnce(t *testing.T) {
	for _, proto := range []string{ProtocolCSMACA, ProtocolPureAloha} {
		t.Run(proto, func(t *testing.T) {
			tn := newTestNet(t, proto, 0, 100)
			tn.data(0, 1)
			tn.run(t, 100*time.Millisecond)

			if got := len(tn.rec.sentAt[0]); got != 1 {
				t.Fatalf("transmissions = %d, want 1", got)
			}
			if tn.routers[1].received != 1 {
				t.Fatalf("receiver got %d packets", tn.routers[1].received)
			}
			if len(tn.rec.macDelays) != 1 || tn.rec.macDelays[0] <= 0 {
				t.Fatalf("mac delays = %v", tn.rec.macDelays)
			}
			if len(tn.rec.dropped) != 0 {
				t.Fatalf("unexpected drops %v", tn.rec.dropped)
			}
			if tn.net.Drone(0).PendingDispatches() != 0 || tn.net.Drone(0).Arbiter().Busy() {
				t.Fatalf("transceiver not released")
			}
		})
	}
}

func TestUnackedUnicastRetriesThenDrops(t *testing.T) {
	for _, proto := range []string{ProtocolCSMACA, ProtocolPureAloha} {
		t.Run(proto, func(t *testing.T) {
			tn := newTestNet(t, proto, 0, 100)
			tn.routers[1].silent = true
			tn.data(0, 1)
			tn.run(t, 2*time.Second)

			limit := DefaultConfig().MaxRetransmissions
			if got := len(tn.rec.sentAt[0]); got != limit {
				t.Fatalf("transmissions = %d, want %d", got, limit)
			}
			if tn.rec.dropped[node.DropRetryExhausted] != 1 {
				t.Fatalf("drops = %v", tn.rec.dropped)
			}
			sent := tn.rec.sentAt[0]
			for i := 1; i < len(sent); i++ {
				if sent[i]-sent[i-1] < DefaultConfig().AckTimeout {
					t.Fatalf("retransmission %d came %v after the previous one", i, sent[i]-sent[i-1])
				}
			}
		})
	}
}

func TestCSMADefersToBusyChannel(t *testing.T) {
	tn := newTestNet(t, ProtocolCSMACA, 0, 100)
	// 5 ms of airtime at 54 Mbit/s
	long := packet.New(tn.net.Sequence().Next(), packet.KindHello, 1, packet.NoNode, 0, 270000, time.Second)
	busy := tn.radios[1].Broadcast(long)
	tn.data(0, 1)
	tn.run(t, 100*time.Millisecond)

	sent := tn.rec.sentAt[0]
	if len(sent) != 1 {
		t.Fatalf("transmissions = %v", sent)
	}
	if earliest := busy + DefaultConfig().DIFS; sent[0] < earliest {
		t.Fatalf("sent at %v while the channel was busy until %v", sent[0], busy)
	}
}

func TestPureAlohaIgnoresCarrier(t *testing.T) {
	tn := newTestNet(t, ProtocolPureAloha, 0, 100)
	long := packet.New(tn.net.Sequence().Next(), packet.KindHello, 1, packet.NoNode, 0, 270000, time.Second)
	busy := tn.radios[1].Broadcast(long)
	tn.data(0, 1)
	tn.run(t, time.Millisecond)

	sent := tn.rec.sentAt[0]
	if len(sent) != 1 || sent[0] >= busy {
		t.Fatalf("aloha should transmit at once, sent %v", sent)
	}
}

func TestBackoffFreezesInsideCountdown(t *testing.T) {
	cfg := DefaultConfig()
	ct := &contention{backoff: 10 * cfg.SlotDuration, toWait: cfg.DIFS + 10*cfg.SlotDuration}
	c := &CSMACA{cfg: cfg}

	// interrupted during DIFS: the backoff is kept whole
	remaining := ct.toWait - cfg.DIFS/2
	c.applyInterrupt(ct, remaining)
	if ct.backoff != 10*cfg.SlotDuration || ct.toWait != cfg.DIFS+10*cfg.SlotDuration {
		t.Fatalf("after DIFS interrupt: backoff=%v toWait=%v", ct.backoff, ct.toWait)
	}

	// interrupted during backoff: only the remainder is kept
	c.applyInterrupt(ct, 3*cfg.SlotDuration)
	if ct.backoff != 3*cfg.SlotDuration || ct.toWait != cfg.DIFS+3*cfg.SlotDuration {
		t.Fatalf("after backoff interrupt: backoff=%v toWait=%v", ct.backoff, ct.toWait)
	}
}
