package routing

import (
	"testing"
	"time"
)

func TestCostTableUpdate(t *testing.T) {
	ct := NewCostTable(0, time.Second)

	ct.Update(&Message{Originator: 0, Seq: 9, Accrued: 1}, 0)
	if ct.Len() != 0 {
		t.Fatalf("cost to self recorded")
	}

	ct.Update(&Message{Originator: 4, Seq: 3, Accrued: 3}, 0)
	ct.Update(&Message{Originator: 4, Seq: 3, Accrued: 5}, 0)
	if c, _ := ct.Get(4); c.Hops != 3 {
		t.Fatalf("longer copy of the same message replaced the cost: %+v", c)
	}
	ct.Update(&Message{Originator: 4, Seq: 3, Accrued: 2}, 0)
	if c, _ := ct.Get(4); c.Hops != 2 {
		t.Fatalf("shorter copy ignored: %+v", c)
	}
	ct.Update(&Message{Originator: 4, Seq: 7, Accrued: 6}, 500*time.Millisecond)
	if c, _ := ct.Get(4); c.Hops != 6 || c.Seq != 7 {
		t.Fatalf("fresher message ignored: %+v", c)
	}
	ct.Update(&Message{Originator: 4, Seq: 2, Accrued: 1}, 500*time.Millisecond)
	if c, _ := ct.Get(4); c.Seq != 7 {
		t.Fatalf("older message replaced the cost: %+v", c)
	}

	ct.Purge(1500*time.Millisecond + time.Microsecond)
	if ct.Len() != 0 {
		t.Fatalf("stale cost kept")
	}
}

func TestGRAdDiscoversAndDelivers(t *testing.T) {
	h := newProtocolHarness(t, ProtocolGRAd, DefaultConfig(), 0, 300, 600)
	p := h.data(0, 2, 10*time.Second)
	h.run(t, 100*time.Millisecond)

	g := h.routers[0].(*GRAd)
	if c, ok := g.Table().Get(2); !ok || c.Hops != 2 {
		t.Fatalf("cost to 2 = %+v (ok=%v), want 2 hops", c, ok)
	}
	if h.metrics.control < 3 {
		t.Fatalf("control packets = %d, want request, relay and reply", h.metrics.control)
	}

	h.run(t, 700*time.Millisecond)
	if h.metrics.delivered[p.ID] != 1 {
		t.Fatalf("packet %d delivered %d times, drops %v", p.ID, h.metrics.delivered[p.ID], h.metrics.dropped)
	}
}

func TestGRAdReplyFlushesWaitingList(t *testing.T) {
	rc := DefaultConfig()
	rc.WaitingCheckInterval = time.Minute
	h := newProtocolHarness(t, ProtocolGRAd, rc, 0, 300)

	parked := h.data(0, 1, 10*time.Second)
	h.run(t, 100*time.Millisecond)
	if h.net.Drone(0).WaitingLen() != 1 {
		t.Fatalf("waiting = %d, want the packet parked", h.net.Drone(0).WaitingLen())
	}
	if _, ok := h.routers[0].(*GRAd).Table().Get(1); !ok {
		t.Fatalf("reply never arrived")
	}

	next := h.data(0, 1, 10*time.Second)
	h.run(t, 200*time.Millisecond)
	if h.net.Drone(0).WaitingLen() != 0 {
		t.Fatalf("waiting list not flushed")
	}
	if h.metrics.delivered[parked.ID] != 1 || h.metrics.delivered[next.ID] != 1 {
		t.Fatalf("delivered = %v", h.metrics.delivered)
	}
}

func TestGRAdRelayStopsWhenBudgetExhausted(t *testing.T) {
	rc := DefaultConfig()
	rc.RequestBudget = 1
	h := newProtocolHarness(t, ProtocolGRAd, rc, 0, 300, 600)
	h.data(0, 2, 10*time.Second)
	h.run(t, 100*time.Millisecond)

	if _, ok := h.routers[2].(*GRAd).Table().Get(0); ok {
		t.Fatalf("request travelled beyond its budget")
	}
	if _, ok := h.routers[1].(*GRAd).Table().Get(0); !ok {
		t.Fatalf("request never reached the first hop")
	}
}
