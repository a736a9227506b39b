package node

import (
	"testing"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/packet"
)

const testBitRate = 1e6 // 1 bit per µs

func TestInboxPurgeKeepsUnprocessed(t *testing.T) {
	ib := &Inbox{}
	old := packet.New(1, packet.KindData, 0, 1, 0, 10, time.Second)
	ib.Deliver(old, 0, 0)

	if n := ib.purge(time.Hour, testBitRate, 0); n != 0 {
		t.Fatalf("purged %d unprocessed entries", n)
	}
	if ib.Len() != 1 {
		t.Fatalf("unprocessed entry removed")
	}
}

func TestInboxPurgeRemovesProcessedAfterHorizon(t *testing.T) {
	ib := &Inbox{}
	p := packet.New(1, packet.KindData, 0, 1, 0, 10, time.Second)
	ib.Deliver(p, 0, 0)

	if got := ib.trigger(10*time.Microsecond, testBitRate); len(got) != 1 {
		t.Fatalf("expected one candidate, got %d", len(got))
	}
	// window ends at 10µs; kept until it ended more than the horizon ago
	horizon := 100 * time.Microsecond
	if n := ib.purge(110*time.Microsecond, testBitRate, horizon); n != 0 {
		t.Fatalf("entry purged too early")
	}
	if n := ib.purge(111*time.Microsecond, testBitRate, horizon); n != 1 {
		t.Fatalf("expected entry to be purged")
	}
	if ib.Len() != 0 {
		t.Fatalf("inbox not empty after purge")
	}
}

func TestInboxTriggerOnlyOnce(t *testing.T) {
	ib := &Inbox{}
	a := packet.New(1, packet.KindData, 0, 1, 0, 10, time.Second)
	b := packet.New(2, packet.KindData, 0, 1, 0, 30, time.Second)
	ib.Deliver(a, 0, 3)
	ib.Deliver(b, 0, 4)

	got := ib.trigger(10*time.Microsecond, testBitRate)
	if len(got) != 1 || got[0].Packet.ID != 1 || got[0].Transmitter != 3 {
		t.Fatalf("unexpected candidates %+v", got)
	}
	if got[0].Window != (Interval{Start: 0, End: 10 * time.Microsecond}) {
		t.Fatalf("window = %+v", got[0].Window)
	}
	if again := ib.trigger(10*time.Microsecond, testBitRate); len(again) != 0 {
		t.Fatalf("entry triggered twice")
	}
	entries := ib.Entries()
	if !entries[0].Processed() || entries[1].Processed() {
		t.Fatalf("processed flags wrong: %v %v", entries[0].Processed(), entries[1].Processed())
	}
}

func TestShortFrameOutlivesOverlappingLongFrame(t *testing.T) {
	tn := newTestNet(t, 4, testConfig())
	tn.net.Start()
	data := dataPacket(tn, 3, 1, time.Second) // 100µs
	ack := packet.New(tn.net.Sequence().Next(), packet.KindAck, 2, 0, 0, 10, time.Second)
	tn.sched.At(0, engine.PhaseDefault, 0, func() {
		tn.net.Deliver(1, data, 3)
		tn.net.Deliver(0, ack, 2)
	})
	tn.run(t, 100*time.Microsecond)

	if len(tn.routers[0].received) != 1 {
		t.Fatalf("ack not resolved at drone 0")
	}
	if got := tn.channel.lastIf; len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("interferers for the data frame = %v, want [2 3]", got)
	}
}
