package node

import (
	"time"

	"uavnet-sim/internal/packet"
)

// Entry is one signal arriving at a drone.
type Entry struct {
	Packet      *packet.Packet
	InsertedAt  time.Duration
	Transmitter int
	processed   bool
}

// Processed reports whether the owner's reception pipeline has resolved the entry.
func (e Entry) Processed() bool { return e.processed }

// Window returns the reception interval of the entry at bitRate.
func (e Entry) Window(bitRate float64) Interval {
	return Interval{Start: e.InsertedAt, End: e.InsertedAt + e.Packet.Airtime(bitRate)}
}

// Inbox is the append-only log of signals arriving at one drone. Any
// transmitter may append. Only the owning drone marks and purges entries.
type Inbox struct {
	entries []Entry
}

// Deliver appends a signal that started at the given instant.
func (ib *Inbox) Deliver(p *packet.Packet, at time.Duration, transmitter int) {
	ib.entries = append(ib.entries, Entry{Packet: p, InsertedAt: at, Transmitter: transmitter})
}

func (ib *Inbox) deliverProcessed(p *packet.Packet, at time.Duration, transmitter int) {
	ib.entries = append(ib.entries, Entry{Packet: p, InsertedAt: at, Transmitter: transmitter, processed: true})
}

// discard marks every entry processed without resolving it.
func (ib *Inbox) discard() {
	for i := range ib.entries {
		ib.entries[i].processed = true
	}
}

// Len returns the number of retained entries.
func (ib *Inbox) Len() int { return len(ib.entries) }

// Entries returns a copy of the retained entries.
func (ib *Inbox) Entries() []Entry {
	out := make([]Entry, len(ib.entries))
	copy(out, ib.entries)
	return out
}

// purge drops processed entries whose window ended more than horizon ago.
// The horizon is network-wide so that a short frame stays visible for as
// long as any frame overlapping it can still be resolved elsewhere.
func (ib *Inbox) purge(now time.Duration, bitRate float64, horizon time.Duration) int {
	kept := ib.entries[:0]
	removed := 0
	for _, e := range ib.entries {
		if e.processed && e.Window(bitRate).End+horizon < now {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(ib.entries); i++ {
		ib.entries[i] = Entry{}
	}
	ib.entries = kept
	return removed
}

// trigger marks every entry whose window has elapsed and returns them as candidates.
func (ib *Inbox) trigger(now time.Duration, bitRate float64) []Signal {
	var out []Signal
	for i := range ib.entries {
		e := &ib.entries[i]
		if e.processed {
			continue
		}
		w := e.Window(bitRate)
		if now >= w.End {
			e.processed = true
			out = append(out, Signal{Packet: e.Packet, Transmitter: e.Transmitter, Window: w})
		}
	}
	return out
}
