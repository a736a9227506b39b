// Packet data model shared by every layer
package packet

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"uavnet-sim/internal/geo"
)

// Kind distinguishes data packets from control traffic.
type Kind int

const (
	KindData Kind = iota
	KindAck
	KindHello
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindAck:
		return "ack"
	case KindHello:
		return "hello"
	case KindControl:
		return "control"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Mode is the transmission mode used on the wire.
type Mode int

const (
	Unicast Mode = iota
	Broadcast
)

// Broadcast destination marker.
const NoNode = -1

// Packet is one frame in flight. Identity fields are fixed at creation; the
// attempt counters, TTL and timestamps change as the packet travels.
type Packet struct {
	ID        uint64
	Kind      Kind
	Mode      Mode
	Src       int
	Dst       int
	NextHop   int
	Length    int // bits
	CreatedAt time.Duration
	Deadline  time.Duration

	// LastHopTxAt is stamped each time a data packet acquires a transceiver.
	LastHopTxAt time.Duration

	// Acked is the data packet an ACK acknowledges.
	Acked *Packet
	// Position is the sender position advertised by a hello.
	Position geo.Vec3
	// EnqueuedAt is when the packet last entered a transmit queue.
	EnqueuedAt time.Duration
	// Payload carries protocol-specific content. Clone copies the reference.
	Payload any

	attempts map[int]int
	ttl      int
}

// New creates a packet. Hello packets are broadcast, everything else unicast.
func New(id uint64, kind Kind, src, dst int, now time.Duration, length int, lifetime time.Duration) *Packet {
	mode := Unicast
	if kind == KindHello {
		mode = Broadcast
		dst = NoNode
	}
	return &Packet{
		ID:        id,
		Kind:      kind,
		Mode:      mode,
		Src:       src,
		Dst:       dst,
		NextHop:   NoNode,
		Length:    length,
		CreatedAt: now,
		Deadline:  now + lifetime,
		attempts:  make(map[int]int),
	}
}

// IsData reports whether p carries user traffic.
func (p *Packet) IsData() bool { return p.Kind == KindData }

// Attempts returns how many times node has tried to transmit p.
func (p *Packet) Attempts(node int) int { return p.attempts[node] }

// IncAttempts bumps the attempt counter of node and returns the new value.
func (p *Packet) IncAttempts(node int) int {
	p.attempts[node]++
	return p.attempts[node]
}

// TTL returns the number of hops p has travelled.
func (p *Packet) TTL() int { return p.ttl }

// IncTTL records one more hop.
func (p *Packet) IncTTL() { p.ttl++ }

// SetTTL overwrites the hop count, for a frame that travelled inside another.
func (p *Packet) SetTTL(hops int) { p.ttl = hops }

// Expired reports whether p is past its deadline at now.
func (p *Packet) Expired(now time.Duration) bool { return now > p.Deadline }

// Airtime returns how long p occupies the medium at bitRate bit/s.
func (p *Packet) Airtime(bitRate float64) time.Duration {
	return Airtime(p.Length, bitRate)
}

// Airtime converts a length in bits to a transmission duration.
func Airtime(bits int, bitRate float64) time.Duration {
	return time.Duration(math.Round(float64(bits) / bitRate * float64(time.Second)))
}

// Clone returns a copy that can be forwarded independently of p.
func (p *Packet) Clone() *Packet {
	c := *p
	c.attempts = make(map[int]int, len(p.attempts))
	for k, v := range p.attempts {
		c.attempts[k] = v
	}
	return &c
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s#%d %d->%d", p.Kind, p.ID, p.Src, p.Dst)
}

// Sequence issues run-wide packet identifiers. The zero value starts at 1.
type Sequence struct {
	n atomic.Uint64
}

// Next returns the next identifier.
func (s *Sequence) Next() uint64 { return s.n.Add(1) }

// Last returns the most recently issued identifier.
func (s *Sequence) Last() uint64 { return s.n.Load() }
