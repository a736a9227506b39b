package node

import (
	"time"

	"uavnet-sim/internal/geo"
	"uavnet-sim/internal/packet"
)

// Router is the network layer installed on a drone.
type Router interface {
	// NextHop resolves a forwarding neighbour for p. A true hasRoute must come
	// with a non-nil packet. notify asks the drone to flush its waiting list.
	NextHop(p *packet.Packet) (hasRoute bool, out *packet.Packet, notify bool)
	// Receive handles a packet accepted by the reception pipeline.
	Receive(p *packet.Packet, from int)
}

// MAC is the medium access layer installed on a drone. Send must eventually
// call d.Finish exactly once.
type MAC interface {
	Send(d *Dispatch)
	HandleAck(ack *packet.Packet, from int)
}

// Mobility supplies the drone's kinematic state.
type Mobility interface {
	Position() geo.Vec3
	Velocity() geo.Vec3
}

// EnergySource holds the drone's residual energy in joules.
type EnergySource interface {
	Residual() float64
	Consume(joules float64)
}

// Interval is a closed reception window on the virtual timeline.
type Interval struct {
	Start time.Duration
	End   time.Duration
}

// Signal is one transmission observed at a receiver.
type Signal struct {
	Packet      *packet.Packet
	Transmitter int
	Window      Interval
}

// Channel is the physical-layer model used to resolve interference.
type Channel interface {
	// SINR returns one value in dB per candidate, in candidate order.
	SINR(rx int, candidates []Signal, interferers []int, position func(id int) geo.Vec3) []float64
	Overlaps(a, b Interval) bool
}

// DropReason labels a silent discard.
type DropReason string

const (
	DropExpired        DropReason = "expired"
	DropRetryExhausted DropReason = "retry_exhausted"
	DropTTL            DropReason = "ttl"
	DropAsleep         DropReason = "asleep"
)

// Metrics receives fire-and-forget counters from every layer.
type Metrics interface {
	Generated(p *packet.Packet)
	Transmitted(node int, p *packet.Packet)
	Received(node int, p *packet.Packet, from int)
	Collision(node int, p *packet.Packet, from int)
	Dropped(node int, p *packet.Packet, reason DropReason)
	Delivered(node int, p *packet.Packet)
	ControlSent(node int, p *packet.Packet)
	QueueDelay(node int, d time.Duration)
	MACDelay(node int, d time.Duration)
	Slept(node int)
}

// Starter is implemented by collaborators that run their own processes.
type Starter interface {
	Start()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) Generated(*packet.Packet)                {}
func (NopMetrics) Transmitted(int, *packet.Packet)         {}
func (NopMetrics) Received(int, *packet.Packet, int)       {}
func (NopMetrics) Collision(int, *packet.Packet, int)      {}
func (NopMetrics) Dropped(int, *packet.Packet, DropReason) {}
func (NopMetrics) Delivered(int, *packet.Packet)           {}
func (NopMetrics) ControlSent(int, *packet.Packet)         {}
func (NopMetrics) QueueDelay(int, time.Duration)           {}
func (NopMetrics) MACDelay(int, time.Duration)             {}
func (NopMetrics) Slept(int)                               {}
