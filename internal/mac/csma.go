package mac

import (
	"time"

	"uavnet-sim/internal/node"
	"uavnet-sim/internal/packet"
)

// CSMACA is carrier sense multiple access with collision avoidance. A sender
// waits for an idle channel, then counts down DIFS plus a random backoff.
// A busy channel during DIFS restarts the countdown; during backoff it
// freezes the remaining backoff.
type CSMACA struct {
	d     *node.Drone
	radio Radio
	cfg   Config
	acks  *acks
}

// NewCSMACA attaches CSMA/CA to d.
func NewCSMACA(d *node.Drone, radio Radio, cfg Config) *CSMACA {
	return &CSMACA{d: d, radio: radio, cfg: cfg, acks: newAcks(d, cfg.AckTimeout)}
}

// Outstanding returns the number of unicasts waiting for an ACK.
func (c *CSMACA) Outstanding() int { return c.acks.Outstanding() }

// contention is the countdown state of one dispatch.
type contention struct {
	dp        *node.Dispatch
	backoff   time.Duration
	toWait    time.Duration
	startedAt time.Duration
}

// Send contends for the channel and transmits dp.
func (c *CSMACA) Send(dp *node.Dispatch) {
	attempt := dp.Packet.Attempts(c.d.ID())
	cw := c.cfg.CWMin << uint(attempt)
	if cw > c.cfg.CWMax || cw <= 0 {
		cw = c.cfg.CWMax
	}
	backoff := time.Duration(c.d.Rand().Intn(cw)) * c.cfg.SlotDuration
	ct := &contention{dp: dp, backoff: backoff, toWait: c.cfg.DIFS + backoff}
	c.waitIdle(ct)
}

func (c *CSMACA) after(d time.Duration, fn func()) {
	c.d.Network().Scheduler().After(d, c.d.ID(), fn)
}

// waitIdle polls the channel every slot until it is idle, then starts the countdown.
func (c *CSMACA) waitIdle(ct *contention) {
	if c.radio.Busy() {
		c.after(c.cfg.SlotDuration, func() { c.waitIdle(ct) })
		return
	}
	ct.startedAt = c.d.Now()
	c.listen(ct, ct.toWait)
}

// listen advances the countdown in slot-sized steps, checking the channel
// before each one.
func (c *CSMACA) listen(ct *contention, remaining time.Duration) {
	if remaining <= 0 {
		c.transmit(ct.dp)
		return
	}
	if c.radio.Busy() {
		c.interrupt(ct, remaining)
		return
	}
	step := c.cfg.SlotDuration
	if remaining < step {
		step = remaining
	}
	c.after(step, func() { c.listen(ct, remaining-step) })
}

func (c *CSMACA) interrupt(ct *contention, remaining time.Duration) {
	c.applyInterrupt(ct, remaining)
	c.d.Logger().Debug("backoff interrupted", "t", c.d.Now(), "packet", ct.dp.Packet.ID, "waited", c.d.Now()-ct.startedAt, "backoff", ct.backoff)
	c.waitIdle(ct)
}

// applyInterrupt restarts DIFS and keeps whatever backoff is left.
func (c *CSMACA) applyInterrupt(ct *contention, remaining time.Duration) {
	if remaining <= ct.backoff {
		ct.backoff = remaining
	}
	ct.toWait = c.cfg.DIFS + ct.backoff
}

func (c *CSMACA) transmit(dp *node.Dispatch) {
	p := dp.Packet
	var air time.Duration
	if p.Mode == packet.Unicast {
		if p.IsData() {
			c.acks.wait(p, c.retry)
		}
		air = c.radio.Unicast(p, p.NextHop)
	} else {
		air = c.radio.Broadcast(p)
	}
	c.after(air, dp.Finish)
}

func (c *CSMACA) retry(p *packet.Packet) {
	if p.Attempts(c.d.ID()) < c.cfg.MaxRetransmissions {
		c.d.PacketComing(p)
		return
	}
	exhausted(c.d, p)
}

// HandleAck stops the ACK timer of the acknowledged packet.
func (c *CSMACA) HandleAck(ack *packet.Packet, from int) { c.acks.resolve(ack, from) }
