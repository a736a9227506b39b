package node

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/geo"
	"uavnet-sim/internal/packet"
)

// Network owns the drones of one run together with the shared scheduler,
// packet sequence and physical channel.
type Network struct {
	sched   *engine.Scheduler
	seq     *packet.Sequence
	cfg     Config
	channel Channel
	metrics Metrics
	log     *slog.Logger
	drones  []*Drone
	longest time.Duration // longest airtime delivered so far
}

// NewNetwork creates an empty network. A nil metrics or logger is replaced by a no-op.
func NewNetwork(sched *engine.Scheduler, cfg Config, channel Channel, metrics Metrics, log *slog.Logger) *Network {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Network{
		sched:   sched,
		seq:     &packet.Sequence{},
		cfg:     cfg,
		channel: channel,
		metrics: metrics,
		log:     log,
	}
}

// AddDrone registers a new drone with the next free identifier.
func (n *Network) AddDrone(mob Mobility, energy EnergySource, rng *rand.Rand) *Drone {
	id := len(n.drones)
	d := &Drone{
		id:         id,
		net:        n,
		log:        n.log.With("node", id),
		rng:        rng,
		mobility:   mob,
		energy:     energy,
		inbox:      &Inbox{},
		arbiter:    engine.NewResource(n.sched, id),
		dispatches: make(map[DispatchKey]*Dispatch),
	}
	n.drones = append(n.drones, d)
	return d
}

func (n *Network) Scheduler() *engine.Scheduler { return n.sched }
func (n *Network) Sequence() *packet.Sequence   { return n.seq }
func (n *Network) Config() Config               { return n.cfg }
func (n *Network) Metrics() Metrics             { return n.metrics }
func (n *Network) Logger() *slog.Logger         { return n.log }
func (n *Network) Now() time.Duration           { return n.sched.Now() }

// Drones returns the registered drones ordered by identifier.
func (n *Network) Drones() []*Drone { return n.drones }

// Drone returns the drone with the given identifier.
func (n *Network) Drone(id int) *Drone {
	if id < 0 || id >= len(n.drones) {
		panic(fmt.Sprintf("node: unknown drone %d", id))
	}
	return n.drones[id]
}

// Position returns the current position of drone id.
func (n *Network) Position(id int) geo.Vec3 { return n.Drone(id).Position() }

// Start launches the processes of every drone.
func (n *Network) Start() {
	for _, d := range n.drones {
		d.Start()
	}
}

// Deliver appends a signal from transmitter to the inbox of drone to. An
// asleep drone never resolves what it hears, so its entries are stored as
// processed and aged out on arrival. They still count as interference for
// the other receivers.
func (n *Network) Deliver(to int, p *packet.Packet, transmitter int) {
	if air := p.Airtime(n.cfg.BitRate); air > n.longest {
		n.longest = air
	}
	d := n.Drone(to)
	now := n.sched.Now()
	if d.asleep {
		d.inbox.deliverProcessed(p, now, transmitter)
		d.inbox.purge(now, n.cfg.BitRate, n.purgeHorizon())
		return
	}
	d.inbox.Deliver(p, now, transmitter)
}

// purgeHorizon is how long a resolved entry must stay visible after its
// window ended: the longest frame that can still overlap it, plus one poll
// for the receiver that resolves that frame.
func (n *Network) purgeHorizon() time.Duration {
	h := packet.Airtime(n.cfg.DataLength, n.cfg.BitRate)
	if n.longest > h {
		h = n.longest
	}
	return h + n.cfg.PollInterval
}

// interferers returns the transmitters of every signal, in any inbox, whose
// window overlaps at least one candidate window.
func (n *Network) interferers(candidates []Signal) []int {
	seen := make(map[int]bool)
	for _, d := range n.drones {
		for _, e := range d.inbox.entries {
			if seen[e.Transmitter] {
				continue
			}
			w := e.Window(n.cfg.BitRate)
			for _, c := range candidates {
				if n.channel.Overlaps(w, c.Window) {
					seen[e.Transmitter] = true
					break
				}
			}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
