package routing

import (
	"math"
	"sort"
	"time"

	"uavnet-sim/internal/geo"
)

// Neighbor is what a drone knows about another one from its last hello.
type Neighbor struct {
	ID       int
	Position geo.Vec3
	Updated  time.Duration
}

// NeighborTable holds the one-hop neighbours learned from hello packets.
type NeighborTable struct {
	lifetime time.Duration
	entries  map[int]Neighbor
}

// NewNeighborTable returns an empty table whose entries live for lifetime.
func NewNeighborTable(lifetime time.Duration) *NeighborTable {
	return &NeighborTable{lifetime: lifetime, entries: make(map[int]Neighbor)}
}

// Add records or refreshes a neighbour.
func (t *NeighborTable) Add(id int, pos geo.Vec3, now time.Duration) {
	t.entries[id] = Neighbor{ID: id, Position: pos, Updated: now}
}

// Purge removes neighbours not heard from within the lifetime.
func (t *NeighborTable) Purge(now time.Duration) {
	for id, n := range t.entries {
		if n.Updated+t.lifetime < now {
			delete(t.entries, id)
		}
	}
}

func (t *NeighborTable) Len() int { return len(t.entries) }

// Get returns the entry for id.
func (t *NeighborTable) Get(id int) (Neighbor, bool) {
	n, ok := t.entries[id]
	return n, ok
}

// Neighbors returns the entries ordered by id.
func (t *NeighborTable) Neighbors() []Neighbor {
	out := make([]Neighbor, 0, len(t.entries))
	for _, n := range t.entries {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Best picks the next hop towards dst. Greedy forwarding chooses the
// neighbour strictly closer to dst than self. When none is closer the
// neighbour with the smallest counter-clockwise angle from the direction
// of dst is used instead. It returns self when the table is empty.
func (t *NeighborTable) Best(self int, selfPos, dst geo.Vec3) int {
	neighbors := t.Neighbors()

	best := self
	bestDist := geo.Distance(selfPos, dst)
	for _, n := range neighbors {
		if d := geo.Distance(n.Position, dst); d < bestDist {
			bestDist = d
			best = n.ID
		}
	}
	if best != self {
		return best
	}

	toDst := math.Atan2(dst.Y-selfPos.Y, dst.X-selfPos.X)
	bestAngle := 2 * math.Pi
	for _, n := range neighbors {
		a := math.Atan2(n.Position.Y-selfPos.Y, n.Position.X-selfPos.X) - toDst
		if a < 0 {
			a += 2 * math.Pi
		}
		if a < bestAngle {
			bestAngle = a
			best = n.ID
		}
	}
	return best
}
