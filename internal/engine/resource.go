package engine

import "time"

type request struct {
	at    time.Duration
	grant func(waited time.Duration)
}

// Resource is a capacity-1 resource granted in request order.
type Resource struct {
	sched   *Scheduler
	owner   int
	busy    bool
	waiters []request
	grants  uint64
}

// NewResource creates a free resource whose deferred grants are scheduled under owner.
func NewResource(s *Scheduler, owner int) *Resource {
	return &Resource{sched: s, owner: owner}
}

// Request asks for the resource. grant runs immediately when the resource is
// free, otherwise once every earlier request has been served and released.
// grant receives the time spent queueing.
func (r *Resource) Request(grant func(waited time.Duration)) {
	if !r.busy {
		r.busy = true
		r.grants++
		grant(0)
		return
	}
	r.waiters = append(r.waiters, request{at: r.sched.Now(), grant: grant})
}

// Release frees the resource and hands it to the oldest waiter at the current instant.
func (r *Resource) Release() {
	if !r.busy {
		panic("engine: release of a free resource")
	}
	if len(r.waiters) == 0 {
		r.busy = false
		return
	}
	next := r.waiters[0]
	r.waiters = r.waiters[1:]
	// still busy: ownership transfers to next without a free gap
	r.sched.At(r.sched.Now(), PhaseDefault, r.owner, func() {
		r.grants++
		next.grant(r.sched.Now() - next.at)
	})
}

// Busy reports whether the resource is held.
func (r *Resource) Busy() bool { return r.busy }

// Queued returns the number of waiting requests.
func (r *Resource) Queued() int { return len(r.waiters) }

// Grants returns how many times the resource has been granted.
func (r *Resource) Grants() uint64 { return r.grants }
