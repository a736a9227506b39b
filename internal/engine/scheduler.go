// Virtual-time event scheduler
package engine

import (
	"container/heap"
	"context"
	"fmt"
	"time"
)

// Phase orders events that fire at the same virtual instant. Lower phases run first.
type Phase int

const (
	// PhaseDefault is used by generators, feeders, MAC timers and mobility.
	PhaseDefault Phase = iota
	// PhaseReception runs after every other activity scheduled for the same instant.
	PhaseReception
)

type event struct {
	at    time.Duration
	phase Phase
	owner int
	seq   uint64
	fn    func()
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.at != b.at {
		return a.at < b.at
	}
	if a.phase != b.phase {
		return a.phase < b.phase
	}
	if a.owner != b.owner {
		return a.owner < b.owner
	}
	return a.seq < b.seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Scheduler runs callbacks on a single virtual timeline. Events are ordered by
// (time, phase, owner, insertion order) so a run is reproducible for a given seed.
// A Scheduler is not safe for concurrent use.
type Scheduler struct {
	now   time.Duration
	queue eventQueue
	seq   uint64
	fired uint64
}

// NewScheduler returns an empty scheduler positioned at virtual time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration { return s.now }

// Pending returns the number of queued events.
func (s *Scheduler) Pending() int { return len(s.queue) }

// Fired returns the number of events executed so far.
func (s *Scheduler) Fired() uint64 { return s.fired }

// At schedules fn at absolute virtual time t. Scheduling into the past panics.
func (s *Scheduler) At(t time.Duration, phase Phase, owner int, fn func()) {
	if t < s.now {
		panic(fmt.Sprintf("engine: event at %s scheduled before now %s", t, s.now))
	}
	s.seq++
	heap.Push(&s.queue, &event{at: t, phase: phase, owner: owner, seq: s.seq, fn: fn})
}

// After schedules fn d after the current time in the default phase.
func (s *Scheduler) After(d time.Duration, owner int, fn func()) {
	s.At(s.now+d, PhaseDefault, owner, fn)
}

// Every calls fn at start and then every interval until fn returns false.
func (s *Scheduler) Every(start, interval time.Duration, phase Phase, owner int, fn func() bool) {
	if interval <= 0 {
		panic("engine: non-positive interval")
	}
	var tick func()
	tick = func() {
		if fn() {
			s.At(s.now+interval, phase, owner, tick)
		}
	}
	s.At(start, phase, owner, tick)
}

// Step executes the next event. It returns false when the queue is empty.
func (s *Scheduler) Step() bool {
	if len(s.queue) == 0 {
		return false
	}
	e := heap.Pop(&s.queue).(*event)
	s.now = e.at
	s.fired++
	e.fn()
	return true
}

// RunUntil executes events until the next one lies beyond end, the queue drains
// or ctx is cancelled. The clock is advanced to end on normal completion.
func (s *Scheduler) RunUntil(ctx context.Context, end time.Duration) error {
	for len(s.queue) > 0 {
		if s.fired%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if s.queue[0].at > end {
			break
		}
		s.Step()
	}
	if s.now < end {
		s.now = end
	}
	return nil
}
