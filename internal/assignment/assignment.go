// Package assignment implements the three queue-selection policies of
// spec.md §4.2.
package assignment

import (
	"fmt"

	"github.com/cxd309/bordersim/internal/distributions"
	"github.com/cxd309/bordersim/internal/queue"
)

// Policy chooses which queue an arriving car should be routed to.
// Select returns ok=false if every queue is at capacity.
type Policy interface {
	Select(queues []*queue.Queue, rng *distributions.Generator) (idx int, ok bool)
}

// Names recognized by New, and by config validation.
const (
	Random     = "random"
	Shortest   = "shortest"
	RoundRobin = "round_robin"
)

// New returns the named policy, or an error for any unrecognized name —
// config validation rejects unknown assignment policies at start per
// spec.md §6/§7.
func New(name string) (Policy, error) {
	switch name {
	case Random:
		return &randomPolicy{}, nil
	case Shortest:
		return &shortestPolicy{}, nil
	case RoundRobin:
		return &roundRobinPolicy{}, nil
	default:
		return nil, fmt.Errorf("assignment: unknown queue_assignment %q", name)
	}
}

func withCapacity(queues []*queue.Queue) []int {
	var idxs []int
	for i, q := range queues {
		if q.HasCapacity() {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

type randomPolicy struct{}

// Select draws uniformly from the queues with capacity, using the shared
// RNG so behavior stays deterministic under a fixed seed.
func (p *randomPolicy) Select(queues []*queue.Queue, rng *distributions.Generator) (int, bool) {
	candidates := withCapacity(queues)
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[rng.UniformInt(0, len(candidates)-1)], true
}

type shortestPolicy struct{}

// Select picks the queue with the fewest cars, ties broken by lowest
// queue_id (i.e. lowest index, since queues are ordered by id).
func (p *shortestPolicy) Select(queues []*queue.Queue, _ *distributions.Generator) (int, bool) {
	best := -1
	for i, q := range queues {
		if !q.HasCapacity() {
			continue
		}
		if best == -1 || q.Len() < queues[best].Len() {
			best = i
		}
	}
	return best, best != -1
}

type roundRobinPolicy struct {
	cursor int
}

// Select advances a cyclic cursor over the queues, skipping full ones, and
// only moves the cursor forward on a successful admit (the caller must
// call Advance after a confirmed admission).
func (p *roundRobinPolicy) Select(queues []*queue.Queue, _ *distributions.Generator) (int, bool) {
	if len(queues) == 0 {
		return 0, false
	}
	for i := 0; i < len(queues); i++ {
		idx := (p.cursor + i) % len(queues)
		if queues[idx].HasCapacity() {
			return idx, true
		}
	}
	return 0, false
}

// Advance moves the round-robin cursor past idx after a successful admit.
// Other policies ignore this call.
func Advance(p Policy, idx int) {
	if rr, ok := p.(*roundRobinPolicy); ok {
		rr.cursor = idx + 1
	}
}
