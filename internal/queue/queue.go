// Package queue implements the ordered list of cars on a single waitline
// plus its pool of booths, per spec.md §4 and the Queue entity in §3.
package queue

import (
	"sort"

	"github.com/cxd309/bordersim/internal/booth"
	"github.com/cxd309/bordersim/internal/car"
	"github.com/cxd309/bordersim/internal/distributions"
)

// Queue owns an ordered (by PositionS ascending, front = smallest s) list
// of car ids and the booths serving them. Cars themselves live in the
// orchestrator's arena; Queue only holds ids, per the no-cycles design
// note in spec.md §9.
type Queue struct {
	ID        int
	MaxLength int
	CarIDs    []int // ordered front-to-back
	Booths    []*booth.Booth
}

// New returns an empty queue with the given booth pool.
func New(id, maxLength int, booths []*booth.Booth) *Queue {
	return &Queue{ID: id, MaxLength: maxLength, Booths: booths}
}

// Len returns the current number of cars waiting in the queue (a car leaves
// the list when it starts service), used by assignment policies to compare
// queue lengths.
func (q *Queue) Len() int {
	return len(q.CarIDs)
}

// HasCapacity reports whether a new arrival can be admitted.
func (q *Queue) HasCapacity() bool {
	return len(q.CarIDs) < q.MaxLength
}

// Admit appends a new arrival to the tail of the queue, enforcing
// MaxLength. Returns false (not admitted) if the queue is full; the
// caller is responsible for counting the drop.
func (q *Queue) Admit(c *car.Car) bool {
	if !q.HasCapacity() {
		return false
	}
	c.QueueID = q.ID
	c.Status = car.Queued
	q.CarIDs = append(q.CarIDs, c.ID)
	return true
}

// TailPosition returns the arc-length position a newly arriving car should
// spawn at: safeDistance behind the current tail car, or safeDistance if
// the queue is empty (spec.md §4.1).
func (q *Queue) TailPosition(safeDistance float64, lookup func(id int) *car.Car) float64 {
	if len(q.CarIDs) == 0 {
		return safeDistance
	}
	tailID := q.CarIDs[len(q.CarIDs)-1]
	return lookup(tailID).PositionS + safeDistance
}

// Remove deletes carID from the queue's ordered list (used when a car
// transitions to Serving and leaves the waiting line).
func (q *Queue) Remove(carID int) {
	for i, id := range q.CarIDs {
		if id == carID {
			q.CarIDs = append(q.CarIDs[:i], q.CarIDs[i+1:]...)
			return
		}
	}
}

// Reorder re-sorts CarIDs by each car's PositionS so the invariant "front
// car has smallest PositionS" holds after a tick's kinematic step. lookup
// resolves a car id to its current *car.Car.
func (q *Queue) Reorder(lookup func(id int) *car.Car) {
	sort.SliceStable(q.CarIDs, func(i, j int) bool {
		return lookup(q.CarIDs[i]).PositionS < lookup(q.CarIDs[j]).PositionS
	})
}

// AdvanceCars steps every car in the queue under car-following, front to
// back. The front car's "predecessor" is the stop-line: its gap is its own
// PositionS plus SafeDistance, because Step keeps SafeDistance clear of
// whatever is ahead and the front car has to be able to reach s=0. Every
// other car's predecessor is the next car ahead of it in the ordered list.
func (q *Queue) AdvanceCars(dt float64, cfg car.CarFollowingConfig, lookup func(id int) *car.Car) {
	for i, id := range q.CarIDs {
		c := lookup(id)
		if c.Status == car.Serving {
			continue // serving cars don't move along the waitline
		}
		var gap float64
		if i == 0 {
			gap = c.PositionS + cfg.SafeDistance
		} else {
			ahead := lookup(q.CarIDs[i-1])
			gap = c.PositionS - ahead.PositionS
		}
		if gap < 0 {
			gap = 0
		}
		c.Step(dt, gap, cfg.MaxVelocity, cfg)
	}
}

// AssignIdleBooths pulls the front waiting car(s) into any idle booths,
// once they have reached the stop-line. Returns the ids of cars that
// transitioned to Serving this call, in assignment order.
func (q *Queue) AssignIdleBooths(now float64, lookup func(id int) *car.Car, rng *distributions.Generator) []int {
	var assigned []int
	for _, b := range q.Booths {
		if b.IsBusy {
			continue
		}
		frontID, ok := q.frontWaitingCar(lookup)
		if !ok {
			break
		}
		c := lookup(frontID)
		c.Status = car.Serving
		c.BoothID = b.NodeID
		c.ServiceStart = now
		c.Velocity = 0
		b.Accept(frontID, now, rng)
		q.Remove(frontID)
		assigned = append(assigned, frontID)
	}
	return assigned
}

func (q *Queue) frontWaitingCar(lookup func(id int) *car.Car) (int, bool) {
	for _, id := range q.CarIDs {
		c := lookup(id)
		if c.Status == car.Queued && c.AtStopLine() {
			return id, true
		}
		// Only the true front car can ever be at the stop line; if it
		// isn't there yet, nothing behind it can be either.
		break
	}
	return 0, false
}
