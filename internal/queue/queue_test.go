package queue

import (
	"testing"

	"github.com/cxd309/bordersim/internal/booth"
	"github.com/cxd309/bordersim/internal/car"
	"github.com/cxd309/bordersim/internal/distributions"
)

func newLookup(cars map[int]*car.Car) func(int) *car.Car {
	return func(id int) *car.Car { return cars[id] }
}

func TestAdmitRespectsMaxLength(t *testing.T) {
	q := New(0, 1, nil)
	c1 := &car.Car{ID: 1}
	c2 := &car.Car{ID: 2}
	if !q.Admit(c1) {
		t.Fatalf("expected first car admitted")
	}
	if q.Admit(c2) {
		t.Fatalf("expected second car rejected at max length 1")
	}
	if q.Len() != 1 {
		t.Fatalf("expected length 1, got %d", q.Len())
	}
}

func TestAdmitSetsQueueIDAndStatus(t *testing.T) {
	q := New(3, 10, nil)
	c := &car.Car{ID: 1, Status: car.Arriving}
	q.Admit(c)
	if c.QueueID != 3 {
		t.Fatalf("expected QueueID 3, got %d", c.QueueID)
	}
	if c.Status != car.Queued {
		t.Fatalf("expected status Queued, got %v", c.Status)
	}
}

func TestRemove(t *testing.T) {
	q := New(0, 10, nil)
	q.CarIDs = []int{1, 2, 3}
	q.Remove(2)
	if len(q.CarIDs) != 2 || q.CarIDs[0] != 1 || q.CarIDs[1] != 3 {
		t.Fatalf("unexpected CarIDs after remove: %v", q.CarIDs)
	}
}

func TestReorderSortsByPosition(t *testing.T) {
	cars := map[int]*car.Car{
		1: {ID: 1, PositionS: 50},
		2: {ID: 2, PositionS: 10},
		3: {ID: 3, PositionS: 30},
	}
	q := New(0, 10, nil)
	q.CarIDs = []int{1, 2, 3}
	q.Reorder(newLookup(cars))
	want := []int{2, 3, 1}
	for i, id := range want {
		if q.CarIDs[i] != id {
			t.Fatalf("expected order %v, got %v", want, q.CarIDs)
		}
	}
}

func TestAssignIdleBoothsOnlyAtStopLine(t *testing.T) {
	cars := map[int]*car.Car{
		1: {ID: 1, PositionS: 5, Status: car.Queued},
	}
	b := booth.New(1, 0, 60)
	q := New(0, 10, []*booth.Booth{b})
	q.CarIDs = []int{1}
	rng := distributions.New(1)

	assigned := q.AssignIdleBooths(0, newLookup(cars), rng)
	if len(assigned) != 0 {
		t.Fatalf("expected no assignment when car not at stop line, got %v", assigned)
	}

	cars[1].PositionS = 0
	assigned = q.AssignIdleBooths(0, newLookup(cars), rng)
	if len(assigned) != 1 || assigned[0] != 1 {
		t.Fatalf("expected car 1 assigned, got %v", assigned)
	}
	if cars[1].Status != car.Serving {
		t.Fatalf("expected car status Serving, got %v", cars[1].Status)
	}
	if !b.IsBusy {
		t.Fatalf("expected booth busy after assignment")
	}
	if q.Len() != 0 {
		t.Fatalf("expected car removed from queue after assignment, len=%d", q.Len())
	}
}

func TestAdvanceCarsSkipsServingCars(t *testing.T) {
	cars := map[int]*car.Car{
		1: {ID: 1, PositionS: 0, Status: car.Serving, Velocity: 3},
	}
	q := New(0, 10, nil)
	q.CarIDs = []int{1}
	cfg := car.DefaultCarFollowingConfig()
	q.AdvanceCars(1.0, cfg, newLookup(cars))
	if cars[1].Velocity != 3 {
		t.Fatalf("serving car should not be stepped, velocity changed to %f", cars[1].Velocity)
	}
}

func TestTailPositionEmptyQueue(t *testing.T) {
	q := New(0, 10, nil)
	got := q.TailPosition(4.0, newLookup(nil))
	if got != 4.0 {
		t.Fatalf("expected safeDistance for empty queue, got %f", got)
	}
}

func TestTailPositionBehindTailCar(t *testing.T) {
	cars := map[int]*car.Car{
		1: {ID: 1, PositionS: 20},
	}
	q := New(0, 10, nil)
	q.CarIDs = []int{1}
	got := q.TailPosition(4.0, newLookup(cars))
	if got != 24.0 {
		t.Fatalf("expected 24.0 (tail position + safe distance), got %f", got)
	}
}

func TestAdvanceCarsFrontUsesStopLineGap(t *testing.T) {
	cars := map[int]*car.Car{
		1: {ID: 1, PositionS: 100, Status: car.Queued},
	}
	q := New(0, 10, nil)
	q.CarIDs = []int{1}
	cfg := car.DefaultCarFollowingConfig()
	q.AdvanceCars(0.1, cfg, newLookup(cars))
	if cars[1].Velocity <= 0 {
		t.Fatalf("expected front car to accelerate toward free-flow, got velocity %f", cars[1].Velocity)
	}
}
