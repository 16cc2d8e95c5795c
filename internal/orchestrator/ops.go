package orchestrator

import (
	"errors"

	"github.com/cxd309/bordersim/internal/assignment"
	"github.com/cxd309/bordersim/internal/booth"
	"github.com/cxd309/bordersim/internal/car"
	"github.com/cxd309/bordersim/internal/control"
	"github.com/cxd309/bordersim/internal/queue"
)

var (
	errQueuesFull  = errors.New("orchestrator: every queue is at capacity")
	errNoSuchNode  = errors.New("orchestrator: no booth with that node id")
	errNoSuchQueue = errors.New("orchestrator: no queue with that id")
)

// applyPendingOps drains the control intake and applies every queued op in
// FIFO order at this tick boundary, per spec.md §4.8. Once the simulation
// is terminal, every remaining and future op is rejected with
// control.ErrTerminal rather than applied.
func (s *Simulation) applyPendingOps() {
	for _, op := range s.intake.Drain() {
		res := s.applyOp(op)
		if op.Result != nil {
			op.Result <- res
		}
	}
}

func (s *Simulation) applyOp(op control.Op) control.Result {
	if s.status != Running {
		return control.Result{Err: control.ErrTerminal}
	}
	switch op.Kind {
	case control.Cancel:
		return s.applyCancel()
	case control.AddCar:
		return s.applyAddCar(op)
	case control.UpdateBoothRate:
		return s.applyUpdateBoothRate(op)
	case control.AddBooth:
		return s.applyAddBooth(op)
	case control.SetTimeFactor:
		return s.applySetTimeFactor(op)
	case control.Advance:
		return s.applyAdvance(op)
	default:
		return control.Result{}
	}
}

func (s *Simulation) applyCancel() control.Result {
	s.status = Cancelled
	s.statusMsg = "cancelled by control op"
	return control.Result{CurrentTime: s.simTime}
}

// applyAddCar injects a car directly, bypassing the arrival source, per the
// add_car control surface of spec.md §4.8. Routed through the same
// assignment policy as a normal arrival.
func (s *Simulation) applyAddCar(op control.Op) control.Result {
	idx, ok := s.policy.Select(s.queues, s.rng)
	if !ok {
		return control.Result{Err: errQueuesFull}
	}
	q := s.queues[idx]

	phone := carPhoneConfig(s.phoneCfg)
	if op.Phone != nil {
		phone = *op.Phone
	}

	s.nextCar++
	c := &car.Car{
		ID:        s.nextCar,
		Status:    car.Arriving,
		SpawnTime: s.simTime,
		PositionS: q.TailPosition(s.carCfg.SafeDistance, s.lookupCar),
		Phone:     phone,
	}
	if !q.Admit(c) {
		return control.Result{Err: errQueuesFull}
	}
	s.stats.RecordArrival()
	assignment.Advance(s.policy, idx)
	s.cars[c.ID] = c
	return control.Result{CarID: c.ID, QueueID: q.ID, CurrentTime: s.simTime}
}

func (s *Simulation) applyUpdateBoothRate(op control.Op) control.Result {
	for _, q := range s.queues {
		for _, b := range q.Booths {
			if b.NodeID == op.NodeID {
				b.SetRate(op.Rate)
				return control.Result{NodeID: b.NodeID, NewRate: op.Rate, CurrentTime: s.simTime}
			}
		}
	}
	return control.Result{Err: errNoSuchNode}
}

func (s *Simulation) applyAddBooth(op control.Op) control.Result {
	var target *queue.Queue
	for _, q := range s.queues {
		if q.ID == op.QueueID {
			target = q
			break
		}
	}
	if target == nil {
		return control.Result{Err: errNoSuchQueue}
	}
	nodeID := s.nextNode
	s.nextNode++
	target.Booths = append(target.Booths, booth.New(nodeID, op.QueueID, op.Rate))
	return control.Result{NodeID: nodeID, QueueID: op.QueueID, NewRate: op.Rate, CurrentTime: s.simTime}
}

func (s *Simulation) applySetTimeFactor(op control.Op) control.Result {
	s.timeFactor = op.TimeFactor
	return control.Result{CurrentTime: s.simTime}
}

// applyAdvance is the test-only hook that steps the simulation forward by
// exactly DeltaSeconds of sim time, synchronously, independent of wall
// clock — spec.md §6's POST .../advance.
func (s *Simulation) applyAdvance(op control.Op) control.Result {
	before := s.stats.TotalCompletions
	s.stepOnce(op.DeltaSeconds)
	return control.Result{
		AdvancedBy:    op.DeltaSeconds,
		CompletedCars: s.stats.TotalCompletions - before,
		CurrentTime:   s.simTime,
	}
}
