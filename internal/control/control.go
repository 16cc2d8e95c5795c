// Package control implements the typed mutation FIFO of spec.md §4.8: the
// only way anything outside the orchestrator may affect simulation state.
package control

import (
	"errors"

	"github.com/cxd309/bordersim/internal/car"
)

// ErrTerminal is returned for any op submitted to a simulation that has
// already reached a terminal status (spec.md §4.8 idempotency rule).
var ErrTerminal = errors.New("control: simulation is already terminal")

// Kind enumerates the operations spec.md §4.8 lists.
type Kind int

const (
	Cancel Kind = iota
	AddCar
	UpdateBoothRate
	AddBooth
	SetTimeFactor
	Advance
)

// Op is one queued mutation, carrying whichever payload fields its Kind
// needs and a Result channel the submitter can block on.
type Op struct {
	Kind Kind

	// AddCar
	Phone *car.PhoneConfig

	// UpdateBoothRate
	NodeID int
	Rate   float64

	// AddBooth
	QueueID int

	// SetTimeFactor
	TimeFactor float64

	// Advance (test hook): block until this much sim-time has elapsed.
	DeltaSeconds float64

	Result chan Result
}

// Result is what the orchestrator posts back after applying an Op.
type Result struct {
	Err error

	// AddCar / AddBooth
	CarID   int
	QueueID int
	NodeID  int

	// UpdateBoothRate
	NewRate float64

	// Advance
	AdvancedBy     float64
	CompletedCars  int
	CurrentTime    float64
}

// Intake is the multi-producer FIFO the orchestrator drains once per tick.
// Its buffer capacity is set by NewIntake; while the buffer is full (always,
// if it is unbuffered) Submit and SubmitAsync block until the orchestrator
// drains.
type Intake struct {
	ops chan Op
}

// NewIntake returns an Intake with the given buffer capacity.
func NewIntake(capacity int) *Intake {
	return &Intake{ops: make(chan Op, capacity)}
}

// Submit enqueues op for the orchestrator's next tick boundary, and waits
// for its Result if op.Result is non-nil.
func (in *Intake) Submit(op Op) Result {
	in.ops <- op
	if op.Result == nil {
		return Result{}
	}
	return <-op.Result
}

// SubmitAsync enqueues op without waiting for a result (used for Cancel,
// where the caller doesn't need to block on the tick boundary).
func (in *Intake) SubmitAsync(op Op) {
	in.ops <- op
}

// Drain pulls every op currently queued, non-blocking, for the
// orchestrator to apply at a tick boundary.
func (in *Intake) Drain() []Op {
	var ops []Op
	for {
		select {
		case op := <-in.ops:
			ops = append(ops, op)
		default:
			return ops
		}
	}
}

// RejectAll answers every future op submitted to in with err, forever. The
// tick loop stops draining the intake once a simulation goes terminal
// (spec.md §4.8), so without this a Submit blocked on an unbuffered or
// full channel would hang instead of getting its 409. Call once, from a
// dedicated goroutine, after the tick loop's last drain.
func (in *Intake) RejectAll(err error) {
	for op := range in.ops {
		if op.Result != nil {
			op.Result <- Result{Err: err}
		}
	}
}
