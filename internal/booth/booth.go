// Package booth implements the stateful service node described in
// spec.md §4.4: a single-car-at-a-time exponential server with a mutable
// rate.
package booth

import "github.com/cxd309/bordersim/internal/distributions"

// Stats accumulates a booth's lifetime totals. Read by the observer plane
// to compute utilization; mutated only by the owning orchestrator.
type Stats struct {
	TotalServed      int
	TotalServiceTime float64 // sum of sim-seconds spent serving, for mean service time
}

// Booth is a single service node. ServiceRate (μ) is cars/minute and may be
// mutated at any time; per spec.md §4.4/§9, mutating it never reschedules
// an in-flight completion, only affects the next Accept.
type Booth struct {
	NodeID      int
	QueueID     int
	ServiceRate float64

	IsBusy         bool
	CurrentCarID   int
	CompletionTime float64

	Stats Stats
}

// New returns an idle booth with the given rate (cars/minute).
func New(nodeID, queueID int, serviceRate float64) *Booth {
	return &Booth{NodeID: nodeID, QueueID: queueID, ServiceRate: serviceRate}
}

// SetRate mutates the service rate. Does not touch CompletionTime for any
// car already being served.
func (b *Booth) SetRate(rate float64) {
	b.ServiceRate = rate
}

// Accept puts carID into service at sim-time now, drawing a completion time
// from Exp(μ/60) seconds out (μ is cars/minute, so μ/60 is cars/second).
func (b *Booth) Accept(carID int, now float64, rng *distributions.Generator) {
	b.IsBusy = true
	b.CurrentCarID = carID
	b.CompletionTime = now + rng.Exponential(b.ServiceRate/60.0)
}

// TryComplete returns the car id and true if the booth's current service
// has finished by sim-time now, resetting the booth to idle and bumping
// TotalServed. The caller is responsible for adding the elapsed service
// time (now - car.ServiceStart) to Stats.TotalServiceTime, since the booth
// does not track when a car's service began.
func (b *Booth) TryComplete(now float64) (carID int, ok bool) {
	if !b.IsBusy || b.CompletionTime > now {
		return 0, false
	}
	carID = b.CurrentCarID
	b.IsBusy = false
	b.CurrentCarID = 0
	b.Stats.TotalServed++
	return carID, true
}
