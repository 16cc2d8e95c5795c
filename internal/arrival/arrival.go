// Package arrival implements the Poisson arrival process of spec.md §4.1.
package arrival

import "github.com/cxd309/bordersim/internal/distributions"

// Source generates arrivals at rate λ (cars/minute). The next arrival time
// is drawn fresh at each admission, matching the spec's "next inter-arrival
// is drawn at each admission from Exp(λ)".
type Source struct {
	RatePerMinute float64
	NextArrival   float64
}

// New returns a Source with its first arrival already scheduled.
func New(ratePerMinute float64, rng *distributions.Generator) *Source {
	s := &Source{RatePerMinute: ratePerMinute}
	s.scheduleNext(0, rng)
	return s
}

// Due reports whether an arrival is scheduled at or before simTime.
func (s *Source) Due(simTime float64) bool {
	return s.NextArrival <= simTime
}

// Advance consumes the due arrival and schedules the next one from the
// consumed arrival's own due time — not the tick horizon passed in — so a
// busy slice admits every arrival a true Poisson process would produce
// instead of at most one per processArrivals call. Returns the sim-time
// the consumed arrival was due at (used as the spawn time).
func (s *Source) Advance(simTime float64, rng *distributions.Generator) float64 {
	due := s.NextArrival
	s.scheduleNext(due, rng)
	return due
}

func (s *Source) scheduleNext(from float64, rng *distributions.Generator) {
	// RatePerMinute is cars/minute; inter-arrival times are drawn in
	// minutes from Exp(λ) and converted to sim-seconds.
	interArrivalMinutes := rng.Exponential(s.RatePerMinute)
	s.NextArrival = from + interArrivalMinutes*60.0
}
