// Package stats maintains the incremental run statistics of spec.md §3's
// Stats entity.
package stats

// Stats is owned exclusively by the orchestrator (single-writer, §5), so
// plain fields suffice — no atomics needed, unlike the teacher's
// atomic_float (that package existed because many RL workers wrote the
// same value function concurrently; here only one goroutine ever mutates
// Stats, so a lock-free struct would be solving a problem we don't have).
type Stats struct {
	TotalArrivals   int
	TotalCompletions int
	Dropped         int

	sumWait         float64
	sumServiceTime  float64
}

// RecordArrival bumps the arrival counter (spec.md §8 conservation law).
func (s *Stats) RecordArrival() {
	s.TotalArrivals++
}

// RecordDrop bumps the dropped-arrival counter (queue full, spec.md §4.1).
func (s *Stats) RecordDrop() {
	s.Dropped++
}

// RecordCompletion bumps completions and folds in one car's wait time
// (spawn to service-start) and service time (service-start to complete).
func (s *Stats) RecordCompletion(wait, serviceTime float64) {
	s.TotalCompletions++
	s.sumWait += wait
	s.sumServiceTime += serviceTime
}

// MeanWait returns the running mean wait time across all completions.
func (s *Stats) MeanWait() float64 {
	if s.TotalCompletions == 0 {
		return 0
	}
	return s.sumWait / float64(s.TotalCompletions)
}

// MeanServiceTime returns the running mean service time across all
// completions.
func (s *Stats) MeanServiceTime() float64 {
	if s.TotalCompletions == 0 {
		return 0
	}
	return s.sumServiceTime / float64(s.TotalCompletions)
}

// Throughput returns completions per minute over the elapsed sim-seconds.
func (s *Stats) Throughput(elapsedSimSeconds float64) float64 {
	if elapsedSimSeconds <= 0 {
		return 0
	}
	return float64(s.TotalCompletions) / (elapsedSimSeconds / 60.0)
}

// InSystem returns the count of cars neither completed nor dropped, per
// the conservation law in spec.md §8: arrivals = completions + in-system + dropped.
func (s *Stats) InSystem() int {
	n := s.TotalArrivals - s.TotalCompletions - s.Dropped
	if n < 0 {
		return 0
	}
	return n
}
