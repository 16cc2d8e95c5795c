package orchestrator

import (
	"sort"

	"github.com/cxd309/bordersim/internal/assignment"
	"github.com/cxd309/bordersim/internal/car"
	"github.com/cxd309/bordersim/internal/config"
	"github.com/cxd309/bordersim/internal/queue"
)

// stepOnce advances the simulation by dt sim-seconds: spec.md §4.6 steps
// 3-6 (arrivals, car-following, booth completions/admission, telemetry).
// Control-op intake (step 1) and publish (step 7) are handled by the
// caller, since the "advance" test hook needs to repeat just this part.
func (s *Simulation) stepOnce(dt float64) {
	s.processArrivals(s.simTime + dt)
	s.simTime += dt

	for _, q := range s.queues {
		q.AdvanceCars(dt, s.carCfg, s.lookupCar)
		q.Reorder(s.lookupCar)
	}

	for _, q := range s.queues {
		s.processCompletions(q)
		q.AssignIdleBooths(s.simTime, s.lookupCar, s.rng)
	}

	if s.telemetryEnabled && s.archive != nil {
		s.emitTelemetry()
	}
}

func (s *Simulation) lookupCar(id int) *car.Car {
	return s.cars[id]
}

// processArrivals spawns every arrival due at or before horizon, routing
// each through the assignment policy and dropping it (counted, not
// retried) if every queue is full — spec.md §4.1.
func (s *Simulation) processArrivals(horizon float64) {
	for s.arrivalSrc.Due(horizon) {
		spawnTime := s.arrivalSrc.Advance(horizon, s.rng)
		s.stats.RecordArrival()

		idx, ok := s.policy.Select(s.queues, s.rng)
		if !ok {
			s.stats.RecordDrop()
			continue
		}
		q := s.queues[idx]

		s.nextCar++
		c := &car.Car{
			ID:        s.nextCar,
			Status:    car.Arriving,
			SpawnTime: spawnTime,
			PositionS: q.TailPosition(s.carCfg.SafeDistance, s.lookupCar),
			Phone:     carPhoneConfig(s.phoneCfg),
		}
		if !q.Admit(c) {
			s.stats.RecordDrop()
			continue
		}
		assignment.Advance(s.policy, idx)
		s.cars[c.ID] = c
	}
}

// processCompletions checks every busy booth in q and transitions finished
// cars to Completed, folding their wait/service time into Stats.
func (s *Simulation) processCompletions(q *queue.Queue) {
	for _, b := range q.Booths {
		carID, ok := b.TryComplete(s.simTime)
		if !ok {
			continue
		}
		c := s.cars[carID]
		c.Status = car.Completed
		c.CompleteTime = s.simTime
		wait := c.ServiceStart - c.SpawnTime
		serviceTime := c.CompleteTime - c.ServiceStart
		b.Stats.TotalServiceTime += serviceTime
		s.stats.RecordCompletion(wait, serviceTime)
	}
}

// carPhoneConfig converts the config surface's phone_config into the
// per-car snapshot each car keeps, so later mutation of a global default
// doesn't affect cars already on the road.
func carPhoneConfig(p config.PhoneConfig) car.PhoneConfig {
	return car.PhoneConfig{
		SamplingRateHz:         p.SamplingRate,
		GPSHorizontalAccuracyM: p.GPSNoise.HorizontalAccuracy,
		GPSVerticalAccuracyM:   p.GPSNoise.VerticalAccuracy,
		AccelerometerNoiseStd:  p.AccelerometerNoise,
		GyroNoiseStd:           p.GyroNoise,
		DeviceOrientation:      p.DeviceOrientation,
	}
}

// emitTelemetry walks live cars in a fixed order (ascending id) before
// drawing any RNG-backed sensor noise, so a fixed seed reproduces the exact
// same frames byte-for-byte regardless of Go's randomized map iteration
// order — spec.md §8's determinism law.
func (s *Simulation) emitTelemetry() {
	ids := make([]int, 0, len(s.cars))
	for id, c := range s.cars {
		if c.Status != car.Completed {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	cars := make([]*car.Car, len(ids))
	for i, id := range ids {
		cars[i] = s.cars[id]
	}

	due := s.synth.DueCars(cars, s.simTime)
	for _, c := range due {
		wl := s.waitlines[c.QueueID]
		if wl == nil {
			continue
		}
		frame := s.synth.Sample(c, wl, s.simTime, float64(s.wallStart.Unix()), s.rng)
		_ = s.archive.WriteFrame(frame)
	}
}
