// Package car implements the per-vehicle physics state and the
// car-following kinematic step described in spec.md §4.3.
package car

import "math"

// Status is the car lifecycle state. Transitions are monotonic:
// Arriving -> Queued -> Serving -> Completed. No reversals.
type Status int

const (
	Arriving Status = iota
	Queued
	Serving
	Completed
)

func (s Status) String() string {
	switch s {
	case Arriving:
		return "arriving"
	case Queued:
		return "queued"
	case Serving:
		return "serving"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// PhoneConfig is the per-car snapshot of the telemetry device profile, held
// on the car so a car keeps the config it spawned with even if the global
// default changes mid-run.
type PhoneConfig struct {
	SamplingRateHz         float64
	GPSHorizontalAccuracyM float64
	GPSVerticalAccuracyM   float64
	AccelerometerNoiseStd  float64
	GyroNoiseStd           float64
	DeviceOrientation      string // "portrait" or "landscape"
}

// Car is a single vehicle in the simulation arena. Cars are referenced by
// id everywhere else (queues, booths) to avoid an object graph — see
// DESIGN.md "back-references".
type Car struct {
	ID       int
	QueueID  int
	BoothID  int // valid only while Status == Serving
	PositionS float64 // arc-length from queue head; larger = further back
	Velocity float64
	Accel    float64
	Status   Status

	SpawnTime    float64
	ServiceStart float64
	CompleteTime float64

	Phone PhoneConfig
}

// CarFollowingConfig bundles the tunables spec.md §4.3 names.
type CarFollowingConfig struct {
	MaxVelocity  float64 // v_max, m/s
	Tau          float64 // τ, seconds
	MaxAccel     float64 // a_max, m/s^2
	SafeDistance float64 // meters
	ReactionTime float64 // t_reaction, seconds
}

// DefaultCarFollowingConfig matches the approximate constants spec.md §4.3
// gives (v_max ~13.4 m/s, τ~1s, a_max~2 m/s^2).
func DefaultCarFollowingConfig() CarFollowingConfig {
	return CarFollowingConfig{
		MaxVelocity:  13.4,
		Tau:          1.0,
		MaxAccel:     2.0,
		SafeDistance: 4.0,
		ReactionTime: 1.0,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Step advances the car by dt seconds of sim time given the gap to its
// predecessor (or to the stop-line / booth if there is none) and the
// cfg tunables. targetVelocity is 0 while serving, v_max otherwise — the
// caller (Queue) decides which, since that depends on booth state.
//
// Implements spec.md §4.3 steps 3-6: clamp((target-v)/τ, -a_max, a_max),
// override with the safe-distance stopping deceleration when the gap is
// closing too fast, constant-acceleration integration (Δs = v·dt + ½·a·dt²
// from the pre-step velocity, v ← v + a·dt), and a no-overtake clamp on
// the resulting position delta.
func (c *Car) Step(dt, gap, targetVelocity float64, cfg CarFollowingConfig) {
	desiredAccel := clamp((targetVelocity-c.Velocity)/cfg.Tau, -cfg.MaxAccel, cfg.MaxAccel)

	const epsilon = 0.05
	reactionGap := cfg.SafeDistance + c.Velocity*cfg.ReactionTime
	if gap < reactionGap {
		closingRoom := math.Max(epsilon, gap-cfg.SafeDistance)
		stoppingAccel := -(c.Velocity * c.Velocity) / (2 * closingRoom)
		if stoppingAccel < desiredAccel {
			desiredAccel = stoppingAccel
		}
	}

	newVelocity := c.Velocity + desiredAccel*dt
	newVelocity = clamp(newVelocity, 0, cfg.MaxVelocity)

	deltaS := c.Velocity*dt + 0.5*desiredAccel*dt*dt
	if deltaS < 0 {
		deltaS = 0
	}
	// Never close more of the gap than is available, i.e. never overtake.
	maxDelta := math.Max(0, gap-cfg.SafeDistance)
	if deltaS > maxDelta {
		deltaS = maxDelta
	}

	c.Accel = desiredAccel
	c.Velocity = newVelocity
	c.PositionS -= deltaS
	if c.PositionS < 0 {
		c.PositionS = 0
	}
}

// AtStopLine reports whether the car has effectively reached the front of
// its queue and can be considered for booth assignment.
func (c *Car) AtStopLine() bool {
	const epsilon = 0.05
	return c.PositionS <= epsilon
}
