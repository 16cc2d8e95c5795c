// Package telemetry synthesizes per-car mobile-phone sensor frames from
// car kinematics, per spec.md §4.5.
package telemetry

import (
	"math"
	"time"

	"github.com/cxd309/bordersim/internal/car"
	"github.com/cxd309/bordersim/internal/distributions"
	"github.com/cxd309/bordersim/internal/waitline"
)

const gravity = 9.80665 // m/s^2, vertical accelerometer baseline

// Frame is one synthesized sensor sample, and the row shape the CSV sink
// writes (column order matches spec.md §6's CSV schema exactly).
type Frame struct {
	TimestampISO8601 string
	CarID            int
	Status           string
	QueueID          int
	Latitude         float64
	Longitude        float64
	HeadingDeg       float64
	SpeedMPS         float64
	AccelX, AccelY, AccelZ float64
	GyroX, GyroY, GyroZ    float64
}

// nextDue tracks, per car id, the sim-time of that car's next sample.
type Synthesizer struct {
	nextDue map[int]float64
}

// New returns an empty Synthesizer; cars are registered lazily on first
// Sample call.
func New() *Synthesizer {
	return &Synthesizer{nextDue: make(map[int]float64)}
}

// DueCars returns the cars, among those given, whose next sample is due at
// or before simTime.
func (s *Synthesizer) DueCars(cars []*car.Car, simTime float64) []*car.Car {
	var due []*car.Car
	for _, c := range cars {
		next, ok := s.nextDue[c.ID]
		if !ok {
			next = c.SpawnTime
		}
		if next <= simTime {
			due = append(due, c)
		}
	}
	return due
}

// Sample produces one sensor frame for c at sim-time simTime and advances
// that car's next-due time by 1/sampling_rate. rng supplies the noise
// draws so the whole run stays reproducible under a fixed seed.
func (s *Synthesizer) Sample(c *car.Car, wl *waitline.Waitline, simTime, baseUnixTime float64, rng *distributions.Generator) Frame {
	period := 1.0
	if c.Phone.SamplingRateHz > 0 {
		period = 1.0 / c.Phone.SamplingRateHz
	}
	prior := s.nextDue[c.ID]
	if prior == 0 {
		prior = c.SpawnTime
	}
	s.nextDue[c.ID] = prior + period

	lat, lon, heading := wl.PointAt(c.PositionS)
	lat += rng.Gaussian(0, c.Phone.GPSHorizontalAccuracyM/2) / metersPerDegree
	lon += rng.Gaussian(0, c.Phone.GPSHorizontalAccuracyM/2) / metersPerDegree

	curvature := wl.CurvatureAt(c.PositionS)
	longAccel := c.Accel
	latAccel := c.Velocity * c.Velocity * curvature
	vertAccel := gravity

	ax, ay, az := remapAxes(c.Phone.DeviceOrientation, longAccel, latAccel, vertAccel)
	ax += rng.Gaussian(0, c.Phone.AccelerometerNoiseStd)
	ay += rng.Gaussian(0, c.Phone.AccelerometerNoiseStd)
	az += rng.Gaussian(0, c.Phone.AccelerometerNoiseStd)

	yawRate := c.Velocity * curvature
	pitch := rng.Gaussian(0, c.Phone.GyroNoiseStd)
	roll := rng.Gaussian(0, c.Phone.GyroNoiseStd)

	return Frame{
		TimestampISO8601: formatISO8601(baseUnixTime + simTime),
		CarID:            c.ID,
		Status:           c.Status.String(),
		QueueID:          c.QueueID,
		Latitude:         lat,
		Longitude:        lon,
		HeadingDeg:       heading,
		SpeedMPS:         c.Velocity,
		AccelX:           ax,
		AccelY:           ay,
		AccelZ:           az,
		GyroX:            yawRate,
		GyroY:            pitch,
		GyroZ:            roll,
	}
}

// metersPerDegree approximates meters-per-degree-latitude for converting a
// meter-scale GPS noise draw into a coordinate offset; adequate at the
// scale of one queue's waitline (see internal/waitline for the same
// approximation used for arc length).
const metersPerDegree = 111320.0

// remapAxes places longitudinal acceleration on the y-axis in portrait
// mode (phone held upright, long axis vertical) or the x-axis in
// landscape mode, per spec.md §4.5. Lateral goes on the other horizontal
// axis, vertical is always z.
func remapAxes(orientation string, longitudinal, lateral, vertical float64) (x, y, z float64) {
	if orientation == "landscape" {
		return longitudinal, lateral, vertical
	}
	return lateral, longitudinal, vertical
}

func formatISO8601(unixSeconds float64) string {
	sec := int64(math.Floor(unixSeconds))
	nsec := int64(math.Mod(unixSeconds, 1.0) * 1e9)
	return time.Unix(sec, nsec).UTC().Format(time.RFC3339Nano)
}
