package telemetry

import (
	"testing"

	"github.com/cxd309/bordersim/internal/car"
	"github.com/cxd309/bordersim/internal/distributions"
	"github.com/cxd309/bordersim/internal/waitline"
)

func testCar() *car.Car {
	return &car.Car{
		ID:        1,
		PositionS: 50,
		Velocity:  10,
		Accel:     1,
		Status:    car.Queued,
		Phone: car.PhoneConfig{
			SamplingRateHz:         10,
			GPSHorizontalAccuracyM: 5,
			AccelerometerNoiseStd:  0.01,
			GyroNoiseStd:           0.01,
			DeviceOrientation:      "portrait",
		},
	}
}

func TestSampleAdvancesNextDue(t *testing.T) {
	s := New()
	c := testCar()
	wl := waitline.NewStraightLine(waitline.Point{Lat: 32.5, Lon: -117}, 0, 200)
	rng := distributions.New(1)

	s.Sample(c, wl, 0, 1700000000, rng)
	if due := s.nextDue[c.ID]; due != 0.1 {
		t.Fatalf("expected next due 0.1s after sampling at rate 10Hz, got %f", due)
	}
}

func TestDueCarsUsesSpawnTimeInitially(t *testing.T) {
	s := New()
	c := testCar()
	c.SpawnTime = 5
	due := s.DueCars([]*car.Car{c}, 5)
	if len(due) != 1 {
		t.Fatalf("expected car due at its spawn time, got %d due", len(due))
	}
	due = s.DueCars([]*car.Car{c}, 4)
	if len(due) != 0 {
		t.Fatalf("expected car not due before spawn time, got %d due", len(due))
	}
}

func TestRemapAxesPortraitPutsLongitudinalOnY(t *testing.T) {
	x, y, z := remapAxes("portrait", 1, 2, 3)
	if y != 1 || x != 2 || z != 3 {
		t.Fatalf("portrait remap wrong: x=%f y=%f z=%f", x, y, z)
	}
}

func TestRemapAxesLandscapePutsLongitudinalOnX(t *testing.T) {
	x, y, z := remapAxes("landscape", 1, 2, 3)
	if x != 1 || y != 2 || z != 3 {
		t.Fatalf("landscape remap wrong: x=%f y=%f z=%f", x, y, z)
	}
}

func TestSampleHeadingMatchesWaitline(t *testing.T) {
	s := New()
	c := testCar()
	wl := waitline.NewStraightLine(waitline.Point{Lat: 32.5, Lon: -117}, 90, 200)
	rng := distributions.New(1)
	frame := s.Sample(c, wl, 0, 1700000000, rng)
	if frame.HeadingDeg < 89 || frame.HeadingDeg > 91 {
		t.Fatalf("expected heading ~90, got %f", frame.HeadingDeg)
	}
}

func TestSampleSpeedMatchesVelocity(t *testing.T) {
	s := New()
	c := testCar()
	wl := waitline.NewStraightLine(waitline.Point{Lat: 32.5, Lon: -117}, 0, 200)
	rng := distributions.New(1)
	frame := s.Sample(c, wl, 0, 1700000000, rng)
	if frame.SpeedMPS != c.Velocity {
		t.Fatalf("expected speed %f, got %f", c.Velocity, frame.SpeedMPS)
	}
}
