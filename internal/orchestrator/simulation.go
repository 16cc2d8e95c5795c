// Package orchestrator is the simulation's tick-loop owner: the single
// writer of all simulation state, per spec.md §4.6 and §5.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cxd309/bordersim/internal/archive"
	"github.com/cxd309/bordersim/internal/arrival"
	"github.com/cxd309/bordersim/internal/assignment"
	"github.com/cxd309/bordersim/internal/booth"
	"github.com/cxd309/bordersim/internal/broadcast"
	"github.com/cxd309/bordersim/internal/car"
	"github.com/cxd309/bordersim/internal/config"
	"github.com/cxd309/bordersim/internal/control"
	"github.com/cxd309/bordersim/internal/distributions"
	"github.com/cxd309/bordersim/internal/queue"
	"github.com/cxd309/bordersim/internal/stats"
	"github.com/cxd309/bordersim/internal/telemetry"
	"github.com/cxd309/bordersim/internal/waitline"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

// Status is the simulation lifecycle state of spec.md §3.
type Status string

const (
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
	Cancelled Status = "cancelled"
)

// maxSimSlice bounds a single wall-clock-derived tick's sim-time advance,
// per spec.md §4.6 step 2, so a paused process can't produce one huge Δt.
const maxSimSlice = 1.0

// tickInterval is the cooperative timer cadence spec.md §4.6 targets.
const tickInterval = 50 * time.Millisecond

// Simulation owns every piece of mutable state for one run: the RNG, the
// waitlines, the arena of cars/queues/booths (referenced by id, never by
// pointer cycle — spec.md §9), the control intake, the observer hub, and
// the telemetry archive.
type Simulation struct {
	ID string

	status     Status
	statusMsg  string
	simTime    float64
	wallStart  time.Time
	timeFactor float64

	rng       *distributions.Generator
	waitlines map[int]*waitline.Waitline
	carCfg    car.CarFollowingConfig
	phoneCfg  config.PhoneConfig

	cars    map[int]*car.Car
	nextCar int

	queues   []*queue.Queue
	nextNode int

	arrivalSrc *arrival.Source
	policy     assignment.Policy

	synth   *telemetry.Synthesizer
	archive *archive.CSVSink

	intake *control.Intake
	hub    *broadcast.Hub
	stats  stats.Stats

	publishPeriod time.Duration
	lastPublish   time.Time

	maxSimTime       float64
	telemetryEnabled bool

	lastSnapshot atomic.Value // holds Snapshot
}

// Dependencies bundles everything a Simulation needs that comes from
// outside (the real path loader, the CSV destination) so New stays small.
type Dependencies struct {
	Config        config.Request
	Seed          int64
	Waitlines     map[int]*waitline.Waitline // keyed by queue index
	Archive       *archive.CSVSink
	IntakeBuffer  int
	PublishPeriod time.Duration
}

// New builds a Simulation ready to Run. Validation is assumed already done
// by the caller (internal/config.Request.Validate), per spec.md §7
// ("rejected at start... simulation not created").
func New(id string, deps Dependencies) *Simulation {
	simCfg := config.DefaultSimulationConfig()
	if deps.Config.Simulation != nil {
		simCfg = *deps.Config.Simulation
	}
	phoneCfg := config.DefaultPhoneConfig()
	if deps.Config.Phone != nil {
		phoneCfg = *deps.Config.Phone
	}

	rng := distributions.New(deps.Seed)
	policy, _ := assignment.New(deps.Config.Border.QueueAssignment) // validated already

	nodeID := 1
	queues := make([]*queue.Queue, deps.Config.Border.NumQueues)
	rateIdx := 0
	for i := 0; i < deps.Config.Border.NumQueues; i++ {
		n := deps.Config.Border.NodesPerQueue[i]
		booths := make([]*booth.Booth, 0, n)
		for j := 0; j < n; j++ {
			booths = append(booths, booth.New(nodeID, i, deps.Config.Border.ServiceRates[rateIdx]))
			nodeID++
			rateIdx++
		}
		queues[i] = queue.New(i, deps.Config.Border.MaxQueueLength, booths)
	}

	publishPeriod := deps.PublishPeriod
	if publishPeriod <= 0 {
		publishPeriod = time.Second
	}

	s := &Simulation{
		ID:               id,
		status:           Running,
		wallStart:        time.Now(),
		timeFactor:       simCfg.TimeFactor,
		rng:              rng,
		waitlines:        deps.Waitlines,
		carCfg:           carFollowingConfigFrom(deps.Config.Border),
		phoneCfg:         phoneCfg,
		cars:             make(map[int]*car.Car),
		queues:           queues,
		nextNode:         nodeID,
		arrivalSrc:       arrival.New(deps.Config.Border.ArrivalRate, rng),
		policy:           policy,
		synth:            telemetry.New(),
		archive:          deps.Archive,
		intake:           control.NewIntake(deps.IntakeBuffer),
		hub:              broadcast.NewHub(),
		publishPeriod:    publishPeriod,
		maxSimTime:       simCfg.MaxSimulationTime,
		telemetryEnabled: simCfg.EnableTelemetry,
	}
	return s
}

func carFollowingConfigFrom(b config.BorderConfig) car.CarFollowingConfig {
	cfg := car.DefaultCarFollowingConfig()
	cfg.SafeDistance = b.SafeDistance
	return cfg
}

// Intake returns the FIFO external callers submit control.Op values to.
func (s *Simulation) Intake() *control.Intake {
	return s.intake
}

// Hub returns the observer/broadcast plane for this simulation.
func (s *Simulation) Hub() *broadcast.Hub {
	return s.hub
}

// Snapshot returns the most recently published snapshot, safe to call
// concurrently from any goroutine (HTTP status/state handlers) — this is
// the one piece of simulation state readable off the orchestrator's
// single-writer thread, via copy-on-publish (spec.md §9).
func (s *Simulation) Snapshot() Snapshot {
	if v := s.lastSnapshot.Load(); v != nil {
		return v.(Snapshot)
	}
	return s.buildSnapshot()
}

// Run drives the tick loop until ctx is cancelled or the simulation
// reaches a terminal state. Mirrors the teacher's errgroup.WithContext use
// in fastview/client.go.Sync(), generalized from one websocket client's
// read/ping/publish trio to the whole simulation's tick/control lifecycle.
func (s *Simulation) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.status = Failed
			s.statusMsg = fmt.Sprintf("panic: %v", r)
			s.finalize()
			err = fmt.Errorf("orchestrator: simulation %s panicked: %v", s.ID, r)
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	ticks := channerics.NewTicker(groupCtx.Done(), tickInterval)

	group.Go(func() error {
		lastWall := time.Now()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticks:
				now := time.Now()
				wallElapsed := now.Sub(lastWall).Seconds()
				lastWall = now
				if s.status != Running {
					s.finalize()
					return nil
				}
				s.applyPendingOps()
				if s.status != Running {
					s.finalize()
					return nil
				}
				dt := wallElapsed * s.timeFactor
				if dt > maxSimSlice {
					dt = maxSimSlice
				}
				if dt > 0 {
					s.stepOnce(dt)
				}
				s.maybePublish()
				if s.simTime >= s.maxSimTime {
					s.status = Completed
					s.finalize()
					return nil
				}
			}
		}
	})

	return group.Wait()
}

// finalize publishes one last snapshot and tears down the observer plane
// and archive, per spec.md §4.6 step 8 / §5 cancellation / §7 internal
// errors. From here on nothing drains the intake at a tick boundary, so a
// dedicated goroutine takes over answering every further Submit with
// ErrTerminal (spec.md §4.8) instead of letting it block forever.
func (s *Simulation) finalize() {
	s.publish()
	if s.archive != nil {
		_ = s.archive.Finalize()
	}
	s.hub.Close()
	go s.intake.RejectAll(control.ErrTerminal)
}
