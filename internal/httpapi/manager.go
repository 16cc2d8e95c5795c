// Package httpapi is the thin HTTP/WebSocket façade spec.md §1 frames as an
// external collaborator: it exists so the simulation core is runnable end
// to end, translating requests into control.Op values and reading
// orchestrator snapshots for responses. Business rules live in
// internal/orchestrator and internal/control, not here.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/cxd309/bordersim/internal/archive"
	"github.com/cxd309/bordersim/internal/config"
	"github.com/cxd309/bordersim/internal/orchestrator"
	"github.com/cxd309/bordersim/internal/waitline"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by Manager lookups for an unknown simulation id.
var ErrNotFound = errors.New("httpapi: unknown simulation id")

// entry is everything the Manager tracks for one running simulation.
type entry struct {
	sim     *orchestrator.Simulation
	cancel  context.CancelFunc
	archive *archive.CSVSink
	csvBuf  *bytes.Buffer
}

// Manager owns the registry of live simulations, keyed by the uuid each
// POST /simulate call mints. One Manager serves the whole process.
type Manager struct {
	log *logrus.Logger

	mu   sync.Mutex
	sims map[string]*entry
}

// NewManager returns an empty Manager logging through log.
func NewManager(log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{log: log, sims: make(map[string]*entry)}
}

// Start validates req, builds a Simulation, launches its tick loop in a new
// goroutine, and returns the id it was registered under.
func (m *Manager) Start(req config.Request) (string, *orchestrator.Simulation, error) {
	if err := req.Validate(); err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	waitlines := make(map[int]*waitline.Waitline, req.Border.NumQueues)
	for i := 0; i < req.Border.NumQueues; i++ {
		origin := waitline.Point{Lat: 32.5 + float64(i)*0.001, Lon: -117.0}
		waitlines[i] = waitline.NewStraightLine(origin, 90, 300)
	}

	var buf bytes.Buffer
	sink := archive.New(&buf, nil)

	sim := orchestrator.New(id, orchestrator.Dependencies{
		Config:    req,
		Seed:      int64(uuid.New().ID()),
		Waitlines: waitlines,
		Archive:   sink,
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.sims[id] = &entry{sim: sim, cancel: cancel, archive: sink, csvBuf: &buf}
	m.mu.Unlock()

	go func() {
		if err := sim.Run(ctx); err != nil {
			m.log.WithFields(logrus.Fields{"simulation_id": id}).WithError(err).Error("simulation run ended with error")
		}
	}()

	return id, sim, nil
}

// Get returns the named simulation, or ErrNotFound.
func (m *Manager) Get(id string) (*orchestrator.Simulation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sims[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.sim, nil
}

// Shutdown cancels every running simulation's context, for a clean process
// exit (cmd/bordersim calls this on SIGINT/SIGTERM).
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sims {
		e.cancel()
	}
}

// TelemetryCSV returns the finalized CSV bytes for id, or an error if the
// simulation isn't terminal yet (spec.md §7: download before terminal is
// 409) or doesn't exist.
func (m *Manager) TelemetryCSV(id string) ([]byte, error) {
	m.mu.Lock()
	e, ok := m.sims[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if e.archive == nil || !e.archive.Finalized() {
		return nil, ErrNotTerminal
	}
	return e.csvBuf.Bytes(), nil
}

// ErrNotTerminal is returned for actions that require a terminal simulation
// (telemetry download) requested too early.
var ErrNotTerminal = errors.New("httpapi: simulation is not yet terminal")
