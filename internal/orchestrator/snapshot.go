package orchestrator

import (
	"time"

	"github.com/cxd309/bordersim/internal/car"
)

// CarSnapshot is the observer-facing view of one car, per spec.md §4.7.
type CarSnapshot struct {
	ID        int     `json:"id"`
	QueueID   int     `json:"queue_id"`
	BoothID   int     `json:"booth_id,omitempty"`
	PositionS float64 `json:"position_s"`
	Velocity  float64 `json:"velocity"`
	Accel     float64 `json:"accel"`
	Status    string  `json:"status"`
}

// BoothSnapshot is the observer-facing view of one booth.
type BoothSnapshot struct {
	NodeID          int     `json:"node_id"`
	QueueID         int     `json:"queue_id"`
	ServiceRate     float64 `json:"service_rate"`
	Busy            bool    `json:"busy"`
	TotalServed     int     `json:"total_served"`
	MeanServiceTime float64 `json:"mean_service_time"`
}

// QueueSnapshot is the observer-facing view of one queue.
type QueueSnapshot struct {
	ID     int             `json:"id"`
	Length int             `json:"length"`
	Booths []BoothSnapshot `json:"booths"`
}

// StatsSnapshot is the observer-facing view of internal/stats.Stats.
type StatsSnapshot struct {
	TotalArrivals    int     `json:"total_arrivals"`
	TotalCompletions int     `json:"total_completions"`
	Dropped          int     `json:"dropped"`
	InSystem         int     `json:"in_system"`
	MeanWait         float64 `json:"mean_wait"`
	MeanServiceTime  float64 `json:"mean_service_time"`
	ThroughputPerMin float64 `json:"throughput_per_min"`
}

// Snapshot is the full internally-consistent published state of one tick,
// per spec.md §4.7: everything an observer (websocket subscriber, the
// /state HTTP handler) needs, with no back-references into live simulation
// state (copy-on-publish, §9).
type Snapshot struct {
	SimID      string          `json:"sim_id"`
	Status     string          `json:"status"`
	StatusMsg  string          `json:"status_msg,omitempty"`
	SimTime    float64         `json:"sim_time"`
	MaxSimTime float64         `json:"max_sim_time"`
	TimeFactor float64         `json:"time_factor"`
	Queues     []QueueSnapshot `json:"queues"`
	Cars       []CarSnapshot   `json:"cars"`
	Stats      StatsSnapshot   `json:"stats"`
}

// buildSnapshot copies every piece of state an observer may read into a
// value with no pointers back into the live simulation arena.
func (s *Simulation) buildSnapshot() Snapshot {
	queues := make([]QueueSnapshot, len(s.queues))
	for i, q := range s.queues {
		booths := make([]BoothSnapshot, len(q.Booths))
		for j, b := range q.Booths {
			mean := 0.0
			if b.Stats.TotalServed > 0 {
				mean = b.Stats.TotalServiceTime / float64(b.Stats.TotalServed)
			}
			booths[j] = BoothSnapshot{
				NodeID:          b.NodeID,
				QueueID:         b.QueueID,
				ServiceRate:     b.ServiceRate,
				Busy:            b.IsBusy,
				TotalServed:     b.Stats.TotalServed,
				MeanServiceTime: mean,
			}
		}
		queues[i] = QueueSnapshot{ID: q.ID, Length: q.Len(), Booths: booths}
	}

	cars := make([]CarSnapshot, 0, len(s.cars))
	for _, c := range s.cars {
		cars = append(cars, carSnapshotOf(c))
	}

	return Snapshot{
		SimID:      s.ID,
		Status:     string(s.status),
		StatusMsg:  s.statusMsg,
		SimTime:    s.simTime,
		MaxSimTime: s.maxSimTime,
		TimeFactor: s.timeFactor,
		Queues:     queues,
		Cars:       cars,
		Stats: StatsSnapshot{
			TotalArrivals:    s.stats.TotalArrivals,
			TotalCompletions: s.stats.TotalCompletions,
			Dropped:          s.stats.Dropped,
			InSystem:         s.stats.InSystem(),
			MeanWait:         s.stats.MeanWait(),
			MeanServiceTime:  s.stats.MeanServiceTime(),
			ThroughputPerMin: s.stats.Throughput(s.simTime),
		},
	}
}

func carSnapshotOf(c *car.Car) CarSnapshot {
	return CarSnapshot{
		ID:        c.ID,
		QueueID:   c.QueueID,
		BoothID:   c.BoothID,
		PositionS: c.PositionS,
		Velocity:  c.Velocity,
		Accel:     c.Accel,
		Status:    c.Status.String(),
	}
}

// maybePublish publishes a snapshot if publishPeriod has elapsed since the
// last one (spec.md §4.7's throttled broadcast cadence).
func (s *Simulation) maybePublish() {
	if time.Since(s.lastPublish) < s.publishPeriod {
		return
	}
	s.publish()
}

// publish builds and stores a snapshot unconditionally, then fans it out to
// the observer hub.
func (s *Simulation) publish() {
	snap := s.buildSnapshot()
	s.lastSnapshot.Store(snap)
	s.lastPublish = time.Now()
	s.hub.Publish(snap)
}
