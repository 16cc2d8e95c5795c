package stats

import "testing"

func TestRecordArrivalAndDrop(t *testing.T) {
	var s Stats
	s.RecordArrival()
	s.RecordArrival()
	s.RecordDrop()
	if s.TotalArrivals != 2 {
		t.Fatalf("expected 2 arrivals, got %d", s.TotalArrivals)
	}
	if s.Dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", s.Dropped)
	}
}

func TestMeanWaitAndServiceTime(t *testing.T) {
	var s Stats
	s.RecordCompletion(10, 5)
	s.RecordCompletion(20, 15)
	if got := s.MeanWait(); got != 15 {
		t.Fatalf("expected mean wait 15, got %f", got)
	}
	if got := s.MeanServiceTime(); got != 10 {
		t.Fatalf("expected mean service time 10, got %f", got)
	}
}

func TestMeanWaitZeroCompletions(t *testing.T) {
	var s Stats
	if s.MeanWait() != 0 || s.MeanServiceTime() != 0 {
		t.Fatalf("expected zero means with no completions")
	}
}

func TestThroughput(t *testing.T) {
	var s Stats
	s.RecordCompletion(1, 1)
	s.RecordCompletion(1, 1)
	if got := s.Throughput(120); got != 1 {
		t.Fatalf("expected 1 completion/min over 120 sim-seconds, got %f", got)
	}
	if got := s.Throughput(0); got != 0 {
		t.Fatalf("expected 0 throughput with no elapsed time, got %f", got)
	}
}

func TestInSystemConservationLaw(t *testing.T) {
	var s Stats
	s.RecordArrival()
	s.RecordArrival()
	s.RecordArrival()
	s.RecordCompletion(1, 1)
	s.RecordDrop()
	if got := s.InSystem(); got != 1 {
		t.Fatalf("expected 1 car in system (3 arrivals - 1 completion - 1 drop), got %d", got)
	}
}
