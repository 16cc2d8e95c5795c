package booth

import (
	"testing"

	"github.com/cxd309/bordersim/internal/distributions"
)

func TestAcceptMarksBusy(t *testing.T) {
	b := New(1, 0, 60) // 1/s
	rng := distributions.New(1)
	b.Accept(42, 0, rng)
	if !b.IsBusy {
		t.Fatalf("expected booth to be busy after Accept")
	}
	if b.CurrentCarID != 42 {
		t.Fatalf("expected current car 42, got %d", b.CurrentCarID)
	}
	if b.CompletionTime <= 0 {
		t.Fatalf("expected positive completion time, got %f", b.CompletionTime)
	}
}

func TestTryCompleteBeforeDue(t *testing.T) {
	b := New(1, 0, 1) // slow: 1 car/min
	rng := distributions.New(1)
	b.Accept(1, 0, rng)
	if _, ok := b.TryComplete(0); ok {
		t.Fatalf("should not complete at sim-time 0 with a positive draw")
	}
}

func TestTryCompleteAfterDue(t *testing.T) {
	b := New(1, 0, 60)
	rng := distributions.New(1)
	b.Accept(7, 0, rng)
	carID, ok := b.TryComplete(b.CompletionTime + 0.001)
	if !ok {
		t.Fatalf("expected completion once sim-time passes CompletionTime")
	}
	if carID != 7 {
		t.Fatalf("expected car id 7, got %d", carID)
	}
	if b.IsBusy {
		t.Fatalf("booth should be idle after completion")
	}
	if b.Stats.TotalServed != 1 {
		t.Fatalf("expected TotalServed=1, got %d", b.Stats.TotalServed)
	}
}

func TestSetRateDoesNotAffectInFlightCompletion(t *testing.T) {
	b := New(1, 0, 1)
	rng := distributions.New(1)
	b.Accept(1, 0, rng)
	before := b.CompletionTime
	b.SetRate(100)
	if b.CompletionTime != before {
		t.Fatalf("SetRate must not touch an in-flight completion time")
	}
}

func TestTryCompleteOnIdleBoothIsNoop(t *testing.T) {
	b := New(1, 0, 60)
	if _, ok := b.TryComplete(1000); ok {
		t.Fatalf("idle booth should never report completion")
	}
}
