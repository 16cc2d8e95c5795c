package archive

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cxd309/bordersim/internal/telemetry"
)

type nopCloser struct{ closed bool }

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func TestWriteFrameWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf, nil)
	frame := telemetry.Frame{TimestampISO8601: "2026-01-01T00:00:00Z", CarID: 1, Status: "queued"}
	sink.WriteFrame(frame)
	sink.WriteFrame(frame)
	sink.Finalize()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows = 3 lines, got %d: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "timestamp_iso8601,") {
		t.Fatalf("expected header as first line, got %q", lines[0])
	}
}

func TestRowCount(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf, nil)
	for i := 0; i < 5; i++ {
		sink.WriteFrame(telemetry.Frame{CarID: i})
	}
	if sink.RowCount() != 5 {
		t.Fatalf("expected row count 5, got %d", sink.RowCount())
	}
}

func TestFinalizeClosesUnderlyingCloser(t *testing.T) {
	var buf bytes.Buffer
	nc := &nopCloser{}
	sink := New(&buf, nc)
	sink.Finalize()
	if !nc.closed {
		t.Fatalf("expected closer to be closed on Finalize")
	}
	if !sink.Finalized() {
		t.Fatalf("expected Finalized() true after Finalize")
	}
}

func TestWriteAfterFinalizeErrors(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf, nil)
	sink.Finalize()
	if err := sink.WriteFrame(telemetry.Frame{}); err == nil {
		t.Fatalf("expected error writing to a finalized sink")
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	nc := &nopCloser{}
	sink := New(&buf, nc)
	if err := sink.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("expected second Finalize to be a no-op, got %v", err)
	}
}
