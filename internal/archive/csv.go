// Package archive implements the append-only telemetry CSV sink described
// in spec.md §4.5/§4.7/§6.
package archive

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/cxd309/bordersim/internal/telemetry"
)

// header is the CSV schema from spec.md §6, column order fixed.
var header = []string{
	"timestamp_iso8601", "car_id", "status", "queue_id",
	"latitude", "longitude", "heading_deg", "speed_mps",
	"accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z",
}

// CSVSink is the single writer of a simulation's telemetry file. Only the
// orchestrator ever calls WriteFrame (§5 "telemetry CSV file is written only
// by the orchestrator"), but Mutex guards against accidental concurrent
// finalize-during-write and lets other goroutines read RowCount and
// Finalized (the telemetry download handler checks Finalized).
type CSVSink struct {
	mu          sync.Mutex
	w           *csv.Writer
	closer      io.Closer
	wroteHeader bool
	rowCount    int
	finalized   bool
}

// New wraps w (typically an *os.File) as a CSV telemetry sink. closer may
// be nil if the caller manages the underlying writer's lifecycle itself.
func New(w io.Writer, closer io.Closer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w), closer: closer}
}

// WriteFrame appends one sensor frame as a CSV row, writing the header
// first if this is the sink's first row.
func (s *CSVSink) WriteFrame(f telemetry.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return fmt.Errorf("archive: sink already finalized")
	}
	if !s.wroteHeader {
		if err := s.w.Write(header); err != nil {
			return err
		}
		s.wroteHeader = true
	}
	row := []string{
		f.TimestampISO8601,
		strconv.Itoa(f.CarID),
		f.Status,
		strconv.Itoa(f.QueueID),
		strconv.FormatFloat(f.Latitude, 'f', 6, 64),
		strconv.FormatFloat(f.Longitude, 'f', 6, 64),
		strconv.FormatFloat(f.HeadingDeg, 'f', 2, 64),
		strconv.FormatFloat(f.SpeedMPS, 'f', 3, 64),
		strconv.FormatFloat(f.AccelX, 'f', 4, 64),
		strconv.FormatFloat(f.AccelY, 'f', 4, 64),
		strconv.FormatFloat(f.AccelZ, 'f', 4, 64),
		strconv.FormatFloat(f.GyroX, 'f', 4, 64),
		strconv.FormatFloat(f.GyroY, 'f', 4, 64),
		strconv.FormatFloat(f.GyroZ, 'f', 4, 64),
	}
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.rowCount++
	return nil
}

// RowCount returns the number of frames written so far.
func (s *CSVSink) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rowCount
}

// Finalize flushes any buffered rows and closes the underlying writer, if
// one was given. Safe to call more than once.
func (s *CSVSink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return nil
	}
	s.finalized = true
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Finalized reports whether Finalize has been called, gating the
// telemetry download endpoint (spec.md §7: download before terminal is a
// 409).
func (s *CSVSink) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}
