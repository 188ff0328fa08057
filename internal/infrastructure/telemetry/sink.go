// Package telemetry provides the outbound.TelemetrySink implementations
// for the alignment core's per-food Telemetry Event stream (spec.md
// §3/§6.3): an append-only NDJSON file writer, and an optional
// Redis-backed fan-out for live tailing.
package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
	apperrors "github.com/alignment-core/foodalign/pkg/errors"
)

// FileSink implements outbound.TelemetrySink by appending one JSON line
// per Telemetry event to a file, the wire shape spec.md §6.3 specifies:
// "Line-delimited JSON; one record per food." Writes are serialized
// behind a mutex so multiple engine instances in a batch runner can
// share one sink safely (spec.md §5: "Shared resources").
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

var _ outbound.TelemetrySink = (*FileSink)(nil)

// NewFileSink opens path for appending, creating it if necessary.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, apperrors.Wrap(err, "opening telemetry sink file")
	}
	return &FileSink{file: f, writer: bufio.NewWriter(f)}, nil
}

// Emit writes one NDJSON line. Unknown-field tolerance is the consumer's
// obligation (spec.md §6.3); this sink only ever marshals the full
// struct, so added optional fields show up automatically.
func (s *FileSink) Emit(_ context.Context, event align.Telemetry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, "marshaling telemetry event")
	}
	if _, err := s.writer.Write(b); err != nil {
		return apperrors.Wrap(err, "writing telemetry event")
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return apperrors.Wrap(err, "writing telemetry newline")
	}
	return s.writer.Flush()
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}

// MultiSink fans a single Emit call out to every wrapped sink, stopping
// at the first error. Used to attach a RedisSink alongside a FileSink
// without the engine knowing about either concretely.
type MultiSink struct {
	sinks []outbound.TelemetrySink
}

var _ outbound.TelemetrySink = (*MultiSink)(nil)

func NewMultiSink(sinks ...outbound.TelemetrySink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Emit(ctx context.Context, event align.Telemetry) error {
	for _, s := range m.sinks {
		if err := s.Emit(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
