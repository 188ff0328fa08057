// Package outbound defines the interfaces the alignment core uses to
// reach external systems (NDB, semantic index, config store, telemetry
// sink). Mirrors internal/ports/outbound/repositories.go's role for the
// recipe domain: narrow, capability-shaped ports the application layer
// depends on, never concrete adapters.
package outbound

import (
	"context"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

// NDBReader is the read-only interface to the nutrition database
// (spec.md §4.2). Implementations own their own caching.
type NDBReader interface {
	Lookup(ctx context.Context, identifier int64) (*align.Entry, error)
	Search(ctx context.Context, keyword string, sourceFilter []align.SourceTag) ([]align.Entry, error)
	ContentFingerprint(ctx context.Context) (string, error)
}

// SemanticIndex is the optional nearest-neighbor retriever (spec.md
// §4.8). Loaded lazily; Ready reports whether a checksum-validated
// index is available so the engine can skip Stage 1S cleanly.
type SemanticIndex interface {
	Ready() bool
	TopK(ctx context.Context, queryEmbedding []float64, k int) ([]SemanticNeighbor, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

// SemanticNeighbor is one result from SemanticIndex.TopK.
type SemanticNeighbor struct {
	Entry      align.Entry
	Similarity float64
}

// ConfigStore exposes the frozen, fingerprinted configuration snapshot
// (spec.md §4.1).
type ConfigStore interface {
	Snapshot() *align.Config
}

// TelemetrySink accepts one Telemetry record per aligned food (spec.md
// §6.3). Implementations must tolerate concurrent calls from multiple
// engine instances in a batch runner.
type TelemetrySink interface {
	Emit(ctx context.Context, event align.Telemetry) error
}

// MetricsRecorder is the ambient observability port the Engine reports
// through; concrete Prometheus wiring lives in
// internal/infrastructure/metrics so the application layer never imports
// a Prometheus client directly.
type MetricsRecorder interface {
	Observe(stage align.Stage, seconds float64, accepted bool)
	ObserveGuardSummary(summary align.GuardSummary)
}
