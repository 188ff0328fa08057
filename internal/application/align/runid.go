package align

import (
	"context"

	"github.com/google/uuid"
)

// ctxKey namespaces this package's context values, mirroring
// internal/infrastructure/monitoring/logging.go's request_id propagation
// in the teacher, typed here instead of a bare string key.
type ctxKey int

const runIDCtxKey ctxKey = iota

// WithRunID attaches a batch run identifier to ctx. AlignmentService.Align
// calls this once per AlignRequest so every food's Telemetry event in the
// batch carries the same run_id (spec.md §6.1/§6.3 correlation).
func WithRunID(ctx context.Context, runID uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDCtxKey, runID)
}

// runIDFromContext returns the run identifier attached by WithRunID, or
// the zero UUID if none was attached (a direct Engine.Align call outside
// AlignmentService, as the engine's own tests make).
func runIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(runIDCtxKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
