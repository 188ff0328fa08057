// Package inbound defines the primary ports the alignment core exposes
// to driving adapters (batch runners, CLIs, web front-ends -- all of
// which are out of this module's scope per spec.md §1, but which consume
// this interface). Mirrors internal/ports/inbound/recipe_service.go's
// command/DTO shape.
package inbound

import (
	"context"

	"github.com/google/uuid"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

// FoodInput is one food entry in an AlignRequest, matching spec.md §6.1.
type FoodInput struct {
	Name       string
	Form       string
	MassG      *float64
	Confidence *float64
	Modifiers  []string
}

// AlignRequest is one image's worth of detected foods (spec.md §6.1).
// RunID, when zero, is generated by AlignmentService and returned on
// AlignResponse so a caller batching many images can correlate every
// food's Telemetry event back to the image that produced it.
type AlignRequest struct {
	RunID             uuid.UUID
	ImageID          string
	Foods            []FoodInput
	ConfigFingerprint string
}

// AlignResponse is the per-image result (spec.md §6.1).
type AlignResponse struct {
	RunID        uuid.UUID
	ImageID      string
	Foods        []align.Result
	ConfigVersion string
	NDBSnapshot   string
	CodeRevision  string
}

// AlignmentService is the inbound port wrapping the Staged Alignment
// Engine with request validation and response shaping.
type AlignmentService interface {
	Align(ctx context.Context, req AlignRequest) (*AlignResponse, error)
}
