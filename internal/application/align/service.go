// Package align is the application layer for the food-alignment engine:
// the orchestrating use case (AlignmentService) plus the cascade itself
// (Engine) and its per-stage collaborators.
package align

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/inbound"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
	apperrors "github.com/alignment-core/foodalign/pkg/errors"
)

// AlignmentService implements inbound.AlignmentService by validating the
// request and delegating each food to the Engine in turn. Modeled on
// internal/application/recipe/service.go: a thin struct wrapping a
// single collaborator plus a named logger.
type AlignmentService struct {
	engine *Engine
	config outbound.ConfigStore
	logger *zap.Logger
}

// NewAlignmentService constructs the inbound use case.
func NewAlignmentService(engine *Engine, config outbound.ConfigStore, logger *zap.Logger) inbound.AlignmentService {
	return &AlignmentService{
		engine: engine,
		config: config,
		logger: logger.Named("alignment-service"),
	}
}

// Align runs the cascade for every food in the request, in order, and
// assembles the per-image response. A stale config_fingerprint is
// rejected outright (spec.md §6.1: "callers pin a fingerprint to avoid
// mid-batch config drift").
func (s *AlignmentService) Align(ctx context.Context, req inbound.AlignRequest) (*inbound.AlignResponse, error) {
	cfg := s.config.Snapshot()
	if req.ConfigFingerprint != "" && cfg.Fingerprint != "" && req.ConfigFingerprint != cfg.Fingerprint {
		return nil, apperrors.NewConfigFingerprintStaleError(req.ConfigFingerprint, cfg.Fingerprint)
	}
	if len(req.Foods) == 0 {
		return nil, apperrors.NewBadRequestError("foods list must not be empty")
	}

	runID := req.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	ctx = WithRunID(ctx, runID)

	s.logger.Info("Aligning image",
		zap.String("run_id", runID.String()),
		zap.String("image_id", req.ImageID),
		zap.Int("food_count", len(req.Foods)),
	)

	results := make([]align.Result, 0, len(req.Foods))
	for i, food := range req.Foods {
		query := align.FoodQuery{
			Name:       food.Name,
			Form:       food.Form,
			MassG:      food.MassG,
			Confidence: food.Confidence,
			Modifiers:  food.Modifiers,
		}
		res := s.engine.Align(ctx, req.ImageID, i, query)
		results = append(results, res)
	}

	summary := s.engine.GuardSummary()
	s.logger.Info("Image alignment complete",
		zap.String("image_id", req.ImageID),
		zap.Int("accepted", summary.TotalAccepted),
		zap.Int("stageZ_used", summary.StageZUsageCount),
	)

	return &inbound.AlignResponse{
		RunID:         runID,
		ImageID:       req.ImageID,
		Foods:         results,
		ConfigVersion: cfg.Fingerprint,
		CodeRevision:  s.engine.codeRevision,
		NDBSnapshot:   s.engine.ndbSnapshot,
	}, nil
}
