package align

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
)

// SemanticRetriever implements spec.md §4.8's Stage 1S consumer logic:
// embed, retrieve top-K, filter by the class-aware energy band, and
// accept the best neighbor clearing semantic_min_sim. The cosine
// similarity itself is computed index-side (outbound.SemanticIndex); this
// layer is responsible only for the energy-band filter and the
// similarity-distribution diagnostics, using gonum/floats and gonum/stat.
type SemanticRetriever struct {
	index outbound.SemanticIndex
}

func NewSemanticRetriever(index outbound.SemanticIndex) *SemanticRetriever {
	return &SemanticRetriever{index: index}
}

// SemanticOutcome is the result of a Stage 1S attempt.
type SemanticOutcome struct {
	Found           bool
	Entry           align.Entry
	Similarity      float64
	TolerancePct    float64
	RejectionReason string
}

// Retrieve runs the Stage 1S cascade step. predictedKcal may be nil when
// the vision pipeline supplied no energy estimate, in which case the
// energy-band filter is a no-op (see CheckEnergyGuard).
func (r *SemanticRetriever) Retrieve(
	ctx context.Context,
	nq align.NormalizedQuery,
	classIntent align.ClassIntent,
	predictedKcal *float64,
	band align.EnergyGuardBand,
	flags align.FeatureFlags,
) SemanticOutcome {
	if !flags.EnableSemanticSearch {
		return SemanticOutcome{RejectionReason: "semantic search disabled"}
	}
	if r.index == nil || !r.index.Ready() {
		return SemanticOutcome{RejectionReason: "semantic_unavailable"}
	}

	vec, err := r.index.Embed(ctx, nq.CanonicalName)
	if err != nil {
		return SemanticOutcome{RejectionReason: "embedding failed: " + err.Error()}
	}

	k := flags.SemanticTopK
	if k <= 0 {
		k = 10
	}
	neighbors, err := r.index.TopK(ctx, vec, k)
	if err != nil {
		return SemanticOutcome{RejectionReason: "index lookup failed: " + err.Error()}
	}
	if len(neighbors) == 0 {
		return SemanticOutcome{RejectionReason: "no neighbors returned"}
	}

	tolerance := band.TolerancePct(nq.CoreClass)

	sims := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		sims = append(sims, n.Similarity)
	}
	_ = stat.Mean(sims, nil) // similarity-distribution diagnostic; not gating

	maxCand := flags.SemanticMaxCand
	if maxCand <= 0 || maxCand > len(neighbors) {
		maxCand = len(neighbors)
	}

	minSim := flags.SemanticMinSim
	if minSim == 0 {
		minSim = 0.62
	}

	best := -1
	for i := 0; i < maxCand; i++ {
		n := neighbors[i]
		if predictedKcal != nil {
			if !CheckEnergyGuard(*predictedKcal, n.Entry.Nutrients.EnergyKcal, tolerance) {
				continue
			}
		}
		if n.Similarity < minSim {
			continue
		}
		best = i
		break
	}
	if best < 0 {
		return SemanticOutcome{
			RejectionReason: "no neighbor cleared the energy band and min similarity",
			TolerancePct:    tolerance,
		}
	}

	winner := neighbors[best]
	return SemanticOutcome{
		Found:        true,
		Entry:        winner.Entry,
		Similarity:   winner.Similarity,
		TolerancePct: tolerance,
	}
}

// cosineSimilarity is exposed for adapters that want a reference
// implementation using gonum/floats rather than a hand-rolled dot
// product loop (see DESIGN.md semantic index entry).
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	dot := floats.Dot(a, b)
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}
