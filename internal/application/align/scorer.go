package align

import (
	"math"
	"sort"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

var dessertPastrySubstrings = []string{
	"croissant", "ice cream", "cake", "cookie", "pastry", "muffin", "pie",
	"cracker", "pancake", "bread", "toast", "waffle",
}

var eggsScrambledPositive = []string{"scrambled", "omelet", "whole cooked"}
var eggsScrambledNegative = []string{"yolk", "white", "pasteurized", "mixture", "frozen"}

var olivePositive = []string{"ripe", "whole", "table", "black"}
var oliveNegative = []string{"oil", "stuffed", "brined", "cured", "pimiento"}

// starchLikeProduce names the produce classes that earn the small
// starch+cooked nudge in spec.md §4.6.
var starchLikeProduce = map[string]bool{
	"potato": true, "sweet_potato": true, "corn": true, "pumpkin": true,
}

// ScoredCandidate pairs a Candidate with the intermediate inputs used to
// compute it, useful for telemetry and for Stage 1c's re-scan of the
// same pool.
type ScoredCandidate struct {
	Candidate     align.Candidate
	BaseScore     float64
	EnergySim     float64
	TokenJaccard  float64
}

// Scorer implements spec.md §4.6.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score ranks candidates and returns them sorted best-first. predictedKcal
// is the vision pipeline's (optional) predicted energy density; nil means
// "unknown", in which case energy_similarity is defined as 1.
func (s *Scorer) Score(
	nq align.NormalizedQuery,
	classIntent align.ClassIntent,
	formIntent align.FormIntent,
	predictedKcal *float64,
	candidates []align.Candidate,
	isStageZ bool,
) []ScoredCandidate {
	out := make([]ScoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		sc := s.scoreOne(nq, classIntent, formIntent, predictedKcal, cand, isStageZ)
		out = append(out, sc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Candidate.Score > out[j].Candidate.Score
	})
	return out
}

func (s *Scorer) scoreOne(
	nq align.NormalizedQuery,
	classIntent align.ClassIntent,
	formIntent align.FormIntent,
	predictedKcal *float64,
	cand align.Candidate,
	isStageZ bool,
) ScoredCandidate {
	candTokens := align.Tokenize(cand.Entry.Name)
	jaccard := align.TokenJaccard(nq.Tokens, candTokens)

	energySim := 1.0
	if predictedKcal != nil && *predictedKcal > 0 {
		delta := math.Abs(cand.Entry.Nutrients.EnergyKcal - *predictedKcal)
		ratio := delta / *predictedKcal
		if ratio > 1 {
			ratio = 1
		}
		energySim = 1 - ratio
	}

	score := 0.7*jaccard + 0.3*energySim

	applyNudge := func(delta float64) {
		if isStageZ && math.Abs(delta) > 0.06 {
			delta = delta / 2
		}
		score += delta
	}

	name := cand.Entry.Name

	switch classIntent {
	case align.ClassEggsScrambled:
		if _, ok := align.ContainsAnyFold(name, eggsScrambledPositive); ok {
			applyNudge(0.25)
		}
		if _, ok := align.ContainsAnyFold(name, eggsScrambledNegative); ok {
			applyNudge(-0.25)
		}
	case align.ClassEggs:
		if _, ok := align.ContainsAnyFold(name, []string{"cooked", "whole"}); ok {
			applyNudge(0.15)
		}
		if _, ok := align.ContainsAnyFold(name, []string{"yolk", "white", "powder", "substitute"}); ok {
			applyNudge(-0.15)
		}
	}

	// Form intent agreement.
	candFormCooked := false
	if _, ok := align.ContainsAnyFold(name, []string{"cooked", "roasted", "steamed", "fried", "grilled", "baked", "boiled", "poached", "scrambled"}); ok {
		candFormCooked = true
	}
	switch formIntent {
	case align.FormIntentRaw:
		if candFormCooked {
			applyNudge(-0.08)
		} else {
			applyNudge(0.08)
		}
	case align.FormIntentCooked:
		if candFormCooked {
			applyNudge(0.08)
		} else {
			applyNudge(-0.08)
		}
	}

	if classIntent == align.ClassProduce {
		if _, ok := align.ContainsAnyFold(name, dessertPastrySubstrings); ok {
			applyNudge(-0.35)
		}
		if starchLikeProduce[nq.CoreClass] && formIntent == align.FormIntentCooked {
			applyNudge(0.03)
		}
	}

	if align.ContainsFold(nq.CanonicalName, "olive") {
		if _, ok := align.ContainsAnyFold(name, olivePositive); ok {
			applyNudge(0.15)
		}
		if _, ok := align.ContainsAnyFold(name, oliveNegative); ok {
			applyNudge(-0.25)
		}
	}

	if nq.Method != "" {
		if align.ContainsFold(name, nq.Method) {
			applyNudge(0.05)
		}
	}

	cand.Score = score
	return ScoredCandidate{
		Candidate:    cand,
		BaseScore:    score,
		EnergySim:    energySim,
		TokenJaccard: jaccard,
	}
}

// Accept applies the threshold + deterministic tie-break rule from
// spec.md §4.6 to an already-sorted (best-first) scored list, returning
// the winner or false if nothing clears the bar.
func (s *Scorer) Accept(scored []ScoredCandidate, threshold float64) (align.Candidate, bool) {
	if len(scored) == 0 {
		return align.Candidate{}, false
	}
	best := scored[0]
	if best.Candidate.Score < threshold {
		return align.Candidate{}, false
	}

	// Collect all candidates within 0.02 of the best for tie-breaking.
	const tieWindow = 0.02
	tied := []align.Candidate{best.Candidate}
	for _, sc := range scored[1:] {
		if best.Candidate.Score-sc.Candidate.Score <= tieWindow {
			tied = append(tied, sc.Candidate)
		} else {
			break
		}
	}
	if len(tied) == 1 {
		return tied[0], true
	}

	sort.SliceStable(tied, func(i, j int) bool {
		ri, rj := sourceRank(tied[i].Entry.Source), sourceRank(tied[j].Entry.Source)
		if ri != rj {
			return ri < rj
		}
		di := math.Abs(tied[i].Entry.Nutrients.EnergyKcal)
		dj := math.Abs(tied[j].Entry.Nutrients.EnergyKcal)
		if di != dj {
			return di < dj
		}
		return len(tied[i].Entry.Name) < len(tied[j].Entry.Name)
	})
	return tied[0], true
}

func sourceRank(s align.SourceTag) int {
	switch s {
	case align.SourceFoundation:
		return 0
	case align.SourceLegacy:
		return 1
	case align.SourceBranded:
		return 2
	default:
		return 3
	}
}
