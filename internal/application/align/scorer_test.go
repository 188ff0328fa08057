package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

func entryCand(name string, source align.SourceTag, kcal float64) align.Candidate {
	return align.Candidate{Entry: align.Entry{
		Name:      name,
		Source:    source,
		Nutrients: align.Nutrients{EnergyKcal: kcal},
	}}
}

func TestScorerEggsScrambledNudge(t *testing.T) {
	s := NewScorer()
	nq := align.NormalizedQuery{CanonicalName: "scrambled egg", Tokens: []string{"scrambled", "egg"}}
	candidates := []align.Candidate{
		entryCand("egg, scrambled", align.SourceFoundation, 148),
		entryCand("egg, yolk, raw, frozen", align.SourceFoundation, 148),
	}
	scored := s.Score(nq, align.ClassEggsScrambled, align.FormIntentCooked, nil, candidates, false)

	require.Len(t, scored, 2)
	assert.Equal(t, "egg, scrambled", scored[0].Candidate.Entry.Name, "positive nudge should rank scrambled first")
	assert.Greater(t, scored[0].Candidate.Score, scored[1].Candidate.Score)
}

func TestScorerProduceDessertPenalty(t *testing.T) {
	s := NewScorer()
	nq := align.NormalizedQuery{CanonicalName: "berry", Tokens: []string{"berry"}, CoreClass: "berry"}
	candidates := []align.Candidate{
		entryCand("berries, raw", align.SourceFoundation, 57),
		entryCand("berry pie", align.SourceFoundation, 260),
	}
	scored := s.Score(nq, align.ClassProduce, align.FormIntentRaw, nil, candidates, false)

	require.Len(t, scored, 2)
	assert.Equal(t, "berries, raw", scored[0].Candidate.Entry.Name, "dessert-form candidate must be penalized behind the raw form")
}

func TestScorerOliveNudges(t *testing.T) {
	s := NewScorer()
	nq := align.NormalizedQuery{CanonicalName: "olive", Tokens: []string{"olive"}}
	candidates := []align.Candidate{
		entryCand("olive, ripe, black", align.SourceFoundation, 115),
		entryCand("olive oil", align.SourceFoundation, 884),
	}
	scored := s.Score(nq, align.ClassProduce, align.FormIntentRaw, nil, candidates, false)

	require.Len(t, scored, 2)
	assert.Equal(t, "olive, ripe, black", scored[0].Candidate.Entry.Name)
}

func TestScorerAcceptThresholdGate(t *testing.T) {
	s := NewScorer()
	scored := []ScoredCandidate{
		{Candidate: align.Candidate{Entry: align.Entry{Name: "x"}, Score: 0.3}},
	}
	_, ok := s.Accept(scored, 0.5)
	assert.False(t, ok, "below-threshold best candidate must not be accepted")
}

func TestScorerAcceptTieBreakBySourceRank(t *testing.T) {
	s := NewScorer()
	scored := []ScoredCandidate{
		{Candidate: align.Candidate{Entry: align.Entry{Name: "branded item", Source: align.SourceBranded}, Score: 0.80}},
		{Candidate: align.Candidate{Entry: align.Entry{Name: "foundation item", Source: align.SourceFoundation}, Score: 0.79}},
	}
	winner, ok := s.Accept(scored, 0.5)
	require.True(t, ok)
	assert.Equal(t, "foundation item", winner.Entry.Name, "foundation should win the tie window over branded")
}

func TestScorerAcceptTieBreakByNameLength(t *testing.T) {
	s := NewScorer()
	scored := []ScoredCandidate{
		{Candidate: align.Candidate{Entry: align.Entry{Name: "potato, roasted, with a long descriptive suffix", Source: align.SourceFoundation, Nutrients: align.Nutrients{EnergyKcal: 130}}, Score: 0.80}},
		{Candidate: align.Candidate{Entry: align.Entry{Name: "potato, roasted", Source: align.SourceFoundation, Nutrients: align.Nutrients{EnergyKcal: 130}}, Score: 0.79}},
	}
	winner, ok := s.Accept(scored, 0.5)
	require.True(t, ok)
	assert.Equal(t, "potato, roasted", winner.Entry.Name)
}
