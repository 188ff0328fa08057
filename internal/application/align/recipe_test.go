package align

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

func cheesePizzaTemplate() align.RecipeTemplate {
	return align.RecipeTemplate{
		Name:     "cheese_pizza",
		Triggers: []string{"cheese pizza"},
		Components: []align.RecipeComponent{
			{Key: "crust", Ratio: 0.50, FdcIDs: []int64{1}},
			{Key: "cheese", Ratio: 0.30, FdcIDs: []int64{2}},
			{Key: "sauce", Ratio: 0.15, Prefer: []string{"tomato_sauce"}},
			{Key: "oil", Ratio: 0.05, Prefer: []string{"olive_oil"}},
		},
	}
}

func TestRecipeDecomposerMatchPicksFirstTrigger(t *testing.T) {
	d := NewRecipeDecomposer(nil, nil)
	templates := []align.RecipeTemplate{cheesePizzaTemplate()}
	tmpl, ok := d.Match(templates, "cheese pizza, baked")
	require.True(t, ok)
	assert.Equal(t, "cheese_pizza", tmpl.Name)
}

func TestRecipeDecomposerMatchNoTrigger(t *testing.T) {
	d := NewRecipeDecomposer(nil, nil)
	_, ok := d.Match([]align.RecipeTemplate{cheesePizzaTemplate()}, "grilled chicken")
	assert.False(t, ok)
}

func TestRecipeDecomposerDecomposeAllocatesMassByRatio(t *testing.T) {
	ndb := &fakeNDBReader{byID: map[int64]align.Entry{
		1: {Identifier: 1, Name: "crust, plain", Source: align.SourceFoundation, Nutrients: align.Nutrients{EnergyKcal: 270}},
		2: {Identifier: 2, Name: "cheese, mozzarella", Source: align.SourceFoundation, Nutrients: align.Nutrients{EnergyKcal: 300}},
	}}
	fallback := NewFallbackResolver(ndb)
	d := NewRecipeDecomposer(ndb, fallback)

	brandedFallbacks := map[string]align.BrandedFallback{
		"tomato_sauce": {Identifier: 3, DBVerified: true, KcalMin: 0, KcalMax: 100},
		"olive_oil":    {Identifier: 4, DBVerified: true, KcalMin: 0, KcalMax: 1000},
	}
	ndb.byID[3] = align.Entry{Identifier: 3, Name: "tomato sauce", Source: align.SourceBranded, Nutrients: align.Nutrients{EnergyKcal: 30}}
	ndb.byID[4] = align.Entry{Identifier: 4, Name: "olive oil", Source: align.SourceBranded, Nutrients: align.Nutrients{EnergyKcal: 884}}

	out := d.Decompose(context.Background(), cheesePizzaTemplate(), 200, brandedFallbacks, false, nil)
	require.False(t, out.Aborted)
	require.Len(t, out.Components, 4)

	assert.InDelta(t, 100, out.Components[0].AppliedMassG, 1e-9, "crust ratio 0.50 of 200g")
	assert.InDelta(t, 60, out.Components[1].AppliedMassG, 1e-9, "cheese ratio 0.30 of 200g")
	assert.InDelta(t, 30, out.Components[2].AppliedMassG, 1e-9, "sauce ratio 0.15 of 200g")
}

func TestRecipeDecomposerAbortsWhenNoComponents(t *testing.T) {
	d := NewRecipeDecomposer(nil, nil)
	out := d.Decompose(context.Background(), align.RecipeTemplate{Name: "empty"}, 100, nil, false, nil)
	assert.True(t, out.Aborted)
}

func TestRecipeDecomposerAbortsUnderHalfAligned(t *testing.T) {
	d := NewRecipeDecomposer(nil, nil) // no ndb, no fallback: every component step 1/2 misses
	tmpl := align.RecipeTemplate{
		Name: "mystery_dish",
		Components: []align.RecipeComponent{
			{Key: "a", Ratio: 0.5, FdcIDs: []int64{99}},
			{Key: "b", Ratio: 0.5, FdcIDs: []int64{98}},
		},
	}
	out := d.Decompose(context.Background(), tmpl, 100, nil, false, nil)
	assert.True(t, out.Aborted)
	assert.Contains(t, out.AbortReason, "50%")
}

func TestRecipeDecomposerFallsThroughToRecursiveCascade(t *testing.T) {
	d := NewRecipeDecomposer(nil, nil)
	tmpl := align.RecipeTemplate{
		Name: "mixed_dish",
		Components: []align.RecipeComponent{
			{Key: "topping", Ratio: 1.0},
		},
	}
	called := false
	recurse := func(ctx context.Context, name string, massG float64) align.Result {
		called = true
		assert.Equal(t, "topping", name)
		assert.InDelta(t, 50, massG, 1e-9)
		return align.Result{Available: true, Stage: align.Stage1b, MatchedName: "topping resolved"}
	}
	out := d.Decompose(context.Background(), tmpl, 50, nil, false, recurse)
	require.False(t, out.Aborted)
	assert.True(t, called)
	assert.Equal(t, "topping resolved", out.Components[0].MatchedName)
}

func TestRecipeDecomposerSkipsOutOfKcalBandPinnedID(t *testing.T) {
	kcalMax := 50.0
	ndb := &fakeNDBReader{byID: map[int64]align.Entry{
		1: {Identifier: 1, Name: "heavy crust", Nutrients: align.Nutrients{EnergyKcal: 400}},
	}}
	d := NewRecipeDecomposer(ndb, nil)
	tmpl := align.RecipeTemplate{
		Name: "t",
		Components: []align.RecipeComponent{
			{Key: "crust", Ratio: 1.0, FdcIDs: []int64{1}, KcalMax: &kcalMax},
		},
	}
	out := d.Decompose(context.Background(), tmpl, 100, nil, false, nil)
	assert.True(t, out.Aborted, "pinned id outside kcal band must not count as aligned")
}
