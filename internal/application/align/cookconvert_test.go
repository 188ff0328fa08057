package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

func potatoConversions() map[string]map[string]align.CookConversionProfile {
	return map[string]map[string]align.CookConversionProfile{
		"potato": {
			"roasted": {
				MassChange:         align.CookMassChange{Type: "shrinkage", Mean: 0.20},
				SurfaceOilKcal100g: 40,
				SurfaceOilFatG100g: 4.5,
				NutrientRetention:  map[string]float64{"energy": 0.95, "protein": 1.0, "carbohydrate": 0.95, "fat": 1.0},
			},
			"baked": {
				MassChange:        align.CookMassChange{Type: "shrinkage", Mean: 0.10},
				NutrientRetention: map[string]float64{"energy": 1.0},
			},
		},
	}
}

func rawPotatoSeed() align.Entry {
	return align.Entry{
		Name:      "potato, raw",
		Source:    align.SourceFoundation,
		Form:      align.FormRaw,
		Nutrients: align.Nutrients{EnergyKcal: 77, ProteinG: 2, CarbG: 17, FatG: 0.1},
	}
}

func TestCookConverterRejectsNonFoundationSeed(t *testing.T) {
	c := NewCookConverter()
	seed := rawPotatoSeed()
	seed.Source = align.SourceBranded
	res := c.Convert(seed, "potato", "roasted", 100, potatoConversions(), "baked")
	assert.False(t, res.OK)
	assert.Contains(t, res.RejectReason, "foundation")
}

func TestCookConverterRejectsCookedMarkerInSeedName(t *testing.T) {
	c := NewCookConverter()
	seed := rawPotatoSeed()
	seed.Name = "potato, baked, from fast foods"
	res := c.Convert(seed, "potato", "roasted", 100, potatoConversions(), "baked")
	assert.False(t, res.OK)
	assert.Contains(t, res.RejectReason, "marker")
}

func TestCookConverterFallsBackToFallbackMethod(t *testing.T) {
	c := NewCookConverter()
	res := c.Convert(rawPotatoSeed(), "potato", "fried", 100, potatoConversions(), "baked")
	require.True(t, res.OK)
	assert.Equal(t, "baked", res.Provenance.Method)
}

func TestCookConverterRejectsUnknownClass(t *testing.T) {
	c := NewCookConverter()
	res := c.Convert(rawPotatoSeed(), "mystery-class", "roasted", 100, potatoConversions(), "baked")
	assert.False(t, res.OK)
}

func TestCookConverterAppliesMassShrinkageAndRetention(t *testing.T) {
	c := NewCookConverter()
	res := c.Convert(rawPotatoSeed(), "potato", "roasted", 100, potatoConversions(), "baked")
	require.True(t, res.OK)

	assert.InDelta(t, 80, res.MassG, 1e-9, "20% shrinkage on 100g seed mass")

	massRatio := 0.8
	wantEnergy := 77*0.95/massRatio + 40
	assert.InDelta(t, wantEnergy, res.Nutrients.EnergyKcal, 1e-6)

	wantFat := 0.1*1.0/massRatio + 4.5
	assert.InDelta(t, wantFat, res.Nutrients.FatG, 1e-6)

	assert.Equal(t, "roasted", res.Provenance.Method)
	assert.Equal(t, "shrinkage", res.Provenance.MassChangeType)
	assert.Equal(t, 4.5, res.Provenance.OilUptakeFatG100g)
}

func TestCookConverterMissingRetentionDefaultsToFull(t *testing.T) {
	c := NewCookConverter()
	res := c.Convert(rawPotatoSeed(), "potato", "baked", 100, potatoConversions(), "baked")
	require.True(t, res.OK)

	massRatio := 0.9
	wantProtein := 2 * 1.0 / massRatio
	assert.InDelta(t, wantProtein, res.Nutrients.ProteinG, 1e-6, "unspecified nutrient retention defaults to 1.0")
}
