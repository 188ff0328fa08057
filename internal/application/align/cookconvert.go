package align

import (
	"github.com/alignment-core/foodalign/internal/domain/align"
)

var cookedOrProcessedMarkers = []string{
	"pancake", "cracker", "soup", "pastry", "babyfood", "fried", "baked",
	"roasted", "grilled", "fast foods",
}

// ConvertResult is the outcome of a cook-conversion attempt.
type ConvertResult struct {
	OK           bool
	Nutrients    align.Nutrients
	MassG        float64
	Provenance   align.ConversionProvenance
	RejectReason string
}

// CookConverter implements spec.md §4.7.
type CookConverter struct{}

func NewCookConverter() *CookConverter {
	return &CookConverter{}
}

// Convert applies the raw→cooked transform described in spec.md §4.7.
// seed must already be known source=foundation, form=raw; Convert
// re-validates this and the processed-name block list as a guardrail
// against a misrouted seed (spec.md: "stage2_seed_guardrail").
func (c *CookConverter) Convert(
	seed align.Entry,
	coreClass string,
	method string,
	massG float64,
	conversions map[string]map[string]align.CookConversionProfile,
	fallbackMethod string,
) ConvertResult {
	if seed.Source != align.SourceFoundation || seed.Form != align.FormRaw {
		return ConvertResult{RejectReason: "seed is not foundation+raw"}
	}
	if _, blocked := align.ContainsAnyFold(seed.Name, cookedOrProcessedMarkers); blocked {
		return ConvertResult{RejectReason: "seed name contains a cooked/processed marker"}
	}

	byClass, ok := conversions[coreClass]
	if !ok {
		return ConvertResult{RejectReason: "no conversion profiles for class " + coreClass}
	}
	profile, ok := byClass[method]
	if !ok {
		profile, ok = byClass[fallbackMethod]
		if !ok {
			return ConvertResult{RejectReason: "no conversion profile for method " + method}
		}
		method = fallbackMethod
	}

	sign := -1.0
	if profile.MassChange.Type == "expansion" {
		sign = 1.0
	}
	massRatio := 1 + sign*profile.MassChange.Mean
	if massRatio <= 0 {
		return ConvertResult{RejectReason: "degenerate mass ratio"}
	}
	newMass := massG * massRatio

	retention := func(nutrient string) float64 {
		if r, ok := profile.NutrientRetention[nutrient]; ok {
			return r
		}
		return 1.0
	}

	n := seed.Nutrients
	out := align.Nutrients{
		EnergyKcal: n.EnergyKcal * retention("energy") / massRatio,
		ProteinG:   n.ProteinG * retention("protein") / massRatio,
		CarbG:      n.CarbG * retention("carbohydrate") / massRatio,
		FatG:       n.FatG * retention("fat") / massRatio,
	}

	out.EnergyKcal += profile.SurfaceOilKcal100g
	out.FatG += profile.SurfaceOilFatG100g

	prov := align.ConversionProvenance{
		Method:              method,
		MassChangeType:      profile.MassChange.Type,
		MassChangeMean:      profile.MassChange.Mean,
		RetentionByNutrient: profile.NutrientRetention,
		OilUptakeKcal100g:   profile.SurfaceOilKcal100g,
		OilUptakeFatG100g:   profile.SurfaceOilFatG100g,
		AtwaterPassAfter:    out.AtwaterWithinTolerance(),
	}

	return ConvertResult{
		OK:         true,
		Nutrients:  out,
		MassG:      newMass,
		Provenance: prov,
	}
}
