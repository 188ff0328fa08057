package align

import (
	"math"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

// MacroGuardResult reports which nutrient (if any) violated its band.
type MacroGuardResult struct {
	Pass           bool
	ProteinFailed  bool
	CarbFailed     bool
	FatFailed      bool
}

// CheckMacroGuards implements spec.md §4.11's "Macro guards": applied
// wherever a final candidate is selected. predicted is the vision
// pipeline's estimate (may be zero-valued/unknown, in which case the
// guard always passes, matching the source's treatment of an unknown
// baseline as non-restrictive).
func CheckMacroGuards(predicted, candidate align.Nutrients, band align.EnergyGuardBand) MacroGuardResult {
	res := MacroGuardResult{Pass: true}

	proteinTol := math.Max(band.ProteinToleranceMult*predicted.ProteinG, band.ProteinToleranceMinG)
	if math.Abs(predicted.ProteinG-candidate.ProteinG) > proteinTol && predicted.ProteinG > 0 {
		res.ProteinFailed = true
		res.Pass = false
	}
	carbTol := math.Max(band.CarbToleranceMult*predicted.CarbG, band.CarbToleranceMinG)
	if math.Abs(predicted.CarbG-candidate.CarbG) > carbTol && predicted.CarbG > 0 {
		res.CarbFailed = true
		res.Pass = false
	}
	fatTol := math.Max(band.FatToleranceMult*predicted.FatG, band.FatToleranceMinG)
	if math.Abs(predicted.FatG-candidate.FatG) > fatTol && predicted.FatG > 0 {
		res.FatFailed = true
		res.Pass = false
	}
	return res
}

// CheckEnergyGuard implements the energy/100g plausibility band used by
// the semantic retriever's energy-band filter (spec.md §4.8).
func CheckEnergyGuard(predictedKcal, candidateKcal, tolerancePct float64) bool {
	if predictedKcal <= 0 {
		return true
	}
	lo := predictedKcal * (1 - tolerancePct)
	hi := predictedKcal * (1 + tolerancePct)
	return candidateKcal >= lo && candidateKcal <= hi
}
