package align

import (
	"context"
	"sort"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
)

// ComponentAligner is the recursive hook a RecipeDecomposer calls for a
// component with neither pinned fdc_ids nor a prefer list. The engine
// supplies this as a method value that runs the full cascade but with
// decomposition disabled, per spec.md §4.9 step 3 ("this nested call must
// NOT itself recurse into recipe decomposition").
type ComponentAligner func(ctx context.Context, name string, massG float64) align.Result

// RecipeDecomposer implements spec.md §4.9.
type RecipeDecomposer struct {
	ndb      outbound.NDBReader
	fallback *FallbackResolver
}

func NewRecipeDecomposer(ndb outbound.NDBReader, fallback *FallbackResolver) *RecipeDecomposer {
	return &RecipeDecomposer{ndb: ndb, fallback: fallback}
}

// Match finds the first template, in ascending order of template Name
// (a stable sort of a copy, so the caller's slice order does not matter),
// whose triggers substring-match canonicalName.
func (d *RecipeDecomposer) Match(templates []align.RecipeTemplate, canonicalName string) (align.RecipeTemplate, bool) {
	sorted := make([]align.RecipeTemplate, len(templates))
	copy(sorted, templates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, t := range sorted {
		if t.Matches(canonicalName) {
			return t, true
		}
	}
	return align.RecipeTemplate{}, false
}

// DecomposeOutcome is the result of attempting to decompose a matched
// template.
type DecomposeOutcome struct {
	Aborted       bool
	AbortReason   string
	Components    []align.Result
	TemplateName  string
}

// Decompose implements spec.md §4.9's decomposition phase: allocate mass
// across components by fixed ratio, align each, and abort (falling
// through to the next stage) if fewer than half the components aligned.
func (d *RecipeDecomposer) Decompose(
	ctx context.Context,
	template align.RecipeTemplate,
	totalMassG float64,
	brandedFallbacks map[string]align.BrandedFallback,
	allowUnverified bool,
	recurse ComponentAligner,
) DecomposeOutcome {
	results := make([]align.Result, 0, len(template.Components))
	aligned := 0

	for _, comp := range template.Components {
		componentMass := totalMassG * comp.Ratio
		res, ok := d.alignComponent(ctx, comp, componentMass, brandedFallbacks, allowUnverified, recurse)
		if ok {
			aligned++
		}
		results = append(results, res)
	}

	if len(template.Components) == 0 {
		return DecomposeOutcome{Aborted: true, AbortReason: "template has no components"}
	}
	if float64(aligned)/float64(len(template.Components)) < 0.5 {
		return DecomposeOutcome{
			Aborted:     true,
			AbortReason: "fewer than 50% of components aligned",
			Components:  results,
		}
	}

	return DecomposeOutcome{
		Components:   results,
		TemplateName: template.Name,
	}
}

func (d *RecipeDecomposer) alignComponent(
	ctx context.Context,
	comp align.RecipeComponent,
	massG float64,
	brandedFallbacks map[string]align.BrandedFallback,
	allowUnverified bool,
	recurse ComponentAligner,
) (align.Result, bool) {
	// Step 1: pinned fdc_ids, in order, first entry whose energy lies in
	// the component's kcal band (when provided).
	if len(comp.FdcIDs) > 0 && d.ndb != nil {
		for _, id := range comp.FdcIDs {
			entry, err := d.ndb.Lookup(ctx, id)
			if err != nil || entry == nil {
				continue
			}
			if !comp.InKcalBand(entry.Nutrients.EnergyKcal) {
				continue
			}
			idCopy := entry.Identifier
			return align.Result{
				Available:    true,
				Stage:        align.Stage5cComponent,
				Identifier:   &idCopy,
				MatchedName:  entry.Name,
				AppliedMassG: massG,
				Nutrients:    scaleNutrients(entry.Nutrients, massG),
			}, true
		}
	}

	// Step 2: prefer-list resolved against the Stage Z fallback map.
	if len(comp.Prefer) > 0 && d.fallback != nil {
		for _, key := range comp.Prefer {
			nq := align.NormalizedQuery{CanonicalName: key, CoreClass: key}
			outcome := d.fallback.Resolve(ctx, nq, brandedFallbacks, allowUnverified)
			if outcome.Found {
				idCopy := outcome.Entry.Identifier
				return align.Result{
					Available:    true,
					Stage:        align.Stage5cComponent,
					Identifier:   &idCopy,
					MatchedName:  outcome.Entry.Name,
					AppliedMassG: massG,
					Nutrients:    scaleNutrients(outcome.Entry.Nutrients, massG),
				}, true
			}
		}
	}

	// Step 3: recurse into the full cascade, decomposition disabled.
	if recurse != nil {
		res := recurse(ctx, comp.Key, massG)
		return res, res.Available
	}

	return align.Result{Available: false, Stage: align.Stage0NoCandidates}, false
}

func scaleNutrients(n align.Nutrients, massG float64) align.Nutrients {
	factor := massG / 100.0
	return align.Nutrients{
		EnergyKcal: n.EnergyKcal * factor,
		ProteinG:   n.ProteinG * factor,
		CarbG:      n.CarbG * factor,
		FatG:       n.FatG * factor,
	}
}
