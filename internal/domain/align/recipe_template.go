package align

import "fmt"

// RecipeComponent is one ingredient-class slice of a RecipeTemplate.
type RecipeComponent struct {
	Key            string   `validate:"required"`
	Ratio          float64  `validate:"gt=0,lte=1"`
	Prefer         []string
	FdcIDs         []int64
	KcalMin        *float64
	KcalMax        *float64
	RejectPatterns []string
}

// InKcalBand reports whether kcalPer100g satisfies the component's
// optional energy band. A component with no band accepts anything.
func (c RecipeComponent) InKcalBand(kcalPer100g float64) bool {
	if c.KcalMin == nil && c.KcalMax == nil {
		return true
	}
	if c.KcalMin != nil && kcalPer100g < *c.KcalMin {
		return false
	}
	if c.KcalMax != nil && kcalPer100g > *c.KcalMax {
		return false
	}
	return true
}

// RecipeTemplate is a composite-food decomposition recipe, per spec.md
// §3. Templates are loaded from individual config documents (one file
// per template) and validated at load time.
type RecipeTemplate struct {
	Name       string
	Triggers   []string
	Components []RecipeComponent
	SHA256     string // content hash recorded for drift telemetry
}

// ValidateRatios enforces the spec.md §3 invariant: component ratios
// must sum to 1.0 within 1e-6. Called once at config load (see Design
// Notes §9, "a schema layer applied at config load; no runtime
// reflection in the hot path").
func (t RecipeTemplate) ValidateRatios() error {
	var sum float64
	for _, c := range t.Components {
		sum += c.Ratio
	}
	const eps = 1e-6
	delta := sum - 1.0
	if delta < 0 {
		delta = -delta
	}
	if delta > eps {
		return fmt.Errorf("recipe template %q: component ratios sum to %.9f, want 1.0 ± 1e-6", t.Name, sum)
	}
	return nil
}

// Matches reports whether any trigger substring-matches canonicalName.
func (t RecipeTemplate) Matches(canonicalName string) bool {
	for _, trig := range t.Triggers {
		if trig == "" {
			continue
		}
		if containsFold(canonicalName, trig) {
			return true
		}
	}
	return false
}
