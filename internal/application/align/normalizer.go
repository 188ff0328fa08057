// Package align implements the Staged Alignment Engine and its
// collaborator components (Normalizer, Intent Derivation, Guardrails,
// Scorer, Cook Converter, Semantic Retriever consumer, Recipe
// Decomposer, Fallback Resolver), per spec.md §4.
package align

import (
	"regexp"
	"strings"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

// compoundWhitelist lists multi-word foods that must survive
// tokenization intact (spec.md §4.3 rule 6) so they never collide with
// a shared substring (e.g. "sweet potato" vs "potato").
var compoundWhitelist = []string{
	"sweet potato",
	"hash browns",
	"mixed greens",
	"spring mix",
	"french fries",
}

// pluralSingular is the known-plural map for spec.md §4.3 rule 8.
var pluralSingular = map[string]string{
	"tomatoes":  "tomato",
	"potatoes":  "potato",
	"olives":    "olive",
	"eggs":      "egg",
	"berries":   "berry",
	"leaves":    "leaf",
	"mushrooms": "mushroom",
	"carrots":   "carrot",
	"onions":    "onion",
	"peppers":   "pepper",
	"grapes":    "grape",
	"cucumbers": "cucumber",
}

// formTokenToNormalized maps a recognized form token to its normalized
// form and, for eggs, an implied cooking method (spec.md §4.3 rule 7).
var formTokenToNormalized = map[string]struct {
	form   string
	method string
}{
	"raw":        {"raw", ""},
	"fresh":      {"raw", ""},
	"cooked":     {"cooked", ""},
	"roasted":    {"cooked", "roasted"},
	"steamed":    {"cooked", "steamed"},
	"fried":      {"cooked", "fried"},
	"pan_seared": {"cooked", "pan_seared"},
	"pan-seared": {"cooked", "pan_seared"},
	"baked":      {"cooked", "baked"},
	"grilled":    {"cooked", "grilled"},
	"boiled":     {"cooked", "boiled"},
	"scrambled":  {"cooked", "scrambled"},
	"poached":    {"cooked", "poached"},
	"omelet":     {"cooked", "scrambled"},
	"omelette":   {"cooked", "scrambled"},
}

var sunDriedPattern = regexp.MustCompile(`sun[\s-]dried`)
var dupParenPattern = regexp.MustCompile(`\(([^()]+)\)\s*\(\1\)`)
var peelWithPattern = regexp.MustCompile(`\bwith peel\b`)
var peelWithoutPattern = regexp.MustCompile(`\bwithout peel\b`)

// Normalizer implements spec.md §4.3. It is a pure function holder: it
// has no mutable state and two calls on the same input always produce
// identical output, including hint ordering.
type Normalizer struct{}

// NewNormalizer constructs a Normalizer. It takes no dependencies --
// normalization never touches the NDB, config, or network.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize runs the rule sequence in spec.md §4.3 and returns the
// resulting NormalizedQuery. If the input is the literal sentinel
// "deprecated", it returns a query carrying only Raw and
// Hints.IgnoredClass="deprecated", with true for the ignored flag per
// rule 2; callers must check this before using the result.
func (n *Normalizer) Normalize(raw, formField string) (align.NormalizedQuery, bool) {
	// Rule 1: lowercase, trim.
	name := strings.TrimSpace(strings.ToLower(raw))

	// Rule 2: sentinel.
	if name == "deprecated" {
		return align.NormalizedQuery{
			Raw:   raw,
			Hints: align.Hints{IgnoredClass: "deprecated"},
		}, true
	}

	// Rule 3: collapse duplicated parentheticals.
	name = dupParenPattern.ReplaceAllString(name, "($1)")

	// Rule 4: sun-dried normalization.
	name = sunDriedPattern.ReplaceAllString(name, "sun_dried")

	// Rule 5: peel hints.
	hints := align.Hints{}
	if peelWithPattern.MatchString(name) {
		t := true
		hints.Peel = &t
		name = peelWithPattern.ReplaceAllString(name, "")
	} else if peelWithoutPattern.MatchString(name) {
		f := false
		hints.Peel = &f
		name = peelWithoutPattern.ReplaceAllString(name, "")
	}
	name = collapseSpaces(name)

	// Rule 6: preserve compound whitelist tokens before tokenizing.
	var preserved []string
	workingName := name
	for _, compound := range compoundWhitelist {
		if strings.Contains(workingName, compound) {
			preserved = append(preserved, compound)
			glued := strings.ReplaceAll(compound, " ", "_")
			workingName = strings.ReplaceAll(workingName, compound, glued)
		}
	}
	hints.CompoundPreserved = preserved

	// Rule 7: extract a form token.
	form := strings.TrimSpace(strings.ToLower(formField))
	method := ""
	tokensForForm := strings.Fields(workingName)
	for _, tok := range tokensForForm {
		if mapped, ok := formTokenToNormalized[tok]; ok {
			if form == "" {
				form = mapped.form
			}
			if method == "" && mapped.method != "" {
				method = mapped.method
			}
		}
	}
	if mapped, ok := formTokenToNormalized[form]; ok {
		form = mapped.form
		if method == "" {
			method = mapped.method
		}
	}

	// Rule 8 + 9: tokenize (restoring compound underscores to spaces in
	// the final canonical name only, not the token stream, so compounds
	// remain a single token) and singularize.
	tokens := strings.Fields(workingName)
	var outTokens []string
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		singular := tok
		if s, ok := pluralSingular[tok]; ok {
			singular = s
		}
		if _, dup := seen[singular]; dup {
			continue
		}
		seen[singular] = struct{}{}
		outTokens = append(outTokens, singular)
	}

	coreClass := deriveCoreClass(outTokens)

	canonical := strings.Join(outTokens, " ")
	canonical = strings.ReplaceAll(canonical, "_", " ")

	return align.NormalizedQuery{
		Raw:           raw,
		CanonicalName: canonical,
		Tokens:        restoreUnderscoreTokens(outTokens),
		Form:          form,
		Method:        method,
		CoreClass:     coreClass,
		Hints:         hints,
	}, false
}

// restoreUnderscoreTokens keeps compound tokens glued (e.g.
// "sweet_potato") in the token stream even though the canonical name
// un-glues them for display/search purposes.
func restoreUnderscoreTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out
}

// deriveCoreClass picks the recognized class token if present, else
// falls back to the head noun (last token), per spec.md §4.3 rule 9.
func deriveCoreClass(tokens []string) string {
	for _, tok := range tokens {
		if knownClassTokens[tok] {
			return tok
		}
	}
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

var knownClassTokens = map[string]bool{
	"egg": true, "olive": true, "potato": true, "sweet_potato": true,
	"tomato": true, "cucumber": true, "carrot": true, "mushroom": true,
	"avocado": true, "celery": true, "spinach": true, "lettuce": true,
	"broccoli": true, "cauliflower": true, "kale": true, "cabbage": true,
	"zucchini": true, "asparagus": true, "pumpkin": true, "corn": true,
	"eggplant": true, "pepper": true,
}

func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
