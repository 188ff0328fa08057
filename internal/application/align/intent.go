package align

import (
	"strings"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

var leafyOrCruciferSubstrings = []string{
	"brussels sprout", "cauliflower", "broccoli", "kale", "cabbage",
}

var produceSubstrings = []string{
	"yellow squash", "zucchini", "asparagus", "pumpkin", "corn", "eggplant",
	"pepper", "tomato", "cucumber", "potato", "sweet potato", "carrot",
	"mushroom", "olive", "avocado", "celery", "spinach", "lettuce",
	"berry", "berries", "fruit", "melon",
}

var cookedFormTokens = map[string]bool{
	"cooked": true, "roasted": true, "steamed": true, "fried": true,
	"grilled": true, "pan_seared": true, "baked": true, "boiled": true,
	"poached": true, "scrambled": true,
}

var rawFormTokens = map[string]bool{
	"raw": true, "fresh": true, "": true,
}

// DeriveClassIntent implements spec.md §4.4's first-match-wins class
// intent rules, operating on the normalized canonical name.
func DeriveClassIntent(nq align.NormalizedQuery) align.ClassIntent {
	name := nq.CanonicalName

	if strings.Contains(name, "scrambled") && strings.Contains(name, "egg") {
		return align.ClassEggsScrambled
	}
	if strings.Contains(name, "egg") {
		return align.ClassEggs
	}
	for _, sub := range leafyOrCruciferSubstrings {
		if strings.Contains(name, sub) {
			return align.ClassLeafyOrCrucifer
		}
	}
	// "cucumber" deliberately excludes "sea cucumber": the substring
	// rule below would otherwise misclassify sea cucumber as produce.
	if strings.Contains(name, "sea cucumber") {
		return align.ClassNone
	}
	for _, sub := range produceSubstrings {
		if strings.Contains(name, sub) {
			return align.ClassProduce
		}
	}
	return align.ClassNone
}

// DeriveFormIntent implements spec.md §4.4's form intent mapping. When
// nq.Form is empty, it falls back to scanning tokens for a recognized
// form word, matching the "optionally inferred from tokens" clause.
func DeriveFormIntent(nq align.NormalizedQuery) align.FormIntent {
	form := nq.Form
	if form == "" {
		for _, tok := range nq.Tokens {
			if cookedFormTokens[tok] {
				form = tok
				break
			}
		}
	}
	if rawFormTokens[form] {
		return align.FormIntentRaw
	}
	if cookedFormTokens[form] {
		return align.FormIntentCooked
	}
	return align.FormIntentNone
}
