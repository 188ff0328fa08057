package align

import "strings"

// containsFold reports whether s contains substr, ignoring case. Shared
// by guardrail and recipe-trigger matching; both operate on already
// lowercased canonical names in practice, but this stays defensive.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ContainsFold is the exported form used by the application layer's
// guardrail and scorer packages.
func ContainsFold(s, substr string) bool {
	return containsFold(s, substr)
}

// ContainsAnyFold reports whether s contains any of substrs, ignoring case.
func ContainsAnyFold(s string, substrs []string) (string, bool) {
	for _, sub := range substrs {
		if sub == "" {
			continue
		}
		if containsFold(s, sub) {
			return sub, true
		}
	}
	return "", false
}

// TokenJaccard computes |A∩B|/|A∪B| over two token sets, per spec.md
// §4.6's Jaccard definition. Empty/empty returns 0, matching the source's
// treatment of a query with no recognizable tokens as having no lexical
// agreement with anything.
func TokenJaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA)
	for t := range setB {
		if _, ok := setA[t]; !ok {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Tokenize lowercases, splits on non-letters/digits, and dedups while
// preserving first-seen order -- the same contract NormalizedQuery.Tokens
// carries, reused here for tokenizing candidate names for scoring.
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	var tokens []string
	seen := make(map[string]struct{})
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := cur.String()
		cur.Reset()
		if _, ok := seen[tok]; ok {
			return
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
