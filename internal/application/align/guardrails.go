package align

import (
	"github.com/alignment-core/foodalign/internal/domain/align"
)

var eggsHardBlockTerms = []string{
	"yolk raw frozen", "white raw frozen", "mixture", "pasteurized",
	"substitute", "powder", "bread", "toast", "roll", "bun",
}

// GuardrailOutcome summarizes what the pre-scoring filter did, for
// telemetry (spec.md §4.5's guardrail_produce_applied / guardrail_eggs_applied).
type GuardrailOutcome struct {
	Kept            []align.Candidate
	RejectedCount   int
	ProduceApplied  bool
	EggsApplied     bool
}

// Guardrails implements spec.md §4.5: a pre-scoring hard-block filter
// driven by class-conditional negative vocabulary.
type Guardrails struct{}

func NewGuardrails() *Guardrails {
	return &Guardrails{}
}

// Apply filters candidates for a given class intent and canonical name,
// returning the survivors plus telemetry flags.
func (g *Guardrails) Apply(
	candidates []align.Candidate,
	classIntent align.ClassIntent,
	canonicalName string,
	vocab align.NegativeVocab,
) GuardrailOutcome {
	out := GuardrailOutcome{}

	produceBlocks := vocab.ProduceHardBlocks
	if len(produceBlocks) == 0 {
		produceBlocks = defaultProduceHardBlocks
	}

	for _, cand := range candidates {
		name := cand.Entry.Name

		if classIntent == align.ClassProduce || classIntent == align.ClassLeafyOrCrucifer {
			if term, blocked := align.ContainsAnyFold(name, produceBlocks); blocked {
				// Exception: the canonical query itself deliberately
				// seeks this processed form (e.g. "pickled eggplant").
				if !align.ContainsFold(canonicalName, term) {
					out.RejectedCount++
					out.ProduceApplied = true
					continue
				}
			}
			if extra, ok := vocab.ByClass[string(classIntent)]; ok {
				if term, blocked := align.ContainsAnyFold(name, extra); blocked {
					if !align.ContainsFold(canonicalName, term) {
						out.RejectedCount++
						out.ProduceApplied = true
						continue
					}
				}
			}
		}

		if classIntent == align.ClassEggs || classIntent == align.ClassEggsScrambled {
			if _, blocked := align.ContainsAnyFold(name, eggsHardBlockTerms); blocked {
				out.RejectedCount++
				out.EggsApplied = true
				continue
			}
		}

		// Class-specific special case: olives always block oil/stuffed/
		// brined regardless of what produce_hard_blocks contains.
		if classIntent == align.ClassProduce && align.ContainsFold(canonicalName, "olive") {
			if _, blocked := align.ContainsAnyFold(name, []string{"oil", "stuffed", "brined"}); blocked {
				out.RejectedCount++
				out.ProduceApplied = true
				continue
			}
		}

		out.Kept = append(out.Kept, cand)
	}

	return out
}

var defaultProduceHardBlocks = []string{
	"pickled", "canned", "frozen", "juice", "dried", "dehydrated",
	"syrup", "sweetened", "oil", "soup", "cheese",
}
