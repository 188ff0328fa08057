package align

import (
	"context"
	"sort"
	"time"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

// buildCandidatePool implements spec.md §4.11 step 3: search the
// canonical name plus each configured variant, partition by source, and
// choose the best variant by (foundation_count, total_count, raw_bias).
func (e *Engine) buildCandidatePool(ctx context.Context, sc *stageContext, cfg *align.Config) (foundation, legacy, branded []align.Entry) {
	candidates := []string{sc.nq.CanonicalName}
	if vs, ok := cfg.Variants[sc.nq.CoreClass]; ok {
		candidates = append(candidates, vs...)
	}

	type variantPool struct {
		variant    string
		entries    []align.Entry
		foundation int
		total      int
		rawBias    int
	}

	var pools []variantPool
	for _, variant := range candidates {
		if variant == "" {
			continue
		}
		sc.searchVariantsTried = append(sc.searchVariantsTried, variant)
		entries, err := e.ndb.Search(ctx, variant, nil)
		if err != nil {
			continue
		}
		vp := variantPool{variant: variant, entries: entries, total: len(entries)}
		for _, entry := range entries {
			if entry.Source == align.SourceFoundation {
				vp.foundation++
			}
			if entry.Form == align.FormRaw {
				vp.rawBias++
			}
		}
		pools = append(pools, vp)
	}

	if len(pools) == 0 {
		return nil, nil, nil
	}

	sort.SliceStable(pools, func(i, j int) bool {
		if pools[i].foundation != pools[j].foundation {
			return pools[i].foundation > pools[j].foundation
		}
		if pools[i].total != pools[j].total {
			return pools[i].total > pools[j].total
		}
		return pools[i].rawBias > pools[j].rawBias
	})

	best := pools[0]
	sc.variantChosen = best.variant

	for _, entry := range best.entries {
		switch entry.Source {
		case align.SourceFoundation:
			foundation = append(foundation, entry)
		case align.SourceLegacy:
			legacy = append(legacy, entry)
		case align.SourceBranded:
			branded = append(branded, entry)
		}
	}
	return foundation, legacy, branded
}

// scoreAndGuard applies Guardrails then Scorer to a pool, recording
// telemetry flags on sc. isStageZ halves any nudge exceeding ±0.06 per
// spec.md §4.6's "Stage Z scoring guard".
func (e *Engine) scoreAndGuard(sc *stageContext, pool []align.Entry, cfg *align.Config, isStageZ bool) []ScoredCandidate {
	candidates := make([]align.Candidate, 0, len(pool))
	for _, entry := range pool {
		candidates = append(candidates, align.Candidate{Entry: entry})
	}
	outcome := e.guardrails.Apply(candidates, sc.classIntent, sc.nq.CanonicalName, cfg.NegativeVocab)
	if outcome.ProduceApplied {
		sc.guardrailProduceApplied = true
	}
	if outcome.EggsApplied {
		sc.guardrailEggsApplied = true
	}
	if outcome.RejectedCount > 0 {
		sc.rejectionReasons = append(sc.rejectionReasons, "guardrail_rejected")
	}
	return e.scorer.Score(sc.nq, sc.classIntent, sc.formIntent, sc.predictedKcal, outcome.Kept, isStageZ)
}

// passesMacroGuard applies spec.md §4.11's macro guards, incrementing
// the engine's run-scoped GuardSummary counters.
func (e *Engine) passesMacroGuard(sc *stageContext, cfg *align.Config, candidate align.Nutrients) bool {
	predicted := align.Nutrients{} // the vision pipeline's predicted macros are out of this core's scope (§1); callers supplying them would populate sc.predictedKcal-equivalent fields.
	e.summary.MacroGuardsChecked++
	res := CheckMacroGuards(predicted, candidate, cfg.EnergyGuards)
	if !res.Pass {
		e.summary.MacroGuardsRejected++
		if res.ProteinFailed {
			e.summary.ProteinFailures++
		}
		if res.CarbFailed {
			e.summary.CarbFailures++
		}
		if res.FatFailed {
			e.summary.FatFailures++
		}
		sc.rejectionReasons = append(sc.rejectionReasons, "macro_guard_failure")
		return false
	}
	return true
}

// applyStage1c implements spec.md §4.11 step 6: if the Stage 1b winner's
// name contains a processed term and an alternative in the same
// candidate set contains a raw synonym and no processed term, switch to
// it. Never throws -- any inability to find an alternative simply keeps
// the original winner, matching Design Notes §9's explicit Result-style
// replacement for the source's swallowed try/except.
func (e *Engine) applyStage1c(sc *stageContext, pool []align.Entry, cfg *align.Config, winner align.Candidate) (align.Candidate, *align.Stage1cSwitch) {
	processedTerms := cfg.NegativeVocab.Stage1cProcessedTerms
	if len(processedTerms) == 0 {
		processedTerms = defaultStage1cProcessed
	}
	rawSynonyms := cfg.NegativeVocab.Stage1cRawSynonyms
	if len(rawSynonyms) == 0 {
		rawSynonyms = defaultStage1cRawSynonyms
	}

	processedTerm, isProcessed := align.ContainsAnyFold(winner.Entry.Name, processedTerms)
	if !isProcessed {
		return winner, nil
	}

	for _, entry := range pool {
		if entry.Identifier == winner.Entry.Identifier {
			continue
		}
		if _, hasProcessed := align.ContainsAnyFold(entry.Name, processedTerms); hasProcessed {
			continue
		}
		if _, hasRaw := align.ContainsAnyFold(entry.Name, rawSynonyms); hasRaw {
			sw := &align.Stage1cSwitch{
				From:   winner.Entry.Name,
				To:     entry.Name,
				FromID: winner.Entry.Identifier,
				ToID:   entry.Identifier,
			}
			_ = processedTerm
			return align.Candidate{Entry: entry, Score: winner.Score}, sw
		}
	}
	return winner, nil
}

var defaultStage1cProcessed = []string{
	"frozen", "pickled", "canned", "brined", "cured", "stuffed", "powder",
	"dehydrated", "dried", "in syrup", "in juice", "oil", "sauce", "soup",
	"cheese",
}

var defaultStage1cRawSynonyms = []string{"raw", "fresh", "uncooked", "unprocessed"}

// classForcesStageZ implements the "cruciferous roasted vegetables force-
// attempt StageZ" clause in spec.md §4.11 step 11.
func (e *Engine) classForcesStageZ(classIntent align.ClassIntent, nq align.NormalizedQuery) bool {
	return classIntent == align.ClassLeafyOrCrucifer && nq.Form == "cooked"
}

// accept finalizes a Stage 1b/1c result. The caller always passes
// align.Stage1b; accept itself decides whether the final
// alignment_stage is Stage1c, since that is purely a function of
// whether applyStage1c actually switched the winner.
func (e *Engine) accept(sc *stageContext, stage align.Stage, winner align.Candidate, switched *align.Stage1cSwitch) align.Result {
	if switched != nil {
		stage = align.Stage1c
	}
	e.summary.TotalAccepted++
	idCopy := winner.Entry.Identifier
	nutrients := scaleNutrients(winner.Entry.Nutrients, sc.massG)
	kcal := winner.Entry.Nutrients.EnergyKcal
	t := e.buildTelemetry(sc, stage, &idCopy, winner.Entry.Name, &kcal)
	t.Stage1cSwitched = switched
	return align.Result{
		Available:    true,
		Stage:        stage,
		Identifier:   &idCopy,
		MatchedName:  winner.Entry.Name,
		AppliedMassG: sc.massG,
		Nutrients:    nutrients,
		Telemetry:    t,
	}
}

func (e *Engine) acceptSemantic(sc *stageContext, cand align.Candidate, outcome SemanticOutcome) align.Result {
	e.summary.TotalAccepted++
	idCopy := cand.Entry.Identifier
	nutrients := scaleNutrients(cand.Entry.Nutrients, sc.massG)
	kcal := cand.Entry.Nutrients.EnergyKcal
	t := e.buildTelemetry(sc, align.Stage1s, &idCopy, cand.Entry.Name, &kcal)
	sim := outcome.Similarity
	tol := outcome.TolerancePct
	t.SemanticSimilarity = &sim
	t.EnergyBandTolerancePct = &tol
	return align.Result{
		Available:    true,
		Stage:        align.Stage1s,
		Identifier:   &idCopy,
		MatchedName:  cand.Entry.Name,
		AppliedMassG: sc.massG,
		Nutrients:    nutrients,
		Telemetry:    t,
	}
}

func (e *Engine) tryStage2(ctx context.Context, sc *stageContext, cfg *align.Config, foundationPool []align.Entry) (align.Result, bool) {
	var seed *align.Entry
	for i := range foundationPool {
		if foundationPool[i].Form == align.FormRaw {
			seed = &foundationPool[i]
			break
		}
	}
	if seed == nil {
		sc.rejectionReasons = append(sc.rejectionReasons, "stagez_seed_guardrail_failed: no raw foundation seed")
		return align.Result{}, false
	}

	convRes := e.cookConv.Convert(*seed, sc.nq.CoreClass, sc.nq.Method, sc.massG, cfg.CookConversions, cfg.CookFallbackMethod)
	if !convRes.OK {
		sc.rejectionReasons = append(sc.rejectionReasons, "conversion_unsupported: "+convRes.RejectReason)
		return align.Result{}, false
	}
	if !e.passesMacroGuard(sc, cfg, convRes.Nutrients) {
		return align.Result{}, false
	}

	e.summary.TotalAccepted++
	idCopy := seed.Identifier
	kcal := convRes.Nutrients.EnergyKcal
	t := e.buildTelemetry(sc, align.Stage2, &idCopy, seed.Name, &kcal)
	t.ConversionApplied = true
	t.ConversionSteps = &convRes.Provenance
	return align.Result{
		Available:    true,
		Stage:        align.Stage2,
		Identifier:   &idCopy,
		MatchedName:  seed.Name,
		AppliedMassG: convRes.MassG,
		Nutrients:    convRes.Nutrients,
		Conversion:   &convRes.Provenance,
		Telemetry:    t,
	}, true
}

// saladComponents are the hardcoded proxy components for spec.md §4.11
// step 9's Stage 5B (composite salads only).
var saladTriggers = []string{"caesar salad", "house salad", "garden salad"}
var saladComponents = []align.RecipeComponent{
	{Key: "romaine", Ratio: 0.55},
	{Key: "parmesan", Ratio: 0.15},
	{Key: "croutons", Ratio: 0.15},
	{Key: "dressing", Ratio: 0.15},
}

func (e *Engine) tryStage5B(ctx context.Context, sc *stageContext, cfg *align.Config, allowDecomposition bool) (align.Result, bool) {
	if !allowDecomposition {
		return align.Result{}, false
	}
	if _, hit := align.ContainsAnyFold(sc.nq.CanonicalName, saladTriggers); !hit {
		return align.Result{}, false
	}
	template := align.RecipeTemplate{Name: "hardcoded_salad", Triggers: saladTriggers, Components: saladComponents}
	outcome := e.decomposer.Decompose(ctx, template, sc.massG, cfg.BrandedFallbacks, cfg.Flags.AllowUnverifiedBranded, e.recurseComponent(ctx))
	if outcome.Aborted {
		sc.rejectionReasons = append(sc.rejectionReasons, "decomposition_aborted: "+outcome.AbortReason)
		return align.Result{}, false
	}
	return e.acceptDecomposition(sc, align.Stage5b, outcome), true
}

func (e *Engine) tryDecompose(ctx context.Context, sc *stageContext, cfg *align.Config) (align.Result, bool) {
	template, ok := e.decomposer.Match(cfg.Recipes, sc.nq.CanonicalName)
	if !ok {
		return align.Result{}, false
	}
	outcome := e.decomposer.Decompose(ctx, template, sc.massG, cfg.BrandedFallbacks, cfg.Flags.AllowUnverifiedBranded, e.recurseComponent(ctx))
	if outcome.Aborted {
		sc.rejectionReasons = append(sc.rejectionReasons, "decomposition_aborted: "+outcome.AbortReason)
		return align.Result{}, false
	}
	return e.acceptDecomposition(sc, align.Stage5c, outcome), true
}

func (e *Engine) recurseComponent(ctx context.Context) ComponentAligner {
	return func(ctx context.Context, name string, massG float64) align.Result {
		mass := massG
		food := align.FoodQuery{Name: name, MassG: &mass}
		return e.alignCore(ctx, "", 0, food, false)
	}
}

func (e *Engine) acceptDecomposition(sc *stageContext, stage align.Stage, outcome DecomposeOutcome) align.Result {
	e.summary.TotalAccepted++
	names := make([]string, 0, len(outcome.Components))
	for _, c := range outcome.Components {
		names = append(names, c.MatchedName)
	}
	t := e.buildTelemetry(sc, stage, nil, "", nil)
	t.RecipeTemplate = outcome.TemplateName
	t.ExpandedFoods = names

	totalNutrients := align.Nutrients{}
	for _, c := range outcome.Components {
		totalNutrients.EnergyKcal += c.Nutrients.EnergyKcal
		totalNutrients.ProteinG += c.Nutrients.ProteinG
		totalNutrients.CarbG += c.Nutrients.CarbG
		totalNutrients.FatG += c.Nutrients.FatG
	}

	return align.Result{
		Available:     true,
		Stage:         stage,
		AppliedMassG:  sc.massG,
		Nutrients:     totalNutrients,
		ExpandedFoods: outcome.Components,
		Telemetry:     t,
	}
}

func (e *Engine) tryStageZ(ctx context.Context, sc *stageContext, cfg *align.Config) (align.Result, bool) {
	outcome := e.fallback.Resolve(ctx, sc.nq, cfg.BrandedFallbacks, cfg.Flags.AllowUnverifiedBranded)
	if outcome.Found {
		if !e.passesMacroGuard(sc, cfg, outcome.Entry.Nutrients) {
			return align.Result{}, false
		}
		e.summary.StageZUsageCount++
		e.summary.TotalAccepted++
		idCopy := outcome.Entry.Identifier
		nutrients := scaleNutrients(outcome.Entry.Nutrients, sc.massG)
		kcal := outcome.Entry.Nutrients.EnergyKcal
		t := e.buildTelemetry(sc, align.StageZBranded, &idCopy, outcome.Entry.Name, &kcal)
		t.StageZBrandedFallback = &outcome.Fallback
		return align.Result{
			Available:    true,
			Stage:        align.StageZBranded,
			Identifier:   &idCopy,
			MatchedName:  outcome.Entry.Name,
			AppliedMassG: sc.massG,
			Nutrients:    nutrients,
			Telemetry:    t,
		}, true
	}
	sc.rejectionReasons = append(sc.rejectionReasons, "stageZ_branded: "+outcome.RejectionReason)

	energyOutcome := e.fallback.ResolveEnergyOnly(sc.nq, sc.classIntent, e.neverProxy, e.classEnergyDensity)
	if energyOutcome.Found {
		e.summary.StageZUsageCount++
		e.summary.TotalAccepted++
		nutrients := scaleNutrients(energyOutcome.Entry.Nutrients, sc.massG)
		kcal := energyOutcome.Entry.Nutrients.EnergyKcal
		t := e.buildTelemetry(sc, align.StageZEnergyOnly, nil, energyOutcome.Entry.Name, &kcal)
		return align.Result{
			Available:    true,
			Stage:        align.StageZEnergyOnly,
			ProxyTag:     energyOutcome.EnergyOnlyProxyTag,
			MatchedName:  energyOutcome.Entry.Name,
			AppliedMassG: sc.massG,
			Nutrients:    nutrients,
			Telemetry:    t,
		}, true
	}
	sc.rejectionReasons = append(sc.rejectionReasons, "stageZ_energy_only: "+energyOutcome.RejectionReason)
	return align.Result{}, false
}

func (e *Engine) buildTelemetry(sc *stageContext, stage align.Stage, identifier *int64, matchedName string, kcal *float64) align.Telemetry {
	return align.Telemetry{
		SchemaVersion:           1,
		RunID:                   sc.runID,
		ImageID:                 sc.imageID,
		FoodIndex:               sc.foodIndex,
		Query:                   sc.food.Name,
		AlignmentStage:          stage,
		AttemptedStages:         sc.attempted,
		CandidatePoolSize:       sc.candidatePoolFoundation + sc.candidatePoolLegacy + sc.candidatePoolBranded,
		CandidatePoolFoundation: sc.candidatePoolFoundation,
		CandidatePoolLegacy:     sc.candidatePoolLegacy,
		CandidatePoolBranded:    sc.candidatePoolBranded,
		StageRejectionReasons:   sc.rejectionReasons,
		ClassIntent:             sc.classIntent,
		FormIntent:              sc.formIntent,
		VariantChosen:           sc.variantChosen,
		FoundationPoolCount:     sc.foundationPoolCount,
		SearchVariantsTried:     sc.searchVariantsTried,
		GuardrailProduceApplied: sc.guardrailProduceApplied,
		GuardrailEggsApplied:    sc.guardrailEggsApplied,
		FdcID:                   identifier,
		FdcName:                 matchedName,
		MatchedEnergyPer100g:    kcal,
		StageTimingsMs:          sc.timings,
		CodeGitSHA:              e.codeRevision,
		ConfigVersion:           sc.cfg.Fingerprint,
		NDBSnapshot:             e.ndbSnapshot,
		EmittedAt:               time.Now().UTC(),
	}
}
