package align

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
)

// Engine is the Staged Alignment Engine (spec.md §4.11): the orchestrator
// invoking Normalizer/Intent/Guardrails/Scorer/CookConverter/Semantic/
// RecipeDecomposer/FallbackResolver in the fixed precedence spec.md
// defines, one food at a time, per engine instance (spec.md §5).
//
// Modeled on internal/application/recipe/service.go: a struct holding its
// collaborator ports plus a named logger, one exported method per use
// case, and private helper methods per cascade stage.
type Engine struct {
	ndb         outbound.NDBReader
	semantic    outbound.SemanticIndex
	config      outbound.ConfigStore
	telemetry   outbound.TelemetrySink
	logger      *zap.Logger

	normalizer  *Normalizer
	guardrails  *Guardrails
	scorer      *Scorer
	cookConv    *CookConverter
	semanticRet *SemanticRetriever
	fallback    *FallbackResolver
	decomposer  *RecipeDecomposer

	codeRevision string
	ndbSnapshot  string

	summary align.GuardSummary

	// classEnergyDensity backs Stage Z's energy-only mode; it has no
	// first-class config document in spec.md §6.2, so it is supplied at
	// construction (batch runners typically derive it from the NDB
	// snapshot once at startup).
	classEnergyDensity map[string]float64
	neverProxy         map[string]bool

	metrics outbound.MetricsRecorder
}

// EngineOption configures optional Engine collaborators.
type EngineOption func(*Engine)

// WithClassEnergyDensity supplies the class→kcal/100g table used by
// Stage Z's energy-only proxy mode.
func WithClassEnergyDensity(table map[string]float64) EngineOption {
	return func(e *Engine) { e.classEnergyDensity = table }
}

// WithNeverProxy supplies the never_proxy class set referenced but not
// fully enumerated by spec.md §4.10/§9 ("Open questions"). Classes named
// here are additive to the built-in produce/leafy exclusion, which the
// engine always applies regardless of this set.
func WithNeverProxy(classes map[string]bool) EngineOption {
	return func(e *Engine) { e.neverProxy = classes }
}

// WithMetrics attaches an ambient Prometheus recorder. Optional: the
// engine runs identically without one, per spec.md §5's requirement that
// observability never gate the cascade.
func WithMetrics(recorder outbound.MetricsRecorder) EngineOption {
	return func(e *Engine) { e.metrics = recorder }
}

// NewEngine constructs a Staged Alignment Engine. ndbSnapshot and
// codeRevision are recorded verbatim into every Telemetry event.
func NewEngine(
	ndb outbound.NDBReader,
	semantic outbound.SemanticIndex,
	config outbound.ConfigStore,
	telemetry outbound.TelemetrySink,
	logger *zap.Logger,
	codeRevision string,
	ndbSnapshot string,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		ndb:          ndb,
		semantic:     semantic,
		config:       config,
		telemetry:    telemetry,
		logger:       logger.Named("align-engine"),
		normalizer:   NewNormalizer(),
		guardrails:   NewGuardrails(),
		scorer:       NewScorer(),
		cookConv:     NewCookConverter(),
		fallback:     NewFallbackResolver(ndb),
		codeRevision: codeRevision,
		ndbSnapshot:  ndbSnapshot,
		neverProxy:   map[string]bool{},
	}
	e.semanticRet = NewSemanticRetriever(semantic)
	e.decomposer = NewRecipeDecomposer(ndb, e.fallback)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GuardSummary returns a copy of this engine instance's run-scoped
// counters (spec.md §5, per-instance, mergeable by batch runners).
func (e *Engine) GuardSummary() align.GuardSummary {
	return e.summary
}

// stageContext threads the per-food working state through the cascade
// stage helpers so none of them needs to re-derive it.
type stageContext struct {
	runID     uuid.UUID
	imageID   string
	foodIndex int
	food      align.FoodQuery
	nq        align.NormalizedQuery
	classIntent align.ClassIntent
	formIntent  align.FormIntent
	predictedKcal *float64
	massG       float64
	cfg         *align.Config

	attempted []align.Stage
	rejectionReasons []string
	searchVariantsTried []string
	variantChosen string
	foundationPoolCount int
	candidatePoolFoundation int
	candidatePoolLegacy int
	candidatePoolBranded int
	guardrailProduceApplied bool
	guardrailEggsApplied    bool
	timings                 map[string]float64
}

// Align runs the full cascade for one food, per spec.md §4.11, with
// recipe decomposition enabled.
func (e *Engine) Align(ctx context.Context, imageID string, foodIndex int, food align.FoodQuery) align.Result {
	start := time.Now()
	res := e.alignCore(ctx, imageID, foodIndex, food, true)
	if res.Available && res.Event == nil {
		res.Event = align.FoodAlignedEvent{
			ImageID:    imageID,
			FoodIndex:  foodIndex,
			Stage:      res.Stage,
			Identifier: res.Identifier,
			OccurredOn: time.Now().UTC(),
		}
	}
	if e.telemetry != nil {
		_ = e.telemetry.Emit(ctx, res.Telemetry)
	}
	if e.metrics != nil {
		e.metrics.Observe(res.Stage, time.Since(start).Seconds(), res.Available)
	}
	return res
}

func (e *Engine) alignCore(ctx context.Context, imageID string, foodIndex int, food align.FoodQuery, allowDecomposition bool) align.Result {
	cfg := e.config.Snapshot()

	sc := &stageContext{
		runID:     runIDFromContext(ctx),
		imageID:   imageID,
		foodIndex: foodIndex,
		food:      food,
		cfg:       cfg,
	}
	sc.massG = 100.0
	if food.MassG != nil && *food.MassG > 0 {
		sc.massG = *food.MassG
	}

	sc.timings = map[string]float64{}
	timeStage := func(name string, fn func()) {
		start := time.Now()
		fn()
		sc.timings[name] = float64(time.Since(start).Microseconds()) / 1000.0
	}

	// Step 1: Normalize.
	var ignored bool
	timeStage("normalize", func() {
		sc.nq, ignored = e.normalizer.Normalize(food.Name, food.Form)
	})
	if ignored {
		return e.ignoredResult(sc, sc.nq.Hints.IgnoredClass)
	}

	// Step 2: negative-vocab short-circuit.
	if ignoredClass, hit := e.negativeVocabShortCircuit(sc.nq, cfg); hit {
		return e.ignoredResult(sc, ignoredClass)
	}

	sc.classIntent = DeriveClassIntent(sc.nq)
	sc.formIntent = DeriveFormIntent(sc.nq)

	// Step 3: candidate pool.
	var foundationPool, legacyPool, brandedPool []align.Entry
	timeStage("search", func() {
		foundationPool, legacyPool, brandedPool = e.buildCandidatePool(ctx, sc, cfg)
	})
	sc.candidatePoolFoundation = len(foundationPool)
	sc.candidatePoolLegacy = len(legacyPool)
	sc.candidatePoolBranded = len(brandedPool)
	sc.foundationPoolCount = len(foundationPool)
	poolEmpty := len(foundationPool) == 0 && len(legacyPool) == 0 && len(brandedPool) == 0

	// Step 4: pool empty AND recipe enabled -> try Recipe Decomposer
	// first.
	if poolEmpty && allowDecomposition && cfg.Flags.EnableRecipeDecomposition {
		sc.attempted = append(sc.attempted, align.Stage5c)
		if res, ok := e.tryDecompose(ctx, sc, cfg); ok {
			return res
		}
	}

	threshold := cfg.ClassThreshold(sc.nq.CoreClass)

	// Step 5: Stage 1b (raw Foundation direct).
	var pickedStage1b align.Candidate
	var haveStage1b bool
	if sc.formIntent == align.FormIntentRaw || sc.formIntent == align.FormIntentNone {
		sc.attempted = append(sc.attempted, align.Stage1b)
		if len(foundationPool) > 0 {
			cands := e.scoreAndGuard(sc, foundationPool, cfg, false)
			if winner, ok := e.scorer.Accept(cands, threshold); ok {
				if e.passesMacroGuard(sc, cfg, winner.Entry.Nutrients) {
					pickedStage1b = winner
					haveStage1b = true
				}
			}
		}
	}

	if haveStage1b {
		// Step 6: Stage 1c raw-preference post-pass, operating on the
		// same candidate set Stage 1b scored from.
		sc.attempted = append(sc.attempted, align.Stage1c)
		final, switched := e.applyStage1c(sc, foundationPool, cfg, pickedStage1b)
		return e.accept(sc, align.Stage1b, final, switched)
	}

	// Step 7: Stage 1S (semantic, optional).
	sc.attempted = append(sc.attempted, align.Stage1s)
	semOutcome := e.semanticRet.Retrieve(ctx, sc.nq, sc.classIntent, sc.predictedKcal, cfg.EnergyGuards, cfg.Flags)
	if semOutcome.Found {
		cand := align.Candidate{Entry: semOutcome.Entry, Provenance: "semantic"}
		if e.passesMacroGuard(sc, cfg, cand.Entry.Nutrients) {
			return e.acceptSemantic(sc, cand, semOutcome)
		}
	} else if semOutcome.RejectionReason != "" {
		sc.rejectionReasons = append(sc.rejectionReasons, "stage1s: "+semOutcome.RejectionReason)
	}

	// Step 8: Stage 2 (raw-seed + conversion).
	if sc.formIntent == align.FormIntentCooked {
		sc.attempted = append(sc.attempted, align.Stage2)
		if res, ok := e.tryStage2(ctx, sc, cfg, foundationPool); ok {
			return res
		}
	}

	// Step 9: Stage 5B (hardcoded salad proxy alignment).
	sc.attempted = append(sc.attempted, align.Stage5b)
	if res, ok := e.tryStage5B(ctx, sc, cfg, allowDecomposition); ok {
		return res
	}

	// Step 10: Stage 5C (recipe decomposition).
	if allowDecomposition && cfg.Flags.EnableRecipeDecomposition {
		sc.attempted = append(sc.attempted, align.Stage5c)
		if res, ok := e.tryDecompose(ctx, sc, cfg); ok {
			return res
		}
	}

	// Step 11: Stage Z.
	allRejected := !poolEmpty
	forceStageZ := e.classForcesStageZ(sc.classIntent, sc.nq)
	if poolEmpty || allRejected || cfg.Flags.AllowStageZForPartialPools || forceStageZ {
		sc.attempted = append(sc.attempted, align.StageZBranded)
		if res, ok := e.tryStageZ(ctx, sc, cfg); ok {
			return res
		}
	}

	// Step 12: Stage 0.
	sc.attempted = append(sc.attempted, align.Stage0NoCandidates)
	reason := "empty_pool"
	if !poolEmpty {
		reason = "all_rejected"
	}
	return e.noCandidatesResult(sc, reason)
}

// negativeVocabShortCircuit implements spec.md §4.11 step 2: names that
// match a recognized ignored_class entry (alcohol, deprecated, known-
// unavailable leafy) short-circuit before any stage is attempted.
func (e *Engine) negativeVocabShortCircuit(nq align.NormalizedQuery, cfg *align.Config) (string, bool) {
	for class, terms := range cfg.NegativeVocab.ByClass {
		if !isIgnoredClassKey(class) {
			continue
		}
		if _, hit := align.ContainsAnyFold(nq.CanonicalName, terms); hit {
			return class, true
		}
	}
	if _, hit := align.ContainsAnyFold(nq.CanonicalName, defaultIgnoredTerms); hit {
		return "alcoholic_beverage", true
	}
	return "", false
}

// isIgnoredClassKey reports whether a negative-vocab class key names an
// ignore-on-sight category rather than a guardrail-only category.
func isIgnoredClassKey(class string) bool {
	switch class {
	case "alcoholic_beverage", "deprecated", "unavailable_leafy":
		return true
	default:
		return false
	}
}

var defaultIgnoredTerms = []string{
	"wine", "beer", "vodka", "whiskey", "rum", "gin", "liquor", "cocktail",
}

func (e *Engine) ignoredResult(sc *stageContext, ignoredClass string) align.Result {
	return align.Result{
		Available:    false,
		Stage:        align.StageIgnored,
		IgnoredClass: ignoredClass,
		Telemetry:    e.buildTelemetry(sc, align.StageIgnored, nil, "", nil),
		Event: align.FoodIgnoredEvent{
			ImageID:      sc.imageID,
			FoodIndex:    sc.foodIndex,
			IgnoredClass: ignoredClass,
			OccurredOn:   time.Now().UTC(),
		},
	}
}

func (e *Engine) noCandidatesResult(sc *stageContext, reason string) align.Result {
	sc.rejectionReasons = append(sc.rejectionReasons, "why_no_candidates: "+reason)
	return align.Result{
		Available: false,
		Stage:     align.Stage0NoCandidates,
		Telemetry: e.buildTelemetry(sc, align.Stage0NoCandidates, nil, "", nil),
	}
}
