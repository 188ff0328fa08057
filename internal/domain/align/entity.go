// Package align contains the core domain model for the food-alignment
// engine: the staged cascade that resolves a vision-detected food to an
// entry in the nutrition database (NDB).
package align

import (
	"time"

	"github.com/google/uuid"
)

// SourceTag identifies which partition of the NDB an entry came from.
type SourceTag string

const (
	SourceFoundation SourceTag = "foundation"
	SourceLegacy     SourceTag = "legacy"
	SourceBranded    SourceTag = "branded"
)

// FormTag identifies the cooking state recorded on an NDB entry.
type FormTag string

const (
	FormRaw     FormTag = "raw"
	FormCooked  FormTag = "cooked"
	FormUnknown FormTag = "unknown"
)

// ClassIntent is the coarse food family derived from a normalized name.
type ClassIntent string

const (
	ClassEggs            ClassIntent = "eggs"
	ClassEggsScrambled   ClassIntent = "eggs_scrambled"
	ClassProduce         ClassIntent = "produce"
	ClassLeafyOrCrucifer ClassIntent = "leafy_or_crucifer"
	ClassNone            ClassIntent = ""
)

// FormIntent is the coarse cooking-state bucket used by guardrails and
// scoring. It is distinct from FormTag: FormIntent describes the query,
// FormTag describes an NDB entry.
type FormIntent string

const (
	FormIntentRaw    FormIntent = "raw"
	FormIntentCooked FormIntent = "cooked"
	FormIntentNone   FormIntent = ""
)

// Stage names the alignment cascade step that produced a result.
type Stage string

const (
	Stage1b             Stage = "stage1b"
	Stage1c             Stage = "stage1c"
	Stage1s             Stage = "stage1s"
	Stage2              Stage = "stage2"
	Stage5b             Stage = "stage5b"
	Stage5c             Stage = "stage5c"
	StageZBranded       Stage = "stageZ_branded"
	StageZEnergyOnly    Stage = "stageZ_energy_only"
	Stage0NoCandidates  Stage = "stage0_no_candidates"
	StageIgnored        Stage = "ignored"
	Stage5cComponent    Stage = "stage5c_component"
)

// FoodQuery is a single vision-detected food awaiting alignment.
type FoodQuery struct {
	Name       string
	Form       string
	MassG      *float64
	Confidence *float64
	Modifiers  []string
}

// Hints carries normalization side-channel data as a typed struct rather
// than the source's free-form dictionary (see Design Notes, "Function
// hints dictionary").
type Hints struct {
	Peel              *bool
	IgnoredClass      string
	CompoundPreserved []string
}

// NormalizedQuery is the immutable result of normalization. It is derived
// once per food and never mutated afterward.
type NormalizedQuery struct {
	Raw           string
	CanonicalName string
	Tokens        []string
	Form          string
	Method        string
	CoreClass     string
	Hints         Hints
}

// Nutrients holds per-100g macro/energy values. Micros are intentionally
// omitted from the hot scoring path; the NDB Adapter may carry them on
// Entry.Micros for display purposes only.
type Nutrients struct {
	EnergyKcal   float64
	ProteinG     float64
	CarbG        float64
	FatG         float64
}

// AtwaterDelta reports how far (EnergyKcal) is from the 4/4/9 Atwater
// prediction, as a fraction of EnergyKcal. It is advisory only.
func (n Nutrients) AtwaterDelta() float64 {
	if n.EnergyKcal == 0 {
		return 0
	}
	predicted := n.ProteinG*4 + n.CarbG*4 + n.FatG*9
	return (predicted - n.EnergyKcal) / n.EnergyKcal
}

// AtwaterWithinTolerance reports whether the Atwater check passes at the
// standard ±25% advisory band.
func (n Nutrients) AtwaterWithinTolerance() bool {
	d := n.AtwaterDelta()
	if d < 0 {
		d = -d
	}
	return d <= 0.25
}

// Entry is a single NDB row, per 100g.
type Entry struct {
	Identifier int64
	Name       string
	Source     SourceTag
	Form       FormTag
	Nutrients  Nutrients
	Micros     map[string]float64
}

// Candidate is an Entry under consideration by the scorer, along with its
// score and provenance.
type Candidate struct {
	Entry            Entry
	Score            float64
	Provenance       string
	RejectionReason  string
}

// ConversionProvenance records the cook-conversion steps applied when a
// result came from Stage 2.
type ConversionProvenance struct {
	Method            string
	MassChangeType    string
	MassChangeMean    float64
	RetentionByNutrient map[string]float64
	OilUptakeKcal100g float64
	OilUptakeFatG100g float64
	AtwaterPassAfter  bool
}

// Stage1cSwitch records a Stage 1c raw-preference override.
type Stage1cSwitch struct {
	From   string
	To     string
	FromID int64
	ToID   int64
}

// StageZFallback records a verified Stage Z resolution.
type StageZFallback struct {
	Key        string
	Identifier int64
	Source     string // "manual_verified" | "existing_config"
	KcalMin    float64
	KcalMax    float64
	InLiveNDB  bool
}

// Result is the outcome of aligning one FoodQuery.
type Result struct {
	Available        bool
	Stage            Stage
	Identifier       *int64
	ProxyTag         string
	MatchedName      string
	AppliedMassG     float64
	Nutrients        Nutrients
	Conversion       *ConversionProvenance
	ExpandedFoods    []Result
	IgnoredClass     string
	Telemetry        Telemetry

	// Event is the domain event this alignment decision raised -- a
	// FoodAlignedEvent or FoodIgnoredEvent, depending on Available. A
	// caller that persists alignment decisions publishes this the same
	// way internal/application/recipe/service.go drains Recipe.Events()
	// after a successful save.
	Event DomainEvent
}

// DomainEvent is the minimal event-sourcing surface every alignment event
// satisfies (mirrors shared.DomainEvent in the teacher domain).
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// Telemetry is the structured, schema-versioned record emitted for every
// food, per spec.md §3/§6.3. Unknown-field tolerance is the consumer's
// obligation; this struct only ever grows new optional fields.
type Telemetry struct {
	SchemaVersion int `json:"schema_version"`

	RunID     uuid.UUID `json:"run_id"`
	ImageID   string `json:"image_id"`
	FoodIndex int    `json:"food_index"`
	Query     string `json:"query"`

	AlignmentStage   Stage    `json:"alignment_stage"`
	AttemptedStages  []Stage  `json:"attempted_stages"`

	CandidatePoolSize         int `json:"candidate_pool_size"`
	CandidatePoolFoundation   int `json:"candidate_pool_foundation_count"`
	CandidatePoolLegacy       int `json:"candidate_pool_legacy_count"`
	CandidatePoolBranded      int `json:"candidate_pool_branded_count"`

	StageTimingsMs        map[string]float64 `json:"stage_timings_ms"`
	StageRejectionReasons []string           `json:"stage_rejection_reasons"`

	ClassIntent ClassIntent `json:"class_intent"`
	FormIntent  FormIntent  `json:"form_intent"`

	VariantChosen        string   `json:"variant_chosen,omitempty"`
	FoundationPoolCount  int      `json:"foundation_pool_count"`
	SearchVariantsTried  []string `json:"search_variants_tried,omitempty"`

	GuardrailProduceApplied bool `json:"guardrail_produce_applied"`
	GuardrailEggsApplied    bool `json:"guardrail_eggs_applied"`

	FdcID                  *int64   `json:"fdc_id,omitempty"`
	FdcName                string   `json:"fdc_name,omitempty"`
	MatchedEnergyPer100g   *float64 `json:"matched_energy_per_100g,omitempty"`

	ConversionApplied bool                   `json:"conversion_applied"`
	ConversionSteps   *ConversionProvenance  `json:"conversion_steps,omitempty"`

	Stage1cSwitched *Stage1cSwitch `json:"stage1c_switched,omitempty"`

	SemanticSimilarity      *float64 `json:"semantic_similarity,omitempty"`
	SemanticRejectionReason string   `json:"semantic_rejection_reason,omitempty"`
	EnergyBandTolerancePct  *float64 `json:"energy_band_tolerance_pct,omitempty"`

	RecipeTemplate string   `json:"recipe_template,omitempty"`
	ExpandedFoods  []string `json:"expanded_foods,omitempty"`

	StageZBrandedFallback *StageZFallback `json:"stageZ_branded_fallback,omitempty"`

	Note string `json:"note,omitempty"`

	CodeGitSHA    string `json:"code_git_sha"`
	ConfigVersion string `json:"config_version"`
	NDBSnapshot   string `json:"ndb_snapshot"`

	EmittedAt time.Time `json:"emitted_at"`
}

// GuardSummary is the run-scoped set of mutable counters described in
// spec.md §5/§4.11. It is owned by a single Engine instance; batch
// runners merge per-instance summaries themselves.
type GuardSummary struct {
	EnergyGuardsChecked  int
	EnergyGuardsRejected int
	MacroGuardsChecked   int
	MacroGuardsRejected  int
	ProteinFailures      int
	CarbFailures         int
	FatFailures          int
	TotalAccepted        int
	StageZUsageCount     int
}

// Merge folds other's counters into s. Used by batch runners combining
// per-engine-instance summaries (spec.md §5, "Mutation discipline").
func (s *GuardSummary) Merge(other GuardSummary) {
	s.EnergyGuardsChecked += other.EnergyGuardsChecked
	s.EnergyGuardsRejected += other.EnergyGuardsRejected
	s.MacroGuardsChecked += other.MacroGuardsChecked
	s.MacroGuardsRejected += other.MacroGuardsRejected
	s.ProteinFailures += other.ProteinFailures
	s.CarbFailures += other.CarbFailures
	s.FatFailures += other.FatFailures
	s.TotalAccepted += other.TotalAccepted
	s.StageZUsageCount += other.StageZUsageCount
}
