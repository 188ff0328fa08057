package align

// EnergyGuardBand is a class-conditional energy tolerance used by both
// the macro guards and the semantic retriever's energy-band filter.
type EnergyGuardBand struct {
	HighEnergyClasses map[string]bool `mapstructure:"high_energy_classes"`
	ProduceClasses    map[string]bool `mapstructure:"produce_classes"`
	DefaultPct        float64         `mapstructure:"default_pct"`     // e.g. 0.30
	HighEnergyPct     float64         `mapstructure:"high_energy_pct"` // e.g. 0.20
	ProducePct        float64         `mapstructure:"produce_pct"`     // e.g. 0.40

	ProteinToleranceMult float64 `mapstructure:"protein_tolerance_mult"` // e.g. 2.0
	ProteinToleranceMinG float64 `mapstructure:"protein_tolerance_min_g"` // e.g. 5
	CarbToleranceMult    float64 `mapstructure:"carb_tolerance_mult"`    // e.g. 2.5
	CarbToleranceMinG    float64 `mapstructure:"carb_tolerance_min_g"`   // e.g. 10
	FatToleranceMult     float64 `mapstructure:"fat_tolerance_mult"`     // e.g. 3.0
	FatToleranceMinG     float64 `mapstructure:"fat_tolerance_min_g"`    // e.g. 3
}

// TolerancePct returns the fractional energy tolerance for a core class.
func (g EnergyGuardBand) TolerancePct(coreClass string) float64 {
	if g.HighEnergyClasses[coreClass] {
		return g.HighEnergyPct
	}
	if g.ProduceClasses[coreClass] {
		return g.ProducePct
	}
	return g.DefaultPct
}

// CookMassChange describes the mass transform applied by a cooking
// method: shrinkage or expansion around a mean with a recorded standard
// deviation (the sd is carried for telemetry/diagnostics; the point
// conversion uses only the mean, per spec.md §4.7).
type CookMassChange struct {
	Type string  `mapstructure:"type"` // "shrinkage" | "expansion"
	Mean float64 `mapstructure:"mean"`
	SD   float64 `mapstructure:"sd"`
}

// CookConversionProfile is one (base_class, method) entry from the
// cook_conversions config document.
type CookConversionProfile struct {
	MassChange         CookMassChange     `mapstructure:"mass_change"`
	SurfaceOilKcal100g float64            `mapstructure:"surface_oil_kcal_100g"`
	SurfaceOilFatG100g float64            `mapstructure:"surface_oil_fat_g_100g"`
	NutrientRetention  map[string]float64 `mapstructure:"nutrient_retention"` // nutrient -> retention factor
}

// BrandedFallback is one entry in the Stage Z verified map.
type BrandedFallback struct {
	Key            string   `mapstructure:"key"`
	Brand          string   `mapstructure:"brand"`
	Identifier     int64    `mapstructure:"identifier"`
	KcalMin        float64  `mapstructure:"kcal_min"`
	KcalMax        float64  `mapstructure:"kcal_max"`
	Synonyms       []string `mapstructure:"synonyms"`
	RejectPatterns []string `mapstructure:"reject_patterns"`
	DBVerified     bool     `mapstructure:"db_verified"`
	Note           string   `mapstructure:"note"`
}

// CategoryAllowlist is the per-class guardrail vocabulary.
type CategoryAllowlist struct {
	AllowContains     []string `mapstructure:"allow_contains"`
	PenalizeContains  []string `mapstructure:"penalize_contains"`
	HardBlockContains []string `mapstructure:"hard_block_contains"`
}

// FeatureFlags are the recognized boolean/numeric toggles from spec.md
// §4.1. Unknown flag names loaded from config are ignored rather than
// erroring, so new flags can roll out without a schema migration.
type FeatureFlags struct {
	AllowStageZForPartialPools bool    `mapstructure:"allow_stagez_for_partial_pools"`
	StrictCookedExactGate      bool    `mapstructure:"strict_cooked_exact_gate"`
	EnableRecipeDecomposition  bool    `mapstructure:"enable_recipe_decomposition"`
	EnableSemanticSearch       bool    `mapstructure:"enable_semantic_search"`
	EnableAlignmentCaches      bool    `mapstructure:"enable_alignment_caches"`
	SemanticTopK               int     `mapstructure:"semantic_top_k"`
	SemanticMinSim             float64 `mapstructure:"semantic_min_sim"`
	SemanticMaxCand            int     `mapstructure:"semantic_max_cand"`
	AllowUnverifiedBranded     bool    `mapstructure:"allow_unverified_branded"`
}

// DefaultFeatureFlags returns the documented defaults from spec.md §4.1.
func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{
		AllowStageZForPartialPools: true,
		StrictCookedExactGate:      false,
		EnableRecipeDecomposition:  true,
		EnableSemanticSearch:       false,
		EnableAlignmentCaches:      true,
		SemanticTopK:               10,
		SemanticMinSim:             0.62,
		SemanticMaxCand:            10,
		AllowUnverifiedBranded:     false,
	}
}

// NegativeVocab carries both the per-class substring lists and the
// named top-level lists spec.md §6.2 calls out explicitly.
type NegativeVocab struct {
	ByClass               map[string][]string `mapstructure:"by_class"`
	ProduceHardBlocks     []string            `mapstructure:"produce_hard_blocks"`
	EggsHardBlocks        []string            `mapstructure:"eggs_hard_blocks"`
	Stage1cProcessedTerms []string            `mapstructure:"stage1c_processed_terms"`
	Stage1cRawSynonyms    []string            `mapstructure:"stage1c_raw_synonyms"`
	NeverProxy            map[string]bool     `mapstructure:"never_proxy"`
}

// Config is the frozen, fingerprinted snapshot the Config Store exposes.
// Every field is read-only after Load returns; mutating a Config after
// load is a bug (spec.md §3, "Config Snapshot").
type Config struct {
	Fingerprint string // "configs@<12-hex>"

	ClassThresholds   map[string]float64
	NegativeVocab     NegativeVocab
	Flags             FeatureFlags
	Variants          map[string][]string
	CategoryAllowlist map[string]CategoryAllowlist
	BrandedFallbacks  map[string]BrandedFallback
	EnergyGuards      EnergyGuardBand
	UnitToGrams       map[string]float64
	CookConversions   map[string]map[string]CookConversionProfile
	CookFallbackMethod string
	Recipes           []RecipeTemplate
}

// ClassThreshold returns the acceptance threshold for a core class,
// falling back to the documented default of 0.50.
func (c *Config) ClassThreshold(coreClass string) float64 {
	if t, ok := c.ClassThresholds[coreClass]; ok {
		return t
	}
	return 0.50
}
