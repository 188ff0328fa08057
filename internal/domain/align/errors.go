package align

import "errors"

// Domain-level sentinel errors. These represent recoverable, expected
// outcomes inside the alignment cascade (spec.md §7 calls these "Kinds,
// not types") -- callers use errors.Is against them, never a type switch.
var (
	// Startup-level failures (spec.md §7): refuse to start / fail fast.
	ErrConfigMissing         = errors.New("config_missing")
	ErrConfigInvalid         = errors.New("config_invalid")
	ErrDatabaseUnavailable   = errors.New("database_unavailable")

	// Recoverable within the cascade; never propagated to the caller as
	// a hard failure. Each has a corresponding Stage/Telemetry field.
	ErrConversionUnsupported     = errors.New("conversion_unsupported")
	ErrMacroGuardFailure         = errors.New("macro_guard_failure")
	ErrEnergyGuardFailure        = errors.New("energy_guard_failure")
	ErrDecompositionAborted      = errors.New("decomposition_aborted")
	ErrSemanticUnavailable       = errors.New("semantic_unavailable")
	ErrStageZSeedGuardrailFailed = errors.New("stagez_seed_guardrail_failed")

	// Recipe template load-time errors.
	ErrRecipeRatioSum   = errors.New("recipe template ratios do not sum to 1.0")
	ErrRecipeNoTriggers = errors.New("recipe template has no triggers")
)
