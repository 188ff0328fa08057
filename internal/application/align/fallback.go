package align

import (
	"context"
	"strings"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
)

// FallbackOutcome is the result of a Stage Z resolution attempt.
type FallbackOutcome struct {
	Found    bool
	Entry    align.Entry
	Fallback align.StageZFallback
	EnergyOnlyProxyTag string
	RejectionReason string
}

// FallbackResolver implements spec.md §4.10.
type FallbackResolver struct {
	ndb outbound.NDBReader
}

func NewFallbackResolver(ndb outbound.NDBReader) *FallbackResolver {
	return &FallbackResolver{ndb: ndb}
}

// LookupKey computes the Stage Z map key from the normalized query, per
// spec.md §4.10 step 1 (e.g. "potato_roasted", "egg_white").
func LookupKey(nq align.NormalizedQuery) string {
	key := nq.CoreClass
	if key == "" {
		return ""
	}
	if nq.Method != "" {
		key = key + "_" + nq.Method
	} else if nq.Form == "cooked" {
		key = key + "_cooked"
	}
	return key
}

// Resolve runs the verified branded-fallback lookup (spec.md §4.10 steps
// 1-3).
func (f *FallbackResolver) Resolve(
	ctx context.Context,
	nq align.NormalizedQuery,
	brandedFallbacks map[string]align.BrandedFallback,
	allowUnverified bool,
) FallbackOutcome {
	key := LookupKey(nq)
	if key == "" {
		return FallbackOutcome{RejectionReason: "no lookup key derivable"}
	}
	entryConf, ok := brandedFallbacks[key]
	if !ok {
		return FallbackOutcome{RejectionReason: "no fallback entry for key " + key}
	}

	matched := false
	for _, syn := range entryConf.Synonyms {
		if syn == "" {
			continue
		}
		if strings.Contains(nq.CanonicalName, strings.ToLower(syn)) || syn == key {
			matched = true
			break
		}
	}
	if !matched && len(entryConf.Synonyms) > 0 {
		return FallbackOutcome{RejectionReason: "no synonym matched canonical name"}
	}

	if !entryConf.DBVerified && !allowUnverified {
		return FallbackOutcome{RejectionReason: "unverified branded fallback not allowed"}
	}

	var resolved align.Entry
	inLive := false
	if f.ndb != nil {
		if e, err := f.ndb.Lookup(ctx, entryConf.Identifier); err == nil && e != nil {
			resolved = *e
			inLive = true
		}
	}
	if !inLive {
		resolved = align.Entry{
			Identifier: entryConf.Identifier,
			Name:       entryConf.Brand,
			Source:     align.SourceBranded,
			Form:       align.FormUnknown,
		}
	}

	if resolved.Nutrients.EnergyKcal < entryConf.KcalMin || resolved.Nutrients.EnergyKcal > entryConf.KcalMax {
		// An unresolved identifier carries zero nutrients and is treated
		// as a bounds failure unless the entry is explicitly unverified.
		if inLive || entryConf.DBVerified {
			return FallbackOutcome{RejectionReason: "energy outside kcal_bounds"}
		}
	}

	if _, blocked := align.ContainsAnyFold(resolved.Name, entryConf.RejectPatterns); blocked {
		return FallbackOutcome{RejectionReason: "name matches a reject pattern"}
	}

	src := "existing_config"
	if entryConf.DBVerified {
		src = "manual_verified"
	}

	return FallbackOutcome{
		Found: true,
		Entry: resolved,
		Fallback: align.StageZFallback{
			Key:        key,
			Identifier: entryConf.Identifier,
			Source:     src,
			KcalMin:    entryConf.KcalMin,
			KcalMax:    entryConf.KcalMax,
			InLiveNDB:  inLive,
		},
	}
}

// ResolveEnergyOnly implements the secondary stageZ_energy_only mode
// (spec.md §4.10): a pure class-level energy-density proxy, used only
// when no keyed fallback entry exists and the class is not in the
// never_proxy set.
func (f *FallbackResolver) ResolveEnergyOnly(
	nq align.NormalizedQuery,
	classIntent align.ClassIntent,
	neverProxy map[string]bool,
	classEnergyDensity map[string]float64,
) FallbackOutcome {
	if neverProxy[nq.CoreClass] || neverProxy[string(classIntent)] {
		return FallbackOutcome{RejectionReason: "class is in never_proxy set"}
	}
	if classIntent == align.ClassProduce || classIntent == align.ClassLeafyOrCrucifer {
		return FallbackOutcome{RejectionReason: "produce/leafy classes never use energy-only proxy"}
	}
	kcal, ok := classEnergyDensity[nq.CoreClass]
	if !ok {
		return FallbackOutcome{RejectionReason: "no class-level energy density known"}
	}
	return FallbackOutcome{
		Found: true,
		Entry: align.Entry{
			Name:   nq.CoreClass + " (energy-only proxy)",
			Source: align.SourceBranded,
			Form:   align.FormUnknown,
			Nutrients: align.Nutrients{
				EnergyKcal: kcal,
			},
		},
		EnergyOnlyProxyTag: nq.CoreClass,
	}
}
