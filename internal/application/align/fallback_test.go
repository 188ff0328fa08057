package align

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

type fakeNDBReader struct {
	byID map[int64]align.Entry
}

func (f *fakeNDBReader) Lookup(ctx context.Context, identifier int64) (*align.Entry, error) {
	if e, ok := f.byID[identifier]; ok {
		return &e, nil
	}
	return nil, nil
}

func (f *fakeNDBReader) Search(ctx context.Context, keyword string, sourceFilter []align.SourceTag) ([]align.Entry, error) {
	return nil, nil
}

func (f *fakeNDBReader) ContentFingerprint(ctx context.Context) (string, error) {
	return "fake", nil
}

func TestLookupKey(t *testing.T) {
	assert.Equal(t, "potato_roasted", LookupKey(align.NormalizedQuery{CoreClass: "potato", Method: "roasted"}))
	assert.Equal(t, "egg_cooked", LookupKey(align.NormalizedQuery{CoreClass: "egg", Form: "cooked"}))
	assert.Equal(t, "egg", LookupKey(align.NormalizedQuery{CoreClass: "egg", Form: "raw"}))
	assert.Equal(t, "", LookupKey(align.NormalizedQuery{}))
}

func TestFallbackResolverNoKey(t *testing.T) {
	f := NewFallbackResolver(nil)
	out := f.Resolve(context.Background(), align.NormalizedQuery{}, nil, false)
	assert.False(t, out.Found)
	assert.Contains(t, out.RejectionReason, "no lookup key")
}

func TestFallbackResolverNoEntryForKey(t *testing.T) {
	f := NewFallbackResolver(nil)
	nq := align.NormalizedQuery{CoreClass: "potato", Method: "roasted"}
	out := f.Resolve(context.Background(), nq, map[string]align.BrandedFallback{}, false)
	assert.False(t, out.Found)
}

func TestFallbackResolverSynonymMismatch(t *testing.T) {
	f := NewFallbackResolver(nil)
	nq := align.NormalizedQuery{CoreClass: "potato", Method: "roasted", CanonicalName: "mystery tuber"}
	fallbacks := map[string]align.BrandedFallback{
		"potato_roasted": {Identifier: 1, Synonyms: []string{"russet"}, DBVerified: true},
	}
	out := f.Resolve(context.Background(), nq, fallbacks, false)
	assert.False(t, out.Found)
	assert.Contains(t, out.RejectionReason, "synonym")
}

func TestFallbackResolverUnverifiedBlockedByDefault(t *testing.T) {
	f := NewFallbackResolver(nil)
	nq := align.NormalizedQuery{CoreClass: "potato", Method: "roasted", CanonicalName: "potato_roasted"}
	fallbacks := map[string]align.BrandedFallback{
		"potato_roasted": {Identifier: 1, DBVerified: false},
	}
	out := f.Resolve(context.Background(), nq, fallbacks, false)
	assert.False(t, out.Found)
	assert.Contains(t, out.RejectionReason, "unverified")
}

func TestFallbackResolverResolvesFromLiveNDB(t *testing.T) {
	ndb := &fakeNDBReader{byID: map[int64]align.Entry{
		42: {Identifier: 42, Name: "Brand Roasted Potato", Source: align.SourceBranded, Nutrients: align.Nutrients{EnergyKcal: 130}},
	}}
	f := NewFallbackResolver(ndb)
	nq := align.NormalizedQuery{CoreClass: "potato", Method: "roasted", CanonicalName: "potato_roasted"}
	fallbacks := map[string]align.BrandedFallback{
		"potato_roasted": {Identifier: 42, DBVerified: true, KcalMin: 100, KcalMax: 160},
	}
	out := f.Resolve(context.Background(), nq, fallbacks, false)
	require.True(t, out.Found)
	assert.True(t, out.Fallback.InLiveNDB)
	assert.Equal(t, "manual_verified", out.Fallback.Source)
}

func TestFallbackResolverRejectsOutOfBoundsEnergy(t *testing.T) {
	ndb := &fakeNDBReader{byID: map[int64]align.Entry{
		42: {Identifier: 42, Name: "Brand Roasted Potato", Source: align.SourceBranded, Nutrients: align.Nutrients{EnergyKcal: 900}},
	}}
	f := NewFallbackResolver(ndb)
	nq := align.NormalizedQuery{CoreClass: "potato", Method: "roasted", CanonicalName: "potato_roasted"}
	fallbacks := map[string]align.BrandedFallback{
		"potato_roasted": {Identifier: 42, DBVerified: true, KcalMin: 100, KcalMax: 160},
	}
	out := f.Resolve(context.Background(), nq, fallbacks, false)
	assert.False(t, out.Found)
	assert.Contains(t, out.RejectionReason, "kcal_bounds")
}

func TestFallbackResolverRejectsMatchingRejectPattern(t *testing.T) {
	ndb := &fakeNDBReader{byID: map[int64]align.Entry{
		42: {Identifier: 42, Name: "Brand Potato Chips", Source: align.SourceBranded, Nutrients: align.Nutrients{EnergyKcal: 130}},
	}}
	f := NewFallbackResolver(ndb)
	nq := align.NormalizedQuery{CoreClass: "potato", Method: "roasted", CanonicalName: "potato_roasted"}
	fallbacks := map[string]align.BrandedFallback{
		"potato_roasted": {Identifier: 42, DBVerified: true, KcalMin: 100, KcalMax: 160, RejectPatterns: []string{"chips"}},
	}
	out := f.Resolve(context.Background(), nq, fallbacks, false)
	assert.False(t, out.Found)
	assert.Contains(t, out.RejectionReason, "reject pattern")
}

func TestResolveEnergyOnlyNeverProxySet(t *testing.T) {
	f := NewFallbackResolver(nil)
	out := f.ResolveEnergyOnly(align.NormalizedQuery{CoreClass: "egg"}, align.ClassEggs, map[string]bool{"egg": true}, nil)
	assert.False(t, out.Found)
	assert.Contains(t, out.RejectionReason, "never_proxy")
}

func TestResolveEnergyOnlyExcludesProduce(t *testing.T) {
	f := NewFallbackResolver(nil)
	out := f.ResolveEnergyOnly(align.NormalizedQuery{CoreClass: "grape"}, align.ClassProduce, nil, map[string]float64{"grape": 69})
	assert.False(t, out.Found)
	assert.Contains(t, out.RejectionReason, "produce/leafy")
}

func TestResolveEnergyOnlySucceeds(t *testing.T) {
	f := NewFallbackResolver(nil)
	out := f.ResolveEnergyOnly(align.NormalizedQuery{CoreClass: "granola"}, align.ClassNone, nil, map[string]float64{"granola": 471})
	require.True(t, out.Found)
	assert.Equal(t, 471.0, out.Entry.Nutrients.EnergyKcal)
	assert.Equal(t, "granola", out.EnergyOnlyProxyTag)
}
