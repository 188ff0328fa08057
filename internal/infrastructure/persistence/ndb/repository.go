package ndb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
	apperrors "github.com/alignment-core/foodalign/pkg/errors"
)

// defaultCacheCapacity is spec.md §4.2's documented LRU size: "512
// entries, keyed by fdc_id or normalized search term."
const defaultCacheCapacity = 512

// Repository implements outbound.NDBReader over a GORM connection
// (Postgres or SQLite, per spec.md §4.2's "driver-agnostic" note),
// grounded on internal/infrastructure/persistence/gorm/recipe_repository.go's
// struct-wrapping-*gorm.DB shape, with an LRU cache in front of both
// Lookup and Search.
type Repository struct {
	db           *gorm.DB
	lookupCache  *lru.Cache[int64, align.Entry]
	searchCache  *lru.Cache[string, []align.Entry]
}

var _ outbound.NDBReader = (*Repository)(nil)

// NewRepository constructs the NDB Adapter. capacity <= 0 falls back to
// spec.md §4.2's documented default of 512.
func NewRepository(db *gorm.DB, capacity int) (*Repository, error) {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	lookupCache, err := lru.New[int64, align.Entry](capacity)
	if err != nil {
		return nil, apperrors.Wrap(err, "constructing ndb lookup cache")
	}
	searchCache, err := lru.New[string, []align.Entry](capacity)
	if err != nil {
		return nil, apperrors.Wrap(err, "constructing ndb search cache")
	}
	return &Repository{db: db, lookupCache: lookupCache, searchCache: searchCache}, nil
}

// Lookup fetches a single entry by fdc_id, consulting the LRU cache
// first.
func (r *Repository) Lookup(ctx context.Context, identifier int64) (*align.Entry, error) {
	if e, ok := r.lookupCache.Get(identifier); ok {
		entryCopy := e
		return &entryCopy, nil
	}

	var model EntryModel
	result := r.db.WithContext(ctx).First(&model, "fdc_id = ?", identifier)
	if result.Error != nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ndb entry %d", identifier))
	}

	entry := modelToEntry(model)
	r.lookupCache.Add(identifier, entry)
	return &entry, nil
}

// Search finds entries whose name contains keyword (case-insensitive),
// optionally restricted to sourceFilter. Results are cached by a
// composite key of keyword and filter.
func (r *Repository) Search(ctx context.Context, keyword string, sourceFilter []align.SourceTag) ([]align.Entry, error) {
	cacheKey := cacheKeyFor(keyword, sourceFilter)
	if entries, ok := r.searchCache.Get(cacheKey); ok {
		return entries, nil
	}

	query := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(keyword)+"%")

	if len(sourceFilter) > 0 {
		sources := make([]string, len(sourceFilter))
		for i, s := range sourceFilter {
			sources[i] = string(s)
		}
		query = query.Where("source IN ?", sources)
	}

	var models []EntryModel
	if err := query.Find(&models).Error; err != nil {
		return nil, apperrors.NewDatabaseError("search ndb entries", err)
	}

	entries := make([]align.Entry, 0, len(models))
	for _, m := range models {
		entries = append(entries, modelToEntry(m))
	}

	r.searchCache.Add(cacheKey, entries)
	return entries, nil
}

// ContentFingerprint hashes the row count and fdc_id/name pairs of the
// live table, giving telemetry a stable ndb_snapshot identifier without
// requiring a separate versioning table (spec.md §6.3's "ndb_snapshot").
func (r *Repository) ContentFingerprint(ctx context.Context) (string, error) {
	var rows []struct {
		FdcID int64
		Name  string
	}
	if err := r.db.WithContext(ctx).Model(&EntryModel{}).
		Select("fdc_id, name").
		Order("fdc_id").
		Find(&rows).Error; err != nil {
		return "", apperrors.NewDatabaseError("fingerprint ndb entries", err)
	}

	h := sha256.New()
	for _, row := range rows {
		fmt.Fprintf(h, "%d:%s\n", row.FdcID, row.Name)
	}
	return "ndb@" + hex.EncodeToString(h.Sum(nil))[:12], nil
}

func cacheKeyFor(keyword string, sourceFilter []align.SourceTag) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(keyword))
	for _, s := range sourceFilter {
		b.WriteString("|")
		b.WriteString(string(s))
	}
	return b.String()
}

func modelToEntry(m EntryModel) align.Entry {
	micros := map[string]float64(m.MicrosJSON)
	return align.Entry{
		Identifier: m.FdcID,
		Name:       m.Name,
		Source:     align.SourceTag(m.Source),
		Form:       align.FormTag(m.Form),
		Nutrients: align.Nutrients{
			EnergyKcal: m.EnergyKcal,
			ProteinG:   m.ProteinG,
			CarbG:      m.CarbG,
			FatG:       m.FatG,
		},
		Micros: micros,
	}
}
