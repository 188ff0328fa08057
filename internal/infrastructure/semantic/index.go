package semantic

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/alignment-core/foodalign/internal/domain/align"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
	apperrors "github.com/alignment-core/foodalign/pkg/errors"
)

// vectorRecord is one row of vectors.json: an entry identifier paired
// with its embedding.
type vectorRecord struct {
	FdcID  int64     `json:"fdc_id"`
	Vector []float64 `json:"vector"`
}

// metadataRecord is one row of metadata.json, enough of align.Entry to
// reconstruct a Candidate without a second NDB round-trip.
type metadataRecord struct {
	FdcID      int64              `json:"fdc_id"`
	Name       string             `json:"name"`
	Source     align.SourceTag    `json:"source"`
	Form       align.FormTag      `json:"form"`
	EnergyKcal float64            `json:"energy_kcal"`
	ProteinG   float64            `json:"protein_g"`
	CarbG      float64            `json:"carb_g"`
	FatG       float64            `json:"fat_g"`
	Micros     map[string]float64 `json:"micros,omitempty"`
}

// Index implements outbound.SemanticIndex over a checksum-verified pair
// of sibling artifact files (spec.md §6.4). A failed or absent load
// leaves Ready() false rather than returning an error from the
// constructor, so callers can degrade the engine to semantic_unavailable
// (spec.md §7) instead of failing startup.
type Index struct {
	ready   bool
	dim     int
	ids     []int64
	vectors [][]float64
	entries map[int64]align.Entry
}

var _ outbound.SemanticIndex = (*Index)(nil)

// Load reads manifest.json, vectors.json and metadata.json from dir,
// verifying each artifact's SHA-256 against the manifest before
// admitting it. Returns a non-nil *Index with Ready()==false (not an
// error) when the directory is simply absent, since semantic search is
// optional (feature_flags.enable_semantic_search gates it separately).
func Load(dir string) (*Index, error) {
	idx := &Index{entries: map[int64]align.Entry{}}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return idx, nil
	}

	manifest, err := loadManifest(dir)
	if err != nil {
		return idx, nil
	}

	vectorsPath := filepath.Join(dir, manifest.VectorsFile)
	metadataPath := filepath.Join(dir, manifest.MetadataFile)

	if err := verifyChecksum(vectorsPath, manifest.VectorsSHA256); err != nil {
		return idx, nil
	}
	if err := verifyChecksum(metadataPath, manifest.MetadataSHA256); err != nil {
		return idx, nil
	}

	vecRaw, err := os.ReadFile(vectorsPath)
	if err != nil {
		return idx, nil
	}
	var vectorRecords []vectorRecord
	if err := json.Unmarshal(vecRaw, &vectorRecords); err != nil {
		return idx, nil
	}

	metaRaw, err := os.ReadFile(metadataPath)
	if err != nil {
		return idx, nil
	}
	var metaRecords []metadataRecord
	if err := json.Unmarshal(metaRaw, &metaRecords); err != nil {
		return idx, nil
	}

	metaByID := make(map[int64]metadataRecord, len(metaRecords))
	for _, m := range metaRecords {
		metaByID[m.FdcID] = m
	}

	for _, v := range vectorRecords {
		m, ok := metaByID[v.FdcID]
		if !ok {
			continue
		}
		idx.ids = append(idx.ids, v.FdcID)
		idx.vectors = append(idx.vectors, v.Vector)
		idx.entries[v.FdcID] = align.Entry{
			Identifier: m.FdcID,
			Name:       m.Name,
			Source:     m.Source,
			Form:       m.Form,
			Nutrients: align.Nutrients{
				EnergyKcal: m.EnergyKcal,
				ProteinG:   m.ProteinG,
				CarbG:      m.CarbG,
				FatG:       m.FatG,
			},
			Micros: m.Micros,
		}
	}

	idx.dim = manifest.Dimension
	idx.ready = len(idx.ids) > 0
	return idx, nil
}

// Ready reports whether a checksum-verified index is loaded.
func (idx *Index) Ready() bool {
	return idx.ready
}

// Embed produces a deterministic feature-hashed bag-of-trigrams vector.
// There is no retrieved embedding-model dependency in the pack (spec.md
// §6.4 only documents the artifact shape, not how vectors are produced
// at query time), so this hashes into the manifest's declared dimension
// rather than depending on an external model service; DESIGN.md records
// the justification for this being the one place the engine falls back
// to a hand-rolled stdlib implementation.
func (idx *Index) Embed(_ context.Context, text string) ([]float64, error) {
	dim := idx.dim
	if dim <= 0 {
		dim = 64
	}
	vec := make([]float64, dim)
	norm := strings.ToLower(strings.TrimSpace(text))
	for _, trigram := range trigrams(norm) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(trigram))
		bucket := int(h.Sum32()) % dim
		if bucket < 0 {
			bucket += dim
		}
		vec[bucket]++
	}
	if n := floats.Norm(vec, 2); n > 0 {
		floats.Scale(1/n, vec)
	}
	return vec, nil
}

// TopK returns the k nearest neighbors to queryEmbedding by cosine
// similarity, highest similarity first, ties broken by ascending fdc_id
// for determinism (spec.md §8: identical inputs => identical outputs).
func (idx *Index) TopK(_ context.Context, queryEmbedding []float64, k int) ([]outbound.SemanticNeighbor, error) {
	if !idx.ready {
		return nil, apperrors.NewSemanticUnavailableError(nil)
	}

	type scored struct {
		id  int64
		sim float64
	}
	scores := make([]scored, 0, len(idx.ids))
	for i, id := range idx.ids {
		sim := cosineSimilarity(queryEmbedding, idx.vectors[i])
		scores = append(scores, scored{id: id, sim: sim})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].sim != scores[j].sim {
			return scores[i].sim > scores[j].sim
		}
		return scores[i].id < scores[j].id
	})

	if k > len(scores) {
		k = len(scores)
	}

	neighbors := make([]outbound.SemanticNeighbor, 0, k)
	for _, s := range scores[:k] {
		neighbors = append(neighbors, outbound.SemanticNeighbor{
			Entry:      idx.entries[s.id],
			Similarity: s.sim,
		})
	}
	return neighbors, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	dot := floats.Dot(a, b)
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func trigrams(s string) []string {
	padded := "  " + s + "  "
	if len(padded) < 3 {
		return []string{padded}
	}
	out := make([]string, 0, len(padded)-2)
	for i := 0; i+3 <= len(padded); i++ {
		out = append(out, padded[i:i+3])
	}
	return out
}
