// Package semantic implements the outbound.SemanticIndex port: a
// checksum-verified, file-backed nearest-neighbor index for Stage 1S
// (spec.md §4.8/§6.4).
package semantic

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/alignment-core/foodalign/pkg/errors"
)

// Manifest is the small JSON sidecar spec.md §6.4 describes: "embedding
// model identifier, dimension, entry count, build timestamp (ISO 8601
// UTC), SHA-256 of each file."
type Manifest struct {
	EmbeddingModel  string    `json:"embedding_model"`
	Dimension       int       `json:"dimension"`
	EntryCount      int       `json:"entry_count"`
	BuildTimestamp  time.Time `json:"build_timestamp"`
	VectorsSHA256   string    `json:"vectors_sha256"`
	MetadataSHA256  string    `json:"metadata_sha256"`
	VectorsFile     string    `json:"vectors_file"`
	MetadataFile    string    `json:"metadata_file"`
}

func loadManifest(dir string) (Manifest, error) {
	var m Manifest
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return m, apperrors.Wrap(err, "reading semantic index manifest")
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, apperrors.Wrap(err, "parsing semantic index manifest")
	}
	if m.VectorsFile == "" {
		m.VectorsFile = "vectors.json"
	}
	if m.MetadataFile == "" {
		m.MetadataFile = "metadata.json"
	}
	return m, nil
}

func verifyChecksum(path, want string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, "reading semantic index artifact "+path)
	}
	sum := sha256.Sum256(raw)
	got := hex.EncodeToString(sum[:])
	if want != "" && got != want {
		return apperrors.NewConfigInvalidError("semantic index checksum mismatch for " + path)
	}
	return nil
}
