package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alignment-core/foodalign/pkg/errors"
)

func writeMinimalConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "class_thresholds.yaml"), []byte("potato: 0.55\negg: 0.60\n"), 0o644))
	return dir
}

func TestLoadAlignConfigMissingRequiredDocument(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadAlignConfig(dir)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "LoadAlignConfig must return a typed AppError")
	assert.Equal(t, apperrors.CodeConfigMissing, appErr.Code)
}

func TestLoadAlignConfigMinimalDirSucceeds(t *testing.T) {
	dir := writeMinimalConfigDir(t)

	store, err := LoadAlignConfig(dir)
	require.NoError(t, err)
	cfg := store.Snapshot()

	assert.Equal(t, 0.55, cfg.ClassThreshold("potato"))
	assert.Equal(t, 0.50, cfg.ClassThreshold("unconfigured-class"))
	assert.NotEmpty(t, cfg.Fingerprint)
}

func TestLoadAlignConfigFingerprintStableAcrossReloadsOfSameDocuments(t *testing.T) {
	dir := writeMinimalConfigDir(t)

	storeA, err := LoadAlignConfig(dir)
	require.NoError(t, err)
	storeB, err := LoadAlignConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, storeA.Snapshot().Fingerprint, storeB.Snapshot().Fingerprint)
}

func TestLoadAlignConfigFingerprintChangesWithContent(t *testing.T) {
	dir := writeMinimalConfigDir(t)
	storeA, err := LoadAlignConfig(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "class_thresholds.yaml"), []byte("potato: 0.70\n"), 0o644))
	storeB, err := LoadAlignConfig(dir)
	require.NoError(t, err)

	assert.NotEqual(t, storeA.Snapshot().Fingerprint, storeB.Snapshot().Fingerprint)
}

func TestLoadAlignConfigEnergyGuardDefaultsApplied(t *testing.T) {
	dir := writeMinimalConfigDir(t)
	store, err := LoadAlignConfig(dir)
	require.NoError(t, err)

	guards := store.Snapshot().EnergyGuards
	assert.Equal(t, 0.30, guards.DefaultPct)
	assert.Equal(t, 0.20, guards.HighEnergyPct)
	assert.Equal(t, 0.40, guards.ProducePct)
}

func TestLoadAlignConfigInvalidYAMLReturnsConfigInvalid(t *testing.T) {
	dir := writeMinimalConfigDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feature_flags.yaml"), []byte("not: [valid: yaml"), 0o644))

	_, err := LoadAlignConfig(dir)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConfigInvalid, appErr.Code)
}

func TestLoadAlignConfigRecipeRatioValidation(t *testing.T) {
	dir := writeMinimalConfigDir(t)
	recipesDir := filepath.Join(dir, "recipes")
	require.NoError(t, os.MkdirAll(recipesDir, 0o755))
	bad := `
name: broken_recipe
triggers: ["broken dish"]
components:
  - key: a
    ratio: 0.3
  - key: b
    ratio: 0.3
`
	require.NoError(t, os.WriteFile(filepath.Join(recipesDir, "broken.yaml"), []byte(bad), 0o644))

	_, err := LoadAlignConfig(dir)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConfigInvalid, appErr.Code)
}

func TestLoadAlignConfigRecipeLoadsSuccessfully(t *testing.T) {
	dir := writeMinimalConfigDir(t)
	recipesDir := filepath.Join(dir, "recipes")
	require.NoError(t, os.MkdirAll(recipesDir, 0o755))
	good := `
name: simple_dish
triggers: ["simple dish"]
components:
  - key: a
    ratio: 0.6
  - key: b
    ratio: 0.4
`
	require.NoError(t, os.WriteFile(filepath.Join(recipesDir, "simple.yaml"), []byte(good), 0o644))

	store, err := LoadAlignConfig(dir)
	require.NoError(t, err)
	require.Len(t, store.Snapshot().Recipes, 1)
	assert.Equal(t, "simple_dish", store.Snapshot().Recipes[0].Name)
}
