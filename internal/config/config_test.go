package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultReturnsShippedTunables(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.CapexAmortizationYears)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, 1.0, cfg.PointPerilToleranceKM)
	assert.Equal(t, 1e-6, cfg.ValidationTolerance)
}

func TestLoadOverlaysFieldsOnDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_currency: EUR\nvalidation_tolerance: 0.01\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, 0.01, cfg.ValidationTolerance)
	// fields absent from the file keep their Default() value
	assert.Equal(t, 10, cfg.CapexAmortizationYears)
	assert.Equal(t, 1.0, cfg.PointPerilToleranceKM)
}

func TestLoadMissingFileReturnsDefaultAndError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
