// Package config loads engine-wide settings that spec.md treats as ambient
// (amortization horizon, default currency, point-peril and validation
// tolerances) rather
// than part of any one module's data model.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds engine-wide tunables loaded from YAML. No other package reads
// a Config: carbon.NewBuilder takes its amortization horizon as an argument,
// the risk engine uses its own fixed 1 km point-peril tolerance, and each
// validation rule carries its own tolerance.
type Config struct {
	// CapexAmortizationYears is the capex amortization horizon, in years.
	CapexAmortizationYears int `yaml:"capex_amortization_years"`

	// DefaultCurrency is used when a line item's currency cannot be inferred.
	DefaultCurrency string `yaml:"default_currency"`

	// PointPerilToleranceKM is the distance within which a zero-radius peril
	// still counts as affecting an asset at full intensity.
	PointPerilToleranceKM float64 `yaml:"point_peril_tolerance_km"`

	// ValidationTolerance is a default numeric slack for EQUATION/BOUNDARY rules.
	ValidationTolerance float64 `yaml:"validation_tolerance"`
}

// Default returns the configuration the engine ships with absent an override file.
func Default() Config {
	return Config{
		CapexAmortizationYears: 10,
		DefaultCurrency:        "USD",
		PointPerilToleranceKM:  1.0,
		ValidationTolerance:    1e-6,
	}
}

// Load reads a YAML configuration file, starting from Default() and
// overlaying whatever fields the file sets.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}
