// Package units implements unit-of-measure conversion: fixed-factor
// conversions (e.g. tonnes to kilograms) and time-varying ones that delegate
// to the FX rate provider by treating the unit code as a currency.
package units

import (
	"fmt"

	"finmodel/internal/apperrors"
	"finmodel/internal/calc"
	"finmodel/internal/model"
	"finmodel/internal/store"
)

// RateResolver resolves a time-varying unit's conversion factor, the same
// way fx.Provider resolves a currency pair.
type RateResolver interface {
	GetValue(code string, ctx calc.Context) (float64, error)
}

// Converter converts values between units of measure within the same category.
type Converter struct {
	defs map[string]model.UnitDefinition
	fx   RateResolver
}

// NewConverter loads the unit catalog from s. fx resolves TIME_VARYING
// units' period-specific factors; it may be nil if the catalog has none.
func NewConverter(s store.UnitStore, fx RateResolver) (*Converter, error) {
	defs, err := s.GetUnitDefinitions()
	if err != nil {
		return nil, fmt.Errorf("%w: loading unit definitions: %v", apperrors.ErrResolution, err)
	}

	c := &Converter{defs: make(map[string]model.UnitDefinition, len(defs)), fx: fx}
	for _, d := range defs {
		c.defs[d.UnitCode] = d
	}
	return c, nil
}

// IsValidUnit reports whether code is a known unit.
func (c *Converter) IsValidUnit(code string) bool {
	_, ok := c.defs[code]
	return ok
}

// IsTimeVarying reports whether code's conversion factor must be looked up
// per period rather than being a fixed constant.
func (c *Converter) IsTimeVarying(code string) bool {
	d, ok := c.defs[code]
	return ok && d.ConversionType == model.ConversionTimeVarying
}

// Category returns code's unit category (e.g. "MASS", "CURRENCY").
func (c *Converter) Category(code string) (string, error) {
	d, ok := c.defs[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown unit %q", apperrors.ErrDomain, code)
	}
	return d.UnitCategory, nil
}

// BaseUnit returns code's category base unit code.
func (c *Converter) BaseUnit(code string) (string, error) {
	d, ok := c.defs[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown unit %q", apperrors.ErrDomain, code)
	}
	return d.BaseUnitCode, nil
}

// DisplaySymbol returns code's display symbol.
func (c *Converter) DisplaySymbol(code string) (string, error) {
	d, ok := c.defs[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown unit %q", apperrors.ErrDomain, code)
	}
	return d.DisplaySymbol, nil
}

func (c *Converter) factor(code string, ctx calc.Context) (float64, error) {
	d, ok := c.defs[code]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", apperrors.ErrDomain, code)
	}

	if d.ConversionType == model.ConversionStatic {
		return d.StaticConversionFactor, nil
	}

	if c.fx == nil {
		return 0, fmt.Errorf("%w: unit %q is time-varying but no rate resolver is configured", apperrors.ErrResolution, code)
	}
	return c.fx.GetValue(fmt.Sprintf("FX_%s_%s", code, d.BaseUnitCode), ctx)
}

// ToBaseUnit converts value (in code's unit) into its category's base unit.
func (c *Converter) ToBaseUnit(value float64, code string, ctx calc.Context) (float64, error) {
	d, ok := c.defs[code]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", apperrors.ErrDomain, code)
	}
	if d.ConversionType == model.ConversionTimeVarying {
		rate, err := c.factor(code, ctx)
		if err != nil {
			return 0, err
		}
		return value * rate, nil
	}
	return value * d.StaticConversionFactor, nil
}

// FromBaseUnit converts value (in the category's base unit) into code's unit.
func (c *Converter) FromBaseUnit(value float64, code string, ctx calc.Context) (float64, error) {
	d, ok := c.defs[code]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", apperrors.ErrDomain, code)
	}
	factor, err := c.factor(code, ctx)
	if err != nil {
		return 0, err
	}
	if d.ConversionType == model.ConversionTimeVarying {
		if factor == 0 {
			return 0, fmt.Errorf("%w: zero conversion factor for %q", apperrors.ErrDomain, code)
		}
		return value / factor, nil
	}
	if d.StaticConversionFactor == 0 {
		return 0, fmt.Errorf("%w: zero conversion factor for %q", apperrors.ErrDomain, code)
	}
	return value / d.StaticConversionFactor, nil
}

// Convert converts value from one unit to another within the same category.
func (c *Converter) Convert(value float64, fromCode, toCode string, ctx calc.Context) (float64, error) {
	if fromCode == toCode {
		return value, nil
	}

	fromDef, ok := c.defs[fromCode]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", apperrors.ErrDomain, fromCode)
	}
	toDef, ok := c.defs[toCode]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", apperrors.ErrDomain, toCode)
	}
	if fromDef.UnitCategory != toDef.UnitCategory {
		return 0, fmt.Errorf("%w: cannot convert %q (%s) to %q (%s): different categories",
			apperrors.ErrDomain, fromCode, fromDef.UnitCategory, toCode, toDef.UnitCategory)
	}

	base, err := c.ToBaseUnit(value, fromCode, ctx)
	if err != nil {
		return 0, err
	}
	return c.FromBaseUnit(base, toCode, ctx)
}
