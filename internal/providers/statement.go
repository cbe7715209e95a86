package providers

import (
	"fmt"

	"finmodel/internal/apperrors"
	"finmodel/internal/calc"
)

// StatementValueProvider resolves in-flight statement line items: values
// already computed earlier in the current period's calculation sweep, and
// the prior period's closing values carried forward as this period's
// opening balance sheet.
//
// Resolution follows a dual-map policy: a bare reference (time offset 0)
// prefers the current-period map and falls back to opening; a reference
// shifted by exactly one period back (offset -1) prefers opening and falls
// back to current. Offsets beyond ±1 have no backing history in this
// in-memory engine (PeriodRunner only ever carries the immediately prior
// period's closing balance sheet forward) and resolve to an error.
type StatementValueProvider struct {
	current map[string]float64
	opening map[string]float64
}

// NewStatementValueProvider builds a provider with empty current/opening maps.
func NewStatementValueProvider() *StatementValueProvider {
	return &StatementValueProvider{
		current: make(map[string]float64),
		opening: make(map[string]float64),
	}
}

// SetCurrentValues replaces the current-period value map, e.g. as the
// calculation order is swept and each line item's result is published.
func (p *StatementValueProvider) SetCurrentValues(values map[string]float64) {
	p.current = values
}

// PublishCurrentValue records one freshly computed line item so later
// formulas in the same sweep can reference it.
func (p *StatementValueProvider) PublishCurrentValue(code string, value float64) {
	p.current[code] = value
}

// SetOpeningValues replaces the opening (prior period closing) value map.
func (p *StatementValueProvider) SetOpeningValues(values map[string]float64) {
	p.opening = values
}

// Current returns the live current-period value map, used to feed the tax
// provider's pre-tax-income lookup without importing it here.
func (p *StatementValueProvider) Current() map[string]float64 {
	return p.current
}

// HasValue reports whether code has a value in the current or opening map,
// regardless of ctx.TimeOffset — matching this, per the original, is always
// claimed for any offset and only GetValue can fail for an out-of-range one.
func (p *StatementValueProvider) HasValue(code string, ctx calc.Context) bool {
	if _, ok := p.current[code]; ok {
		return true
	}
	_, ok := p.opening[code]
	return ok
}

// GetValue resolves code under ctx.TimeOffset using the dual-map policy.
func (p *StatementValueProvider) GetValue(code string, ctx calc.Context) (float64, error) {
	switch ctx.TimeOffset {
	case 0:
		if v, ok := p.current[code]; ok {
			return v, nil
		}
		if v, ok := p.opening[code]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("%w: no current value for %q", apperrors.ErrResolution, code)

	case -1:
		if v, ok := p.opening[code]; ok {
			return v, nil
		}
		if v, ok := p.current[code]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("%w: no opening value for %q", apperrors.ErrResolution, code)

	default:
		return 0, fmt.Errorf("%w: time offset %d for %q has no backing history", apperrors.ErrResolution, ctx.TimeOffset, code)
	}
}
