// Package tax implements pluggable tax strategies and the "tax:STRATEGY"
// value provider formulas reference to compute tax expense from pre-tax
// income.
package tax

import (
	"fmt"
	"sort"
	"strings"

	"finmodel/internal/apperrors"
	"finmodel/internal/calc"
)

// Strategy computes tax expense on a pre-tax income amount.
type Strategy interface {
	ComputeTax(income float64) float64
}

// FlatRateStrategy taxes positive income at a single flat rate.
type FlatRateStrategy struct {
	Rate float64
}

// ComputeTax returns 0 for non-positive income, else income*Rate.
func (s FlatRateStrategy) ComputeTax(income float64) float64 {
	if income <= 0 {
		return 0
	}
	return income * s.Rate
}

// Bracket is one progressive-tax bracket: income above Threshold is taxed
// at Rate, up to the next bracket's threshold.
type Bracket struct {
	Threshold float64
	Rate      float64
}

// ProgressiveStrategy taxes income across ascending brackets, each segment
// taxed only on the income falling within it.
type ProgressiveStrategy struct {
	Brackets []Bracket
}

// ComputeTax applies bracket-by-bracket marginal rates to income.
func (s ProgressiveStrategy) ComputeTax(income float64) float64 {
	if income <= 0 {
		return 0
	}

	brackets := append([]Bracket(nil), s.Brackets...)
	sort.Slice(brackets, func(i, j int) bool { return brackets[i].Threshold < brackets[j].Threshold })

	var tax float64
	for i, b := range brackets {
		if income <= b.Threshold {
			break
		}

		var upper float64
		if i+1 < len(brackets) {
			upper = brackets[i+1].Threshold
		} else {
			upper = income
		}
		if upper > income {
			upper = income
		}

		segment := upper - b.Threshold
		if segment <= 0 {
			continue
		}
		tax += segment * b.Rate
	}

	return tax
}

// MinimumTaxStrategy computes tax as the greater of a regular and an
// alternative-minimum strategy's results.
type MinimumTaxStrategy struct {
	Regular     Strategy
	Alternative Strategy
}

// ComputeTax returns max(Regular, Alternative) applied to income.
func (s MinimumTaxStrategy) ComputeTax(income float64) float64 {
	regular := s.Regular.ComputeTax(income)
	alt := s.Alternative.ComputeTax(income)
	if alt > regular {
		return alt
	}
	return regular
}

// Engine is a registry of named tax strategies.
type Engine struct {
	strategies map[string]Strategy
}

// NewEngine returns an engine pre-registered with the standard strategy set:
// US_FEDERAL (flat 21%), NO_TAX (0%), HIGH_TAX (flat 35%), and
// US_PROGRESSIVE (the six-bracket US individual schedule).
func NewEngine() *Engine {
	e := &Engine{strategies: make(map[string]Strategy)}

	e.RegisterStrategy("US_FEDERAL", FlatRateStrategy{Rate: 0.21})
	e.RegisterStrategy("NO_TAX", FlatRateStrategy{Rate: 0})
	e.RegisterStrategy("HIGH_TAX", FlatRateStrategy{Rate: 0.35})
	e.RegisterStrategy("US_PROGRESSIVE", ProgressiveStrategy{Brackets: []Bracket{
		{Threshold: 0, Rate: 0.10},
		{Threshold: 50_000, Rate: 0.12},
		{Threshold: 100_000, Rate: 0.22},
		{Threshold: 200_000, Rate: 0.24},
		{Threshold: 500_000, Rate: 0.32},
		{Threshold: 1_000_000, Rate: 0.35},
	}})

	return e
}

// RegisterStrategy adds or replaces a named strategy.
func (e *Engine) RegisterStrategy(name string, s Strategy) {
	e.strategies[name] = s
}

// HasStrategy reports whether name is registered.
func (e *Engine) HasStrategy(name string) bool {
	_, ok := e.strategies[name]
	return ok
}

// ComputeTax applies the named strategy to income.
func (e *Engine) ComputeTax(income float64, strategyName string) (float64, error) {
	s, ok := e.strategies[strategyName]
	if !ok {
		return 0, fmt.Errorf("%w: unknown tax strategy %q", apperrors.ErrDomain, strategyName)
	}
	return s.ComputeTax(income), nil
}

// EffectiveRate returns the named strategy's tax as a fraction of income, or
// 0 when income is non-positive.
func (e *Engine) EffectiveRate(income float64, strategyName string) (float64, error) {
	taxAmount, err := e.ComputeTax(income, strategyName)
	if err != nil {
		return 0, err
	}
	if income <= 0 {
		return 0, nil
	}
	return taxAmount / income, nil
}

const prefix = "tax:"

func parseStrategyName(code string) (string, bool) {
	if !strings.HasPrefix(code, prefix) || len(code) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(code, prefix), true
}

// ResultsFunc returns the current period's in-flight line item values, used
// to locate pre-tax income when resolving a "tax:STRATEGY" reference.
type ResultsFunc func() map[string]float64

// Provider resolves "tax:STRATEGY" identifiers (e.g. "tax:US_FEDERAL") to
// the tax expense computed on the current period's pre-tax income.
type Provider struct {
	engine  *Engine
	results ResultsFunc
}

// NewProvider binds a Provider to a tax engine and a results accessor.
func NewProvider(engine *Engine, results ResultsFunc) *Provider {
	return &Provider{engine: engine, results: results}
}

// HasValue reports whether code names a registered tax strategy.
func (p *Provider) HasValue(code string, ctx calc.Context) bool {
	name, ok := parseStrategyName(code)
	if !ok {
		return false
	}
	return p.engine.HasStrategy(name)
}

var preTaxIncomeKeys = []string{"PRE_TAX_INCOME", "PRETAX_INCOME", "EBT"}

// GetValue computes tax expense for the strategy code names, against the
// first recognized pre-tax income line item in the current results.
func (p *Provider) GetValue(code string, ctx calc.Context) (float64, error) {
	name, ok := parseStrategyName(code)
	if !ok {
		return 0, fmt.Errorf("%w: invalid tax reference %q", apperrors.ErrResolution, code)
	}

	results := p.results()
	var preTaxIncome float64
	var found bool
	for _, key := range preTaxIncomeKeys {
		if v, ok := results[key]; ok {
			preTaxIncome = v
			found = true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: cannot compute tax, no pre-tax income line item present", apperrors.ErrResolution)
	}

	return p.engine.ComputeTax(preTaxIncome, name)
}
