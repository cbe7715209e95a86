// Package engine implements the unified per-period calculation sweep: bind
// the provider chain, walk the template's calculation order publishing each
// line item's result as it's computed, then run validation rules.
package engine

import (
	"fmt"

	"finmodel/internal/apperrors"
	"finmodel/internal/calc"
	"finmodel/internal/formula"
	"finmodel/internal/model"
	"finmodel/internal/providers"
	"finmodel/internal/template"
	"finmodel/internal/validation"
)

// UnifiedResult is the outcome of running one template through one
// entity/scenario/period.
type UnifiedResult struct {
	EntityID   calc.EntityID
	ScenarioID calc.ScenarioID
	PeriodID   calc.PeriodID
	Values     map[string]float64
	Validation validation.Result
}

// Success reports whether every ERROR-severity validation rule passed.
func (r UnifiedResult) Success() bool {
	return r.Validation.Success
}

// UnifiedEngine computes one statement template's line items for one period,
// binding drivers, in-flight statement values, FX, and tax resolution into a
// single provider chain.
type UnifiedEngine struct {
	tpl   *template.Template
	rules []model.ValidationRule

	driverProvider    calc.ValueProvider
	statementProvider *providers.StatementValueProvider
	extraProviders    []calc.ValueProvider

	eval       *formula.Evaluator
	validation *validation.Engine
}

// New builds a UnifiedEngine for tpl. extraProviders (FX, tax, and any
// others) are tried after the driver and in-flight statement providers, in
// the order given.
func New(tpl *template.Template, driverProvider calc.ValueProvider, rules []model.ValidationRule, extraProviders ...calc.ValueProvider) *UnifiedEngine {
	return &UnifiedEngine{
		tpl:               tpl,
		rules:             rules,
		driverProvider:    driverProvider,
		statementProvider: providers.NewStatementValueProvider(),
		extraProviders:    extraProviders,
		eval:              formula.NewEvaluator(),
		validation:        validation.NewEngine(),
	}
}

// StatementProvider exposes the in-flight value provider so callers (e.g.
// the tax provider) can read the live current-period map.
func (e *UnifiedEngine) StatementProvider() *providers.StatementValueProvider {
	return e.statementProvider
}

// AddProvider appends an additional provider to the resolution chain, tried
// after the driver and in-flight statement providers. Used for providers
// (e.g. tax) that themselves need to read this engine's in-flight values and
// so can only be constructed after New returns.
func (e *UnifiedEngine) AddProvider(p calc.ValueProvider) {
	e.extraProviders = append(e.extraProviders, p)
}

// Run computes every line item in tpl's calculation order for ctx, using
// opening as the prior period's closing values, then validates the result.
func (e *UnifiedEngine) Run(ctx calc.Context, opening map[string]float64) (UnifiedResult, error) {
	e.statementProvider.SetOpeningValues(opening)
	e.statementProvider.SetCurrentValues(make(map[string]float64))

	chain := make([]calc.ValueProvider, 0, 3+len(e.extraProviders))
	chain = append(chain, e.driverProvider, e.statementProvider)
	chain = append(chain, e.extraProviders...)

	for _, code := range e.tpl.CalculationOrder() {
		item := e.tpl.LineItem(code)
		if item == nil {
			return e.partialResult(ctx), fmt.Errorf("%w: calculation order references unknown line item %q", apperrors.ErrDomain, code)
		}

		value, err := e.resolveLineItem(*item, chain, ctx)
		if err != nil {
			return e.partialResult(ctx), fmt.Errorf("line item %q: %w", code, err)
		}

		e.statementProvider.PublishCurrentValue(code, value)
	}

	current := e.statementProvider.Current()
	known := func(code string) bool {
		if _, ok := current[code]; ok {
			return true
		}
		_, ok := opening[code]
		return ok
	}

	validationResult := e.validation.Run(e.rules, known, chain, ctx, nil)

	values := make(map[string]float64, len(current))
	for k, v := range current {
		values[k] = v
	}

	return UnifiedResult{
		EntityID:   ctx.EntityID,
		ScenarioID: ctx.ScenarioID,
		PeriodID:   ctx.PeriodID,
		Values:     values,
		Validation: validationResult,
	}, nil
}

// partialResult snapshots whatever line items were already published to the
// current-period map before a mid-sweep failure, so a caller that errors out
// on one line item still sees every value computed ahead of it rather than
// losing the whole period.
func (e *UnifiedEngine) partialResult(ctx calc.Context) UnifiedResult {
	current := e.statementProvider.Current()
	values := make(map[string]float64, len(current))
	for k, v := range current {
		values[k] = v
	}

	return UnifiedResult{
		EntityID:   ctx.EntityID,
		ScenarioID: ctx.ScenarioID,
		PeriodID:   ctx.PeriodID,
		Values:     values,
		Validation: validation.Result{Success: false},
	}
}

func (e *UnifiedEngine) resolveLineItem(item template.LineItem, chain []calc.ValueProvider, ctx calc.Context) (float64, error) {
	if item.IsComputed && item.Formula != nil {
		return e.eval.Evaluate(*item.Formula, chain, ctx, nil)
	}

	if e.driverProvider.HasValue(item.Code, ctx) {
		return e.driverProvider.GetValue(item.Code, ctx)
	}

	if item.Formula != nil {
		return e.eval.Evaluate(*item.Formula, chain, ctx, nil)
	}

	return 0, nil
}
