// Package providers implements the calc.ValueProvider chain: drivers, then
// in-flight statement values. FX and tax resolution live in their own
// packages (fx, tax) since they carry their own domain logic.
package providers

import (
	"fmt"
	"strings"

	"finmodel/internal/apperrors"
	"finmodel/internal/calc"
	"finmodel/internal/store"
	"finmodel/internal/template"
)

const driverSourcePrefix = "driver:"

// DriverProvider resolves line items whose base value comes from an external
// driver input rather than a formula. A template line item opts in by
// setting base_value_source to "driver:CODE"; lacking that prefix, the line
// item's own code is used as the driver code.
type DriverProvider struct {
	store    store.DriverStore
	mappings map[string]string // line item code -> driver code

	cacheEntity   calc.EntityID
	cacheScenario calc.ScenarioID
	cachePeriod   calc.PeriodID
	cacheLoaded   bool
	cache         map[string]float64
}

// NewDriverProvider builds a driver provider from a loaded template's
// base_value_source mappings.
func NewDriverProvider(s store.DriverStore, tpl *template.Template) *DriverProvider {
	p := &DriverProvider{
		store:    s,
		mappings: make(map[string]string),
	}

	for _, item := range tpl.LineItems() {
		if item.BaseValueSource == nil {
			continue
		}
		src := *item.BaseValueSource
		if strings.HasPrefix(src, driverSourcePrefix) {
			p.mappings[item.Code] = strings.TrimPrefix(src, driverSourcePrefix)
		}
	}

	return p
}

func (p *DriverProvider) resolveDriverCode(lineItemCode string) string {
	if code, ok := p.mappings[lineItemCode]; ok {
		return code
	}
	return lineItemCode
}

func (p *DriverProvider) ensureLoaded(ctx calc.Context) error {
	if p.cacheLoaded && p.cacheEntity == ctx.EntityID && p.cacheScenario == ctx.ScenarioID && p.cachePeriod == ctx.AtPeriod() {
		return nil
	}

	values, err := p.store.GetDrivers(string(ctx.EntityID), int(ctx.ScenarioID), int(ctx.AtPeriod()))
	if err != nil {
		return fmt.Errorf("%w: loading drivers: %v", apperrors.ErrResolution, err)
	}

	p.cache = values
	p.cacheEntity = ctx.EntityID
	p.cacheScenario = ctx.ScenarioID
	p.cachePeriod = ctx.AtPeriod()
	p.cacheLoaded = true
	return nil
}

// HasValue reports whether code resolves to a cached driver value under ctx.
func (p *DriverProvider) HasValue(code string, ctx calc.Context) bool {
	if err := p.ensureLoaded(ctx); err != nil {
		return false
	}
	_, ok := p.cache[p.resolveDriverCode(code)]
	return ok
}

// GetValue returns the driver value code resolves to under ctx.
func (p *DriverProvider) GetValue(code string, ctx calc.Context) (float64, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	driverCode := p.resolveDriverCode(code)
	v, ok := p.cache[driverCode]
	if !ok {
		return 0, fmt.Errorf("%w: no driver value for %q (mapped from %q)", apperrors.ErrResolution, driverCode, code)
	}
	return v, nil
}
