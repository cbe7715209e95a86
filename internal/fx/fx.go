// Package fx implements currency conversion rate resolution: the
// FX_FROM_TO[_TYPE] identifier convention formulas use to pull exchange
// rates into the calculation graph.
package fx

import (
	"fmt"
	"regexp"
	"strings"

	"finmodel/internal/apperrors"
	"finmodel/internal/calc"
	"finmodel/internal/model"
	"finmodel/internal/store"
)

var fxKeyPattern = regexp.MustCompile(`^FX_([A-Za-z]{3})_([A-Za-z]{3})(?:_((?i:average|closing|opening)))?$`)

// Reference is a parsed FX_FROM_TO[_TYPE] identifier.
type Reference struct {
	From     string
	To       string
	RateType model.RateType
}

// ParseKey parses an "FX_USD_EUR" or "FX_USD_EUR_CLOSING" identifier. The
// rate type defaults to AVERAGE when omitted.
func ParseKey(key string) (Reference, bool) {
	m := fxKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return Reference{}, false
	}

	rateType := model.RateAverage
	if m[3] != "" {
		rateType = model.RateType(strings.ToUpper(m[3]))
	}

	return Reference{
		From:     strings.ToUpper(m[1]),
		To:       strings.ToUpper(m[2]),
		RateType: rateType,
	}, true
}

// Provider resolves FX_* identifiers to exchange rates, caching every rate
// quote for the bound scenario on first use (the evaluator only ever
// needs the current period's rate set, but periods are cheap to cache
// together and this avoids a store round trip per line item).
type Provider struct {
	store store.FXStore

	scenarioID int
	loaded     bool
	rates      map[string]float64 // "period|from|to|type" -> rate
}

// NewProvider binds a Provider to one scenario. Rates load lazily on first use.
func NewProvider(s store.FXStore, scenarioID int) *Provider {
	return &Provider{store: s, scenarioID: scenarioID}
}

func rateCacheKey(periodID int, from, to string, rateType model.RateType) string {
	return fmt.Sprintf("%d|%s|%s|%s", periodID, from, to, rateType)
}

func (p *Provider) ensureLoaded() error {
	if p.loaded {
		return nil
	}

	quotes, err := p.store.GetRates(p.scenarioID)
	if err != nil {
		return fmt.Errorf("%w: loading fx rates: %v", apperrors.ErrResolution, err)
	}

	p.rates = make(map[string]float64, len(quotes))
	for _, q := range quotes {
		p.rates[rateCacheKey(q.PeriodID, q.FromCurrency, q.ToCurrency, q.RateType)] = q.Rate
	}
	p.loaded = true
	return nil
}

func (p *Provider) lookup(periodID int, from, to string, rateType model.RateType) (float64, bool) {
	if from == to {
		return 1.0, true
	}
	if v, ok := p.rates[rateCacheKey(periodID, from, to, rateType)]; ok {
		return v, true
	}
	if v, ok := p.rates[rateCacheKey(periodID, to, from, rateType)]; ok && v != 0 {
		return 1.0 / v, true
	}
	return 0, false
}

// HasValue reports whether code parses as an FX reference with a cached rate.
func (p *Provider) HasValue(code string, ctx calc.Context) bool {
	ref, ok := ParseKey(code)
	if !ok {
		return false
	}
	if err := p.ensureLoaded(); err != nil {
		return false
	}
	_, found := p.lookup(int(ctx.AtPeriod()), ref.From, ref.To, ref.RateType)
	return found
}

// GetValue resolves code to its exchange rate under ctx's period.
func (p *Provider) GetValue(code string, ctx calc.Context) (float64, error) {
	ref, ok := ParseKey(code)
	if !ok {
		return 0, fmt.Errorf("%w: invalid fx key %q", apperrors.ErrResolution, code)
	}
	if err := p.ensureLoaded(); err != nil {
		return 0, err
	}

	rate, found := p.lookup(int(ctx.AtPeriod()), ref.From, ref.To, ref.RateType)
	if !found {
		return 0, fmt.Errorf("%w: fx rate not found %s->%s (%s) period %d",
			apperrors.ErrResolution, ref.From, ref.To, ref.RateType, ctx.AtPeriod())
	}
	return rate, nil
}
