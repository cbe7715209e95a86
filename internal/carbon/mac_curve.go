// Package carbon implements marginal abatement cost curve construction: for
// each management action, the annualized cost per tonne of emissions
// reduced, ranked ascending into a MAC curve.
//
// Unlike the source this engine is grounded on, which read a stored
// emission_reduction_annual field directly off each scenario action, the
// reduction here is derived by diffing two actually-simulated scenarios'
// total emissions (base case vs. that action applied) — see DESIGN.md for
// why this module follows that textual description instead.
package carbon

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"finmodel/internal/model"
	"finmodel/internal/store"
)

// ActionCost carries one action's capex/opex inputs alongside the emissions
// diff already computed by running its scenario against the base case.
type ActionCost struct {
	ActionCode     string
	ActionName     string
	ActionCategory string
	Capex          float64
	OpexAnnual     float64
	ReductionTCO2e float64 // baseEmissions - actionEmissions
}

// Builder computes MAC curves from a set of action costs.
type Builder struct {
	amortizationYears float64
	store             store.MacCurveStore
}

// NewBuilder returns a MAC curve builder amortizing capex over
// amortizationYears.
func NewBuilder(amortizationYears float64, s store.MacCurveStore) *Builder {
	return &Builder{amortizationYears: amortizationYears, store: s}
}

func marginalCost(capex, opexAnnual, reduction, amortizationYears float64) float64 {
	if math.Abs(reduction) < 1e-6 {
		return 1e9
	}
	annualCost := capex/amortizationYears + opexAnnual
	return annualCost / reduction
}

// BuildCurve ranks costs ascending by marginal cost per tonne, accumulates
// cumulative reduction, and totals category counts and aggregate stats.
func (b *Builder) BuildCurve(scenarioID, periodID int, costs []ActionCost) model.MACCurve {
	curve := model.MACCurve{ScenarioID: scenarioID, PeriodID: periodID}

	points := make([]model.MACPoint, 0, len(costs))
	reductions := make([]float64, 0, len(costs))
	annualCosts := make([]float64, 0, len(costs))
	capexes := make([]float64, 0, len(costs))
	opexes := make([]float64, 0, len(costs))
	marginalCosts := make([]float64, 0, len(costs))

	for _, c := range costs {
		totalAnnualCost := c.Capex/b.amortizationYears + c.OpexAnnual
		point := model.MACPoint{
			ActionCode:           c.ActionCode,
			ActionName:           c.ActionName,
			ActionCategory:       c.ActionCategory,
			Capex:                c.Capex,
			OpexAnnual:           c.OpexAnnual,
			AnnualReductionTCO2e: c.ReductionTCO2e,
			MarginalCostPerTCO2e: marginalCost(c.Capex, c.OpexAnnual, c.ReductionTCO2e, b.amortizationYears),
			TotalAnnualCost:      totalAnnualCost,
		}

		reductions = append(reductions, point.AnnualReductionTCO2e)
		annualCosts = append(annualCosts, point.TotalAnnualCost)
		capexes = append(capexes, point.Capex)
		opexes = append(opexes, point.OpexAnnual)
		marginalCosts = append(marginalCosts, point.MarginalCostPerTCO2e)

		switch {
		case point.MarginalCostPerTCO2e < 0:
			curve.NegativeCostCount++
		case point.MarginalCostPerTCO2e < 50:
			curve.LowCostCount++
		case point.MarginalCostPerTCO2e < 100:
			curve.MediumCostCount++
		default:
			curve.HighCostCount++
		}

		points = append(points, point)
	}

	curve.TotalReductionPotential = floats.Sum(reductions)
	curve.TotalAnnualCost = floats.Sum(annualCosts)
	curve.TotalCapex = floats.Sum(capexes)
	curve.TotalOpex = floats.Sum(opexes)

	sort.Slice(points, func(i, j int) bool { return points[i].MarginalCostPerTCO2e < points[j].MarginalCostPerTCO2e })

	sortedReductions := make([]float64, len(points))
	for i := range points {
		sortedReductions[i] = points[i].AnnualReductionTCO2e
	}
	cumulative := make([]float64, len(sortedReductions))
	floats.CumSum(cumulative, sortedReductions)
	for i := range points {
		points[i].CumulativeReductionTCO2e = cumulative[i]
	}
	curve.Points = points

	if curve.TotalReductionPotential > 1e-6 {
		curve.WeightedAverageCost = stat.Mean(marginalCosts, reductions)
	}

	return curve
}

// StoreCurve persists curve, replacing any curve previously stored for the
// same scenario/period (delete-then-insert, mirroring the original's
// replace-on-recompute semantics).
func (b *Builder) StoreCurve(curve model.MACCurve) error {
	return b.store.SaveMACCurve(curve)
}

// LoadCurve loads a previously persisted curve.
func (b *Builder) LoadCurve(scenarioID, periodID int) (model.MACCurve, error) {
	return b.store.LoadMACCurve(scenarioID, periodID)
}
