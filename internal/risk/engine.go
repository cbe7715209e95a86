package risk

import (
	"fmt"

	"finmodel/internal/model"
	"finmodel/internal/store"
)

const pointPerilToleranceKM = 1.0

// Engine computes physical-risk damage for a scenario's perils against the
// asset exposure catalog, and turns the resulting losses into scenario
// drivers.
type Engine struct {
	perils   store.PerilStore
	assets   store.AssetStore
	drivers  store.DriverStore
	registry *Registry
}

// NewEngine builds a physical risk engine over the given stores.
func NewEngine(perils store.PerilStore, assets store.AssetStore, drivers store.DriverStore, registry *Registry) *Engine {
	return &Engine{perils: perils, assets: assets, drivers: drivers, registry: registry}
}

// CalculateDamage computes the damage one peril inflicts on one asset in one period.
func (e *Engine) CalculateDamage(asset model.AssetExposure, peril model.PhysicalPeril, period int) (model.DamageResult, error) {
	result := model.DamageResult{
		AssetID:   asset.AssetID,
		AssetCode: asset.AssetCode,
		PerilID:   peril.PerilID,
		PerilCode: peril.PerilCode,
		PerilType: peril.PerilType,
		Period:    period,
		Currency:  asset.ReplacementCurrency,
	}

	result.DistanceKM = HaversineDistanceKM(asset.Latitude, asset.Longitude, peril.Latitude, peril.Longitude)

	var affected bool
	if peril.RadiusKM <= 0 {
		affected = result.DistanceKM <= pointPerilToleranceKM
		if affected {
			result.AdjustedIntensity = peril.Intensity
		}
	} else {
		affected = result.DistanceKM <= peril.RadiusKM
		result.AdjustedIntensity = IntensityWithDecay(peril.Intensity, result.DistanceKM, peril.RadiusKM)
	}

	if !affected || result.AdjustedIntensity <= 0 {
		return result, nil
	}

	ppeFn, err := e.registry.FunctionForPeril(peril.PerilType, "PPE")
	if err != nil {
		return model.DamageResult{}, err
	}
	if ppeFn != nil {
		result.PPEDamagePct = ppeFn.Calculate(result.AdjustedIntensity)
		result.PPELossAmount = asset.ReplacementValue * result.PPEDamagePct
	}

	invFn, err := e.registry.FunctionForPeril(peril.PerilType, "INVENTORY")
	if err != nil {
		return model.DamageResult{}, err
	}
	if invFn != nil {
		result.InventoryDamagePct = invFn.Calculate(result.AdjustedIntensity)
		result.InventoryLossAmount = asset.InventoryValue * result.InventoryDamagePct
	}

	biFn, err := e.registry.FunctionForPeril(peril.PerilType, "BI")
	if err != nil {
		return model.DamageResult{}, err
	}
	if biFn != nil {
		result.BIDowntimeDays = biFn.Calculate(result.AdjustedIntensity)
		if asset.AnnualRevenue > 0 {
			result.BILossAmount = (asset.AnnualRevenue / 365.0) * result.BIDowntimeDays
		}
	}

	return result, nil
}

// CalculateDamages computes every peril-asset-period damage result for a
// scenario, keeping only results with actual loss.
func (e *Engine) CalculateDamages(scenarioID int) ([]model.DamageResult, error) {
	perils, err := e.perils.GetPerils(scenarioID)
	if err != nil {
		return nil, err
	}
	assets, err := e.assets.GetAssets()
	if err != nil {
		return nil, err
	}

	var results []model.DamageResult
	for _, peril := range perils {
		var affectedPeriods []int
		if peril.EndPeriod < 0 {
			affectedPeriods = []int{peril.StartPeriod}
		} else {
			for p := peril.StartPeriod; p <= peril.EndPeriod; p++ {
				affectedPeriods = append(affectedPeriods, p)
			}
		}

		for _, asset := range assets {
			for _, period := range affectedPeriods {
				damage, err := e.CalculateDamage(asset, peril, period)
				if err != nil {
					return nil, err
				}
				if damage.PPELossAmount > 0 || damage.InventoryLossAmount > 0 || damage.BILossAmount > 0 {
					results = append(results, damage)
				}
			}
		}
	}

	return results, nil
}

// MapDamageToDriver builds the "PERILTYPE_TARGET_ASSETCODE" driver code one
// damage component maps to.
func MapDamageToDriver(perilType, damageTarget, assetCode string) string {
	return perilType + "_" + damageTarget + "_" + assetCode
}

var driverSuffixes = []string{"_PPE_", "_INVENTORY_", "_BI_"}

// GenerateDrivers deletes any existing physical-risk drivers for scenarioID
// and inserts one negated driver value per non-zero damage component in
// damages (negative because each is a loss), bound to the synthetic entity
// "PHYSICAL_RISK"; a component with no loss gets no driver. It returns the
// number of drivers inserted.
func (e *Engine) GenerateDrivers(scenarioID int, damages []model.DamageResult) (int, error) {
	if err := e.drivers.DeleteDriversMatching(scenarioID, driverSuffixes); err != nil {
		return 0, err
	}

	var toInsert []model.Driver
	for _, d := range damages {
		if d.PPELossAmount > 0 {
			toInsert = append(toInsert, model.Driver{
				EntityID: "PHYSICAL_RISK", ScenarioID: scenarioID, PeriodID: d.Period,
				Code: MapDamageToDriver(d.PerilType, "PPE", d.AssetCode), Value: -d.PPELossAmount, UnitCode: d.Currency,
			})
		}
		if d.InventoryLossAmount > 0 {
			toInsert = append(toInsert, model.Driver{
				EntityID: "PHYSICAL_RISK", ScenarioID: scenarioID, PeriodID: d.Period,
				Code: MapDamageToDriver(d.PerilType, "INVENTORY", d.AssetCode), Value: -d.InventoryLossAmount, UnitCode: d.Currency,
			})
		}
		if d.BILossAmount > 0 {
			toInsert = append(toInsert, model.Driver{
				EntityID: "PHYSICAL_RISK", ScenarioID: scenarioID, PeriodID: d.Period,
				Code: MapDamageToDriver(d.PerilType, "BI", d.AssetCode), Value: -d.BILossAmount, UnitCode: d.Currency,
			})
		}
	}

	if len(toInsert) == 0 {
		return 0, nil
	}
	if err := e.drivers.InsertDrivers(toInsert); err != nil {
		return 0, fmt.Errorf("inserting physical risk drivers: %w", err)
	}
	return len(toInsert), nil
}

// ProcessScenario computes damages for scenarioID and persists the
// resulting drivers, returning how many drivers were written.
func (e *Engine) ProcessScenario(scenarioID int) (int, error) {
	damages, err := e.CalculateDamages(scenarioID)
	if err != nil {
		return 0, err
	}
	return e.GenerateDrivers(scenarioID, damages)
}
