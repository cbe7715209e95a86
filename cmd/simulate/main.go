package main

import (
	"fmt"
	"log"
	"time"

	finmodel "finmodel"
	"finmodel/internal/calc"
	"finmodel/internal/model"
	"finmodel/internal/orchestration"
	"finmodel/internal/store/memory"
)

const plTemplate = `{
  "template_code": "PL_BASIC",
  "template_name": "Basic Profit & Loss",
  "statement_type": "PL",
  "industry": "GENERIC",
  "version": "1.0.0",
  "line_items": [
    {"code": "REVENUE", "display_name": "Revenue", "level": 1, "driver_applicable": true, "category": "REVENUE", "is_computed": false, "base_value_source": "driver:REVENUE", "sign_convention": "positive"},
    {"code": "COGS", "display_name": "Cost of Goods Sold", "level": 1, "driver_applicable": true, "category": "EXPENSE", "is_computed": false, "base_value_source": "driver:COGS", "sign_convention": "negative"},
    {"code": "OPEX", "display_name": "Operating Expenses", "level": 1, "driver_applicable": true, "category": "EXPENSE", "is_computed": false, "base_value_source": "driver:OPEX", "sign_convention": "negative"},
    {"code": "PRETAX_INCOME", "display_name": "Pre-Tax Income", "level": 2, "driver_applicable": false, "category": "INCOME", "is_computed": true, "formula": "REVENUE - COGS - OPEX", "sign_convention": "positive"},
    {"code": "NET_INCOME", "display_name": "Net Income", "level": 3, "driver_applicable": false, "category": "INCOME", "is_computed": true, "formula": "PRETAX_INCOME - tax:US_FEDERAL", "sign_convention": "positive"}
  ]
}`

// simulate runs a three-period base-case P&L through the engine and
// prints each period's net income, mirroring the teacher's cmd/demo walk
// through a handful of numbered steps against a live engine.
func main() {
	db := memory.New()
	defer db.Close()

	eng := finmodel.New(db, nil)

	fmt.Println("Step 1: loading the P&L template")
	if err := db.SaveTemplateJSON("PL_BASIC", []byte(plTemplate)); err != nil {
		log.Fatalf("saving template: %v", err)
	}
	tpl, err := eng.LoadTemplate("PL_BASIC")
	if err != nil {
		log.Fatalf("loading template: %v", err)
	}
	fmt.Printf("  loaded %q, calculation order: %v\n", tpl.Code, tpl.CalculationOrder())

	fmt.Println("Step 2: seeding scenario drivers")
	const entityID = "ACME"
	const scenarioID calc.ScenarioID = 1
	periods := orchestration.GenerateMonthlyPeriods(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), 3)

	drivers := []model.Driver{
		{EntityID: entityID, ScenarioID: int(scenarioID), PeriodID: 0, Code: "REVENUE", Value: 100000, UnitCode: "USD"},
		{EntityID: entityID, ScenarioID: int(scenarioID), PeriodID: 0, Code: "COGS", Value: 40000, UnitCode: "USD"},
		{EntityID: entityID, ScenarioID: int(scenarioID), PeriodID: 0, Code: "OPEX", Value: 20000, UnitCode: "USD"},
		{EntityID: entityID, ScenarioID: int(scenarioID), PeriodID: 1, Code: "REVENUE", Value: 110000, UnitCode: "USD"},
		{EntityID: entityID, ScenarioID: int(scenarioID), PeriodID: 1, Code: "COGS", Value: 42000, UnitCode: "USD"},
		{EntityID: entityID, ScenarioID: int(scenarioID), PeriodID: 1, Code: "OPEX", Value: 21000, UnitCode: "USD"},
		{EntityID: entityID, ScenarioID: int(scenarioID), PeriodID: 2, Code: "REVENUE", Value: 125000, UnitCode: "USD"},
		{EntityID: entityID, ScenarioID: int(scenarioID), PeriodID: 2, Code: "COGS", Value: 45000, UnitCode: "USD"},
		{EntityID: entityID, ScenarioID: int(scenarioID), PeriodID: 2, Code: "OPEX", Value: 22000, UnitCode: "USD"},
	}
	if err := eng.ScenarioDrivers(drivers); err != nil {
		log.Fatalf("seeding drivers: %v", err)
	}

	fmt.Println("Step 3: rolling the scenario forward across periods")
	unified, err := eng.ScenarioEngine(tpl, scenarioID)
	if err != nil {
		log.Fatalf("building scenario engine: %v", err)
	}

	runner := orchestration.NewPeriodRunner(unified, calc.EntityID(entityID), scenarioID)
	periodIDs := make([]int, len(periods))
	for i, p := range periods {
		periodIDs[i] = p.PeriodIndex
	}
	opening := orchestration.InitialBalanceSheet(50000, 0)
	summary := runner.RunPeriods(periodIDs, opening)

	fmt.Printf("  scenario success: %v\n", summary.Success)
	for _, pr := range summary.PeriodResults {
		if pr.Err != nil {
			fmt.Printf("  period %d: error: %v\n", pr.PeriodID, pr.Err)
			continue
		}
		fmt.Printf("  period %d: net income = %.2f\n", pr.PeriodID, pr.Result.Values["NET_INCOME"])
	}

	fmt.Println("Step 4: committing the final period's result")
	final := summary.PeriodResults[len(summary.PeriodResults)-1].Result
	outcome, err := eng.Committer().CommitResult(final, "demo")
	if err != nil {
		log.Fatalf("committing result: %v", err)
	}
	fmt.Printf("  commit valid: %v\n", outcome.Valid)

	events, err := eng.Journal().Events(int(scenarioID))
	if err != nil {
		log.Fatalf("reading journal: %v", err)
	}
	fmt.Printf("Step 5: journal recorded %d event(s) for scenario %d\n", len(events), scenarioID)
}
