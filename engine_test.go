package finmodel

import (
	"testing"

	"finmodel/internal/calc"
	"finmodel/internal/model"
	"finmodel/internal/store/memory"
	"finmodel/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const facadeTemplate = `{
  "template_code": "PL_FACADE",
  "template_name": "Facade P&L",
  "line_items": [
    {"code": "REVENUE", "base_value_source": "driver:REVENUE"},
    {"code": "COGS", "base_value_source": "driver:COGS"},
    {"code": "GROSS_PROFIT", "is_computed": true, "formula": "REVENUE - COGS"}
  ]
}`

func TestLoadTemplateAndSaveTemplateRoundTrip(t *testing.T) {
	db := memory.New()
	eng := New(db, nil)

	tpl, err := template.LoadFromJSON([]byte(facadeTemplate))
	require.NoError(t, err)
	require.NoError(t, eng.SaveTemplate(tpl))

	loaded, err := eng.LoadTemplate("PL_FACADE")
	require.NoError(t, err)
	assert.Equal(t, "PL_FACADE", loaded.Code)
	assert.NotNil(t, loaded.LineItem("GROSS_PROFIT"))
}

func TestLoadTemplateNotFound(t *testing.T) {
	eng := New(memory.New(), nil)
	_, err := eng.LoadTemplate("MISSING")
	require.Error(t, err)
}

func TestScenarioEngineRunsComputesLineItems(t *testing.T) {
	db := memory.New()
	eng := New(db, nil)

	tpl, err := template.LoadFromJSON([]byte(facadeTemplate))
	require.NoError(t, err)

	require.NoError(t, db.InsertDrivers([]model.Driver{
		{EntityID: "ACME", ScenarioID: 1, PeriodID: 0, Code: "REVENUE", Value: 1000},
		{EntityID: "ACME", ScenarioID: 1, PeriodID: 0, Code: "COGS", Value: 400},
	}))

	unified, err := eng.ScenarioEngine(tpl, calc.ScenarioID(1))
	require.NoError(t, err)

	ctx := calc.NewContext("ACME", calc.ScenarioID(1), calc.PeriodID(0))
	result, err := unified.Run(ctx, map[string]float64{})
	require.NoError(t, err)
	assert.Equal(t, 600.0, result.Values["GROSS_PROFIT"])
}

func TestRunAndCommitPersistsSuccessfulResult(t *testing.T) {
	db := memory.New()
	eng := New(db, nil)

	tpl, err := template.LoadFromJSON([]byte(facadeTemplate))
	require.NoError(t, err)
	require.NoError(t, db.InsertDrivers([]model.Driver{
		{EntityID: "ACME", ScenarioID: 1, PeriodID: 0, Code: "REVENUE", Value: 1000},
		{EntityID: "ACME", ScenarioID: 1, PeriodID: 0, Code: "COGS", Value: 400},
	}))

	unified, err := eng.ScenarioEngine(tpl, calc.ScenarioID(1))
	require.NoError(t, err)

	ctx := calc.NewContext("ACME", calc.ScenarioID(1), calc.PeriodID(0))
	result, outcome, err := eng.RunAndCommit(unified, ctx, map[string]float64{}, "alice")
	require.NoError(t, err)
	require.True(t, outcome.Valid)
	assert.Equal(t, 600.0, result.Values["GROSS_PROFIT"])

	committed, found, err := eng.Committer().LoadCommitted("ACME", 1, 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 600.0, committed.Values["GROSS_PROFIT"])
}

func TestApplyActionsAppliesAndRecordsAudit(t *testing.T) {
	db := memory.New()
	eng := New(db, nil)

	tpl, err := template.LoadFromJSON([]byte(facadeTemplate))
	require.NoError(t, err)

	require.NoError(t, db.PutAction(model.ManagementAction{
		ScenarioID:    1,
		ActionCode:    "PRICE_HIKE",
		TriggerType:   model.TriggerUnconditional,
		StartPeriod:   0,
		TriggerPeriod: -1,
		EndPeriod:     -1,
		FinancialTransformations: []model.Transformation{
			{LineItemCode: "REVENUE", TransformationType: "multiply", Factor: 1.1},
		},
	}))

	scenarioTpl, applied, err := eng.ApplyActions(tpl, calc.ScenarioID(1), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	require.NotNil(t, scenarioTpl.LineItem("REVENUE").Formula)
	assert.Contains(t, *scenarioTpl.LineItem("REVENUE").Formula, "1.1")

	events, err := eng.Journal().Events(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestApplyActionsNoActiveActionsAppliesNothing(t *testing.T) {
	db := memory.New()
	eng := New(db, nil)
	tpl, err := template.LoadFromJSON([]byte(facadeTemplate))
	require.NoError(t, err)

	_, applied, err := eng.ApplyActions(tpl, calc.ScenarioID(1), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestPhysicalRiskEngineAndMacCurveBuilderAreWired(t *testing.T) {
	db := memory.New()
	eng := New(db, nil)

	require.NotNil(t, eng.PhysicalRiskEngine())
	require.NotNil(t, eng.MacCurveBuilder(10))
}

func TestNewUnitConverterIsWiredToScenarioFX(t *testing.T) {
	db := memory.New()
	eng := New(db, nil)

	conv, err := eng.NewUnitConverter(calc.ScenarioID(1))
	require.NoError(t, err)
	require.NotNil(t, conv)
}

func TestScenarioDriversSeedsStore(t *testing.T) {
	db := memory.New()
	eng := New(db, nil)

	require.NoError(t, eng.ScenarioDrivers([]model.Driver{
		{EntityID: "ACME", ScenarioID: 1, PeriodID: 0, Code: "REVENUE", Value: 500},
	}))

	got, err := db.GetDrivers("ACME", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 500.0, got["REVENUE"])
}

func TestCloseReleasesStore(t *testing.T) {
	eng := New(memory.New(), nil)
	assert.NoError(t, eng.Close())
}
