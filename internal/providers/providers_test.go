package providers

import (
	"testing"

	"finmodel/internal/calc"
	"finmodel/internal/model"
	"finmodel/internal/store/memory"
	"finmodel/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const driverTemplateJSON = `{
  "template_code": "PL_BASIC",
  "template_name": "Basic P&L",
  "line_items": [
    {"code": "REVENUE", "base_value_source": "driver:REVENUE", "sign_convention": "positive"},
    {"code": "COGS", "base_value_source": "driver:COGS_ACTUAL", "sign_convention": "negative"},
    {"code": "NET_INCOME", "is_computed": true, "formula": "REVENUE - COGS", "sign_convention": "positive"}
  ]
}`

func TestDriverProviderResolvesMappedCodes(t *testing.T) {
	db := memory.New()
	defer db.Close()

	require.NoError(t, db.InsertDrivers([]model.Driver{
		{EntityID: "ACME", ScenarioID: 1, PeriodID: 0, Code: "REVENUE", Value: 100},
		{EntityID: "ACME", ScenarioID: 1, PeriodID: 0, Code: "COGS_ACTUAL", Value: 40},
	}))

	tpl, err := template.LoadFromJSON([]byte(driverTemplateJSON))
	require.NoError(t, err)

	p := NewDriverProvider(db, tpl)
	ctx := calc.NewContext("ACME", 1, 0)

	assert.True(t, p.HasValue("REVENUE", ctx))
	v, err := p.GetValue("REVENUE", ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	// COGS maps to driver COGS_ACTUAL, not its own line item code.
	assert.True(t, p.HasValue("COGS", ctx))
	v, err = p.GetValue("COGS", ctx)
	require.NoError(t, err)
	assert.Equal(t, 40.0, v)

	// NET_INCOME has no base_value_source and isn't itself a driver.
	assert.False(t, p.HasValue("NET_INCOME", ctx))
}

func TestDriverProviderCachesPerContext(t *testing.T) {
	db := memory.New()
	defer db.Close()

	require.NoError(t, db.InsertDrivers([]model.Driver{
		{EntityID: "ACME", ScenarioID: 1, PeriodID: 0, Code: "REVENUE", Value: 100},
		{EntityID: "ACME", ScenarioID: 1, PeriodID: 1, Code: "REVENUE", Value: 110},
	}))

	tpl, err := template.LoadFromJSON([]byte(driverTemplateJSON))
	require.NoError(t, err)
	p := NewDriverProvider(db, tpl)

	v0, err := p.GetValue("REVENUE", calc.NewContext("ACME", 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 100.0, v0)

	v1, err := p.GetValue("REVENUE", calc.NewContext("ACME", 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 110.0, v1)
}

func TestDriverProviderUnresolvedCode(t *testing.T) {
	db := memory.New()
	defer db.Close()
	tpl, err := template.LoadFromJSON([]byte(driverTemplateJSON))
	require.NoError(t, err)

	p := NewDriverProvider(db, tpl)
	ctx := calc.NewContext("ACME", 1, 0)

	_, err = p.GetValue("REVENUE", ctx)
	require.Error(t, err)
}

func TestStatementValueProviderDualMapPolicy(t *testing.T) {
	p := NewStatementValueProvider()
	p.SetOpeningValues(map[string]float64{"CASH": 1000, "RETAINED_EARNINGS": 500})
	p.SetCurrentValues(map[string]float64{"NET_INCOME": 200})

	ctx := calc.NewContext("ACME", 1, 1)

	// Bare reference: current wins, falls back to opening.
	v, err := p.GetValue("NET_INCOME", ctx)
	require.NoError(t, err)
	assert.Equal(t, 200.0, v)

	v, err = p.GetValue("CASH", ctx)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, v)

	// Offset -1: opening wins, falls back to current.
	prior := ctx.WithOffset(-1)
	v, err = p.GetValue("CASH", prior)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, v)

	v, err = p.GetValue("NET_INCOME", prior)
	require.NoError(t, err)
	assert.Equal(t, 200.0, v)

	// Offset beyond +-1 has no backing history.
	_, err = p.GetValue("CASH", ctx.WithOffset(-2))
	require.Error(t, err)
}

func TestStatementValueProviderPublishCurrentValue(t *testing.T) {
	p := NewStatementValueProvider()
	p.PublishCurrentValue("REVENUE", 500)

	ctx := calc.NewContext("ACME", 1, 0)
	assert.True(t, p.HasValue("REVENUE", ctx))
	assert.Equal(t, map[string]float64{"REVENUE": 500}, p.Current())
}
