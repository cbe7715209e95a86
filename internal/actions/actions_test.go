package actions

import (
	"testing"

	"finmodel/internal/model"
	"finmodel/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capexTemplate = `{
  "template_code": "PL_BASIC",
  "template_name": "Basic P&L",
  "line_items": [
    {"code": "OPEX", "base_value_source": "driver:OPEX"},
    {"code": "CAPEX", "base_value_source": "driver:CAPEX"}
  ]
}`

func TestParseTransformationsArrayForm(t *testing.T) {
	raw := []byte(`[{"line_item": "OPEX", "type": "multiply", "factor": 1.1}]`)
	trs, err := ParseTransformations(raw)
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, "OPEX", trs[0].LineItemCode)
	assert.Equal(t, "multiply", trs[0].TransformationType)
	assert.Equal(t, 1.1, trs[0].Factor)
}

func TestParseTransformationsObjectForm(t *testing.T) {
	raw := []byte(`{"OPEX": {"type": "add", "amount": 500}}`)
	trs, err := ParseTransformations(raw)
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, "OPEX", trs[0].LineItemCode)
	assert.Equal(t, "add", trs[0].TransformationType)
	assert.Equal(t, 500.0, trs[0].Amount)
}

func TestParseTransformationsEmptyAndInvalid(t *testing.T) {
	trs, err := ParseTransformations(nil)
	require.NoError(t, err)
	assert.Nil(t, trs)

	_, err = ParseTransformations([]byte(`"not an object or array"`))
	require.Error(t, err)
}

func TestCloneForScenarioIsIndependent(t *testing.T) {
	tpl, err := template.LoadFromJSON([]byte(capexTemplate))
	require.NoError(t, err)

	eng := NewEngine()
	clone, err := eng.CloneForScenario(tpl, "1")
	require.NoError(t, err)
	assert.Equal(t, "PL_BASIC_1", clone.Code)
}

func TestApplyActionsMultiplyAndAdd(t *testing.T) {
	tpl, err := template.LoadFromJSON([]byte(capexTemplate))
	require.NoError(t, err)

	eng := NewEngine()
	acts := []model.ManagementAction{
		{
			ActionCode:   "SOLAR_ROLLOUT",
			StartPeriod:  0,
			EndPeriod:    -1,
			TriggerType:  model.TriggerUnconditional,
			FinancialTransformations: []model.Transformation{
				{LineItemCode: "OPEX", TransformationType: "multiply", Factor: 0.9},
				{LineItemCode: "CAPEX", TransformationType: "add", Amount: 5000},
			},
		},
	}

	applied, err := eng.ApplyActions(tpl, acts, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	opex := tpl.LineItem("OPEX")
	require.NotNil(t, opex.Formula)
	assert.Equal(t, "OPEX * 0.9", *opex.Formula)
	assert.Nil(t, opex.BaseValueSource)

	capex := tpl.LineItem("CAPEX")
	require.NotNil(t, capex.Formula)
	assert.Contains(t, *capex.Formula, "+ (5000)")
}

func TestApplyActionsSkipsUntriggeredAction(t *testing.T) {
	tpl, err := template.LoadFromJSON([]byte(capexTemplate))
	require.NoError(t, err)

	eng := NewEngine()
	acts := []model.ManagementAction{
		{
			ActionCode:  "FUTURE_ACTION",
			StartPeriod: 5,
			EndPeriod:   -1,
			TriggerType: model.TriggerUnconditional,
			FinancialTransformations: []model.Transformation{
				{LineItemCode: "OPEX", TransformationType: "multiply", Factor: 0.5},
			},
		},
	}

	applied, err := eng.ApplyActions(tpl, acts, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Nil(t, tpl.LineItem("OPEX").Formula)
}

func TestApplyActionsStopsAfterEndPeriod(t *testing.T) {
	eng := NewEngine()
	acts := []model.ManagementAction{
		{
			ActionCode:  "TEMPORARY_ACTION",
			StartPeriod: 1,
			EndPeriod:   3,
			TriggerType: model.TriggerUnconditional,
			FinancialTransformations: []model.Transformation{
				{LineItemCode: "OPEX", TransformationType: "multiply", Factor: 0.9},
			},
		},
	}

	for _, pid := range []int{1, 2, 3} {
		tpl, err := template.LoadFromJSON([]byte(capexTemplate))
		require.NoError(t, err)

		applied, err := eng.ApplyActions(tpl, acts, pid)
		require.NoError(t, err)
		assert.Equalf(t, 1, applied, "period %d should still be within the action's window", pid)
	}

	// An UNCONDITIONAL trigger has no upper bound of its own; periodID
	// past EndPeriod must still be gated out by IsActiveInPeriod.
	for _, pid := range []int{4, 10, 100} {
		tpl, err := template.LoadFromJSON([]byte(capexTemplate))
		require.NoError(t, err)

		applied, err := eng.ApplyActions(tpl, acts, pid)
		require.NoError(t, err)
		assert.Equalf(t, 0, applied, "period %d is past EndPeriod and should not apply", pid)
		assert.Nil(t, tpl.LineItem("OPEX").Formula)
	}
}

func TestApplyActionsSkipsUnknownLineItem(t *testing.T) {
	tpl, err := template.LoadFromJSON([]byte(capexTemplate))
	require.NoError(t, err)

	eng := NewEngine()
	acts := []model.ManagementAction{
		{
			ActionCode:  "ACT",
			StartPeriod: 0,
			EndPeriod:   -1,
			TriggerType: model.TriggerUnconditional,
			FinancialTransformations: []model.Transformation{
				{LineItemCode: "NOT_A_LINE_ITEM", TransformationType: "multiply", Factor: 2},
			},
		},
	}

	applied, err := eng.ApplyActions(tpl, acts, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestShouldTrigger(t *testing.T) {
	eng := NewEngine()

	unconditional := model.ManagementAction{TriggerType: model.TriggerUnconditional, StartPeriod: 2}
	assert.False(t, eng.ShouldTrigger(unconditional, 1, nil))
	assert.True(t, eng.ShouldTrigger(unconditional, 2, nil))
	assert.True(t, eng.ShouldTrigger(unconditional, 3, nil))

	timed := model.ManagementAction{TriggerType: model.TriggerTimed, TriggerPeriod: 3}
	assert.False(t, eng.ShouldTrigger(timed, 2, nil))
	assert.True(t, eng.ShouldTrigger(timed, 3, nil))

	conditional := model.ManagementAction{TriggerType: model.TriggerConditional}
	assert.False(t, eng.ShouldTrigger(conditional, 0, nil))
}
