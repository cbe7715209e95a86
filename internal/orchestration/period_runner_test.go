package orchestration

import (
	"testing"

	"finmodel/internal/calc"
	"finmodel/internal/engine"
	"finmodel/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runnerTemplate = `{
  "template_code": "PL_ROLL",
  "template_name": "Rolling P&L",
  "line_items": [
    {"code": "REVENUE", "base_value_source": "driver:REVENUE"},
    {"code": "CASH", "is_computed": true, "formula": "CASH[t-1] + REVENUE"}
  ]
}`

type perPeriodDrivers map[int]map[string]float64

func (p perPeriodDrivers) HasValue(code string, ctx calc.Context) bool {
	period, ok := p[int(ctx.AtPeriod())]
	if !ok {
		return false
	}
	_, ok = period[code]
	return ok
}

func (p perPeriodDrivers) GetValue(code string, ctx calc.Context) (float64, error) {
	return p[int(ctx.AtPeriod())][code], nil
}

func TestPeriodRunnerRollsForward(t *testing.T) {
	tpl, err := template.LoadFromJSON([]byte(runnerTemplate))
	require.NoError(t, err)

	drivers := perPeriodDrivers{
		0: {"REVENUE": 100},
		1: {"REVENUE": 150},
		2: {"REVENUE": 200},
	}
	eng := engine.New(tpl, drivers, nil)
	runner := NewPeriodRunner(eng, "ACME", 1)

	summary := runner.RunPeriods([]int{0, 1, 2}, map[string]float64{"CASH": 1000})
	require.True(t, summary.Success)
	require.Len(t, summary.PeriodResults, 3)

	assert.Equal(t, 1100.0, summary.PeriodResults[0].Result.Values["CASH"])
	assert.Equal(t, 1250.0, summary.PeriodResults[1].Result.Values["CASH"])
	assert.Equal(t, 1450.0, summary.PeriodResults[2].Result.Values["CASH"])
}

const failingTemplate = `{
  "template_code": "PL_FAIL",
  "template_name": "Fails mid-run",
  "line_items": [
    {"code": "REVENUE", "base_value_source": "driver:REVENUE"},
    {"code": "EXTERNAL_ONLY", "is_computed": true, "formula": "NEVER_PROVIDED_CODE"},
    {"code": "CASH", "is_computed": true, "formula": "CASH[t-1] + REVENUE"}
  ]
}`

func TestPeriodRunnerContinuesAfterFailedPeriod(t *testing.T) {
	tpl, err := template.LoadFromJSON([]byte(failingTemplate))
	require.NoError(t, err)

	// EXTERNAL_ONLY's formula never resolves, so every period errors outright
	// -- distinct from a failed validation rule -- but the runner still
	// attempts every period and rolls forward from the last one that did
	// compute, i.e. the caller-supplied initial opening in this case.
	// EXTERNAL_ONLY has no intra-period dependencies (its unresolvable
	// reference isn't another line item), so it sorts before REVENUE in
	// calculation order and fails before anything is published: the
	// partial result carried on each period is an empty values map.
	drivers := perPeriodDrivers{
		0: {"REVENUE": 100},
		1: {"REVENUE": 150},
		2: {"REVENUE": 200},
	}
	eng := engine.New(tpl, drivers, nil)
	runner := NewPeriodRunner(eng, "ACME", 1)

	summary := runner.RunPeriods([]int{0, 1, 2}, map[string]float64{"CASH": 1000})
	assert.False(t, summary.Success)
	require.Len(t, summary.PeriodResults, 3)

	for _, pr := range summary.PeriodResults {
		assert.Empty(t, pr.Result.Values)
		assert.False(t, pr.Result.Success())
		require.Error(t, pr.Err)
	}
	require.Len(t, summary.Errors, 3)
}

func TestRunScenariosConcurrently(t *testing.T) {
	tpl, err := template.LoadFromJSON([]byte(runnerTemplate))
	require.NoError(t, err)

	drivers := perPeriodDrivers{0: {"REVENUE": 100}}

	runs := make([]ScenarioRun, 0, 3)
	for i := 1; i <= 3; i++ {
		eng := engine.New(tpl, drivers, nil)
		runner := NewPeriodRunner(eng, "ACME", calc.ScenarioID(i))
		runs = append(runs, ScenarioRun{
			ScenarioID:     calc.ScenarioID(i),
			Runner:         runner,
			PeriodIDs:      []int{0},
			InitialOpening: map[string]float64{"CASH": 0},
		})
	}

	results := RunScenariosConcurrently(runs)
	require.Len(t, results, 3)
	for i := 1; i <= 3; i++ {
		summary, ok := results[calc.ScenarioID(i)]
		require.True(t, ok)
		assert.True(t, summary.Success)
		assert.Equal(t, 100.0, summary.PeriodResults[0].Result.Values["CASH"])
	}
}
