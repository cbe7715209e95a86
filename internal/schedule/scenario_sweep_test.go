package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"finmodel/internal/audit"
	"finmodel/internal/calc"
	"finmodel/internal/engine"
	"finmodel/internal/orchestration"
	"finmodel/internal/store/memory"
	"finmodel/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sweepTemplate = `{
  "template_code": "PL_SWEEP",
  "template_name": "Sweep P&L",
  "line_items": [
    {"code": "REVENUE", "base_value_source": "driver:REVENUE"}
  ]
}`

func buildRun(t *testing.T, scenarioID calc.ScenarioID, revenue float64) orchestration.ScenarioRun {
	t.Helper()
	tpl, err := template.LoadFromJSON([]byte(sweepTemplate))
	require.NoError(t, err)

	drivers := staticDrivers{"REVENUE": revenue}
	eng := engine.New(tpl, drivers, nil)
	runner := orchestration.NewPeriodRunner(eng, "ACME", scenarioID)

	return orchestration.ScenarioRun{
		ScenarioID:     scenarioID,
		Runner:         runner,
		PeriodIDs:      []int{0},
		InitialOpening: map[string]float64{},
	}
}

type staticDrivers map[string]float64

func (d staticDrivers) HasValue(code string, _ calc.Context) bool { _, ok := d[code]; return ok }
func (d staticDrivers) GetValue(code string, _ calc.Context) (float64, error) { return d[code], nil }

func TestScenarioSweepJobRecordsAuditEventWithSummary(t *testing.T) {
	db := memory.New()
	j := audit.NewJournal(db, func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) })

	job := NewScenarioSweepJob("nightly", func() []orchestration.ScenarioRun {
		return []orchestration.ScenarioRun{buildRun(t, 1, 100), buildRun(t, 2, 200)}
	}, j)

	require.NoError(t, job.Run())
	assert.Equal(t, "nightly", job.Name())

	events, err := db.GetEvents(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventScenarioGenerated, events[0].EventType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "nightly", payload["sweep"])
	assert.Equal(t, float64(2), payload["scenarios"])
	assert.Equal(t, float64(0), payload["failed"])
}

func TestScenarioSweepJobErrorsWithNoConfiguredRuns(t *testing.T) {
	job := NewScenarioSweepJob("empty", func() []orchestration.ScenarioRun { return nil }, nil)
	err := job.Run()
	require.Error(t, err)
}

func TestScenarioSweepJobSkipsAuditWhenJournalNil(t *testing.T) {
	job := NewScenarioSweepJob("nightly", func() []orchestration.ScenarioRun {
		return []orchestration.ScenarioRun{buildRun(t, 1, 100)}
	}, nil)

	require.NoError(t, job.Run())
}
