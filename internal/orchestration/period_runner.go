package orchestration

import (
	"fmt"
	"sync"

	"finmodel/internal/calc"
	"finmodel/internal/engine"
	"finmodel/internal/model"
)

// PeriodResult is one period's outcome within a roll-forward run.
type PeriodResult struct {
	PeriodID int
	Result   engine.UnifiedResult
	Err      error
}

// RunSummary aggregates every period's outcome for one scenario run.
type RunSummary struct {
	ScenarioID    calc.ScenarioID
	PeriodResults []PeriodResult
	Errors        []string
	Warnings      []string
	Success       bool
}

// PeriodRunner rolls a single scenario's UnifiedEngine forward across a
// sequence of periods: each period's closing values become the next
// period's opening values.
type PeriodRunner struct {
	eng        *engine.UnifiedEngine
	entityID   calc.EntityID
	scenarioID calc.ScenarioID
}

// NewPeriodRunner binds a period runner to one engine and entity/scenario pair.
func NewPeriodRunner(eng *engine.UnifiedEngine, entityID calc.EntityID, scenarioID calc.ScenarioID) *PeriodRunner {
	return &PeriodRunner{eng: eng, entityID: entityID, scenarioID: scenarioID}
}

// RunPeriods runs periodIDs in order, rolling the prior period's
// closing values forward as the next period's opening. A period that fails
// outright (a computation error, not merely a failed validation rule) is
// recorded and skipped without values to roll forward, but the run
// continues; a later period rolls forward from the last period that did
// compute successfully.
func (r *PeriodRunner) RunPeriods(periodIDs []int, initialOpening map[string]float64) RunSummary {
	summary := RunSummary{ScenarioID: r.scenarioID, Success: true}
	opening := initialOpening

	for _, pid := range periodIDs {
		ctx := calc.NewContext(r.entityID, r.scenarioID, calc.PeriodID(pid))
		result, err := r.eng.Run(ctx, opening)

		if err != nil {
			summary.Success = false
			summary.Errors = append(summary.Errors, fmt.Sprintf("period %d: %v", pid, err))
			// result still carries every line item computed before the
			// failure; keep it on the period result, but don't roll its
			// partial values forward as the next period's opening.
			summary.PeriodResults = append(summary.PeriodResults, PeriodResult{PeriodID: pid, Result: result, Err: err})
			continue
		}

		for _, outcome := range result.Validation.Outcomes {
			if outcome.Passed || outcome.Skipped {
				continue
			}
			msg := fmt.Sprintf("period %d: rule %s (%s): %s", pid, outcome.RuleID, outcome.Name, outcome.Message)
			if outcome.Severity == model.SeverityError {
				summary.Errors = append(summary.Errors, msg)
			} else {
				summary.Warnings = append(summary.Warnings, msg)
			}
		}

		if !result.Success() {
			summary.Success = false
		}

		summary.PeriodResults = append(summary.PeriodResults, PeriodResult{PeriodID: pid, Result: result})
		opening = result.Values
	}

	return summary
}

// ScenarioRun pairs one scenario's period runner with the periods and
// opening values it should run against.
type ScenarioRun struct {
	ScenarioID     calc.ScenarioID
	Runner         *PeriodRunner
	PeriodIDs      []int
	InitialOpening map[string]float64
}

// RunScenarios runs every scenario's periods sequentially, one after another.
func RunScenarios(runs []ScenarioRun) map[calc.ScenarioID]RunSummary {
	results := make(map[calc.ScenarioID]RunSummary, len(runs))
	for _, run := range runs {
		results[run.ScenarioID] = run.Runner.RunPeriods(run.PeriodIDs, run.InitialOpening)
	}
	return results
}

// RunScenariosConcurrently runs every scenario's period sequence in its own
// goroutine; within a scenario, periods still run strictly in order (each
// depends on the last). This parallelizes scenario sweeps (e.g. MAC
// analysis's base-plus-one-action-each configurations), which the original
// sequential implementation ran one at a time.
func RunScenariosConcurrently(runs []ScenarioRun) map[calc.ScenarioID]RunSummary {
	results := make(map[calc.ScenarioID]RunSummary, len(runs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, run := range runs {
		run := run
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary := run.Runner.RunPeriods(run.PeriodIDs, run.InitialOpening)
			mu.Lock()
			results[run.ScenarioID] = summary
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}
