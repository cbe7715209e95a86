package schedule

import (
	"fmt"

	"finmodel/internal/audit"
	"finmodel/internal/orchestration"
)

// ScenarioSweepJob re-runs a fixed set of scenario runs on its schedule,
// recording a SCENARIO_GENERATED event per sweep so the audit journal shows
// when a recompute happened and how many scenarios failed validation.
type ScenarioSweepJob struct {
	name    string
	runs    func() []orchestration.ScenarioRun
	journal *audit.Journal
}

// NewScenarioSweepJob builds a Job that re-derives its run set from runs
// each time it fires, so drivers or actions updated between firings are
// picked up automatically.
func NewScenarioSweepJob(name string, runs func() []orchestration.ScenarioRun, journal *audit.Journal) *ScenarioSweepJob {
	return &ScenarioSweepJob{name: name, runs: runs, journal: journal}
}

// Name satisfies Job.
func (j *ScenarioSweepJob) Name() string { return j.name }

// Run executes every configured scenario concurrently and reports the
// sweep outcome. A failure in one scenario's roll-forward is not an error
// for the job itself; Run only errors if no scenario could be run at all.
func (j *ScenarioSweepJob) Run() error {
	runs := j.runs()
	if len(runs) == 0 {
		return fmt.Errorf("scenario sweep %q has no configured runs", j.name)
	}

	summaries := orchestration.RunScenariosConcurrently(runs)

	failed := 0
	for _, summary := range summaries {
		if !summary.Success {
			failed++
		}
	}

	if j.journal != nil {
		payload := map[string]any{
			"sweep":     j.name,
			"scenarios": len(summaries),
			"failed":    failed,
		}
		// Bound to the first scenario in the sweep; there's no scenario-less
		// event slot in the journal for a sweep-level summary.
		if err := j.journal.Record(audit.EventScenarioGenerated, payload, int(runs[0].ScenarioID), 0); err != nil {
			return fmt.Errorf("recording scenario sweep event: %w", err)
		}
	}

	return nil
}
