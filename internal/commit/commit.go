// Package commit implements commit-time validation and durable persistence
// of a calculation sweep's results, adapted from the teacher's posting
// engine (posting_engine.go): validate, then mutate stored state, then
// record an audit event, with a mirrored reversal path.
package commit

import (
	"fmt"
	"math"
	"time"

	"finmodel/internal/apperrors"
	"finmodel/internal/audit"
	"finmodel/internal/calc"
	"finmodel/internal/engine"
	"finmodel/internal/model"
	"finmodel/internal/store"
)

// CommitError is one reason a result failed commit-time validation.
type CommitError struct {
	Code    string
	Message string
}

func (e CommitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationOutcome is the result of validating a sweep before commit.
type ValidationOutcome struct {
	Valid  bool
	Errors []CommitError
}

// Committer validates, persists, and reverses committed calculation results,
// recording every transition to the audit journal.
type Committer struct {
	results store.ResultStore
	journal *audit.Journal
	now     func() time.Time
}

// NewCommitter binds a committer to a result store and audit journal. now
// defaults to time.Now; tests can supply a fixed clock.
func NewCommitter(results store.ResultStore, journal *audit.Journal, now func() time.Time) *Committer {
	if now == nil {
		now = time.Now
	}
	return &Committer{results: results, journal: journal, now: now}
}

// ValidateResult checks a sweep's outcome is fit to commit: every
// ERROR-severity validation rule must have passed, and every computed value
// must be finite.
func (c *Committer) ValidateResult(result engine.UnifiedResult) *ValidationOutcome {
	outcome := &ValidationOutcome{Valid: true}

	if !result.Validation.Success {
		outcome.Valid = false
		outcome.Errors = append(outcome.Errors, CommitError{
			Code:    "VALIDATION_FAILED",
			Message: "one or more ERROR-severity validation rules failed",
		})
	}

	if err := c.validateFinite(result.Values); err != nil {
		outcome.Valid = false
		outcome.Errors = append(outcome.Errors, CommitError{
			Code:    "NON_FINITE_VALUE",
			Message: err.Error(),
		})
	}

	return outcome
}

func (c *Committer) validateFinite(values map[string]float64) error {
	for code, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("line item %q is non-finite (%v)", code, v)
		}
	}
	return nil
}

// CommitResult validates result and, if it passes, persists it as the
// authoritative value for its entity/scenario/period and appends a
// CALCULATION_RUN audit event. It returns the validation outcome; when
// outcome.Valid is false the result is not persisted and no event is
// recorded.
func (c *Committer) CommitResult(result engine.UnifiedResult, committedBy string) (*ValidationOutcome, error) {
	outcome := c.ValidateResult(result)
	if !outcome.Valid {
		return outcome, nil
	}

	existing, found, err := c.results.GetResult(string(result.EntityID), int(result.ScenarioID), int(result.PeriodID))
	if err != nil {
		return nil, fmt.Errorf("%w: loading prior committed result: %v", apperrors.ErrStore, err)
	}
	version := 1
	if found {
		version = existing.Version + 1
	}

	committed := model.CommittedResult{
		EntityID:    string(result.EntityID),
		ScenarioID:  int(result.ScenarioID),
		PeriodID:    int(result.PeriodID),
		Values:      result.Values,
		Success:     result.Validation.Success,
		Version:     version,
		CommittedBy: committedBy,
		CommittedAt: c.now().UTC().Format(time.RFC3339Nano),
	}

	if err := c.results.SaveResult(committed); err != nil {
		return nil, fmt.Errorf("%w: saving committed result: %v", apperrors.ErrStore, err)
	}

	if c.journal != nil {
		payload := audit.CalculationRunPayload{
			EntityID:  committed.EntityID,
			LineItems: len(committed.Values),
			Success:   committed.Success,
		}
		if err := c.journal.Record(audit.EventCalculationRun, payload, committed.ScenarioID, committed.PeriodID); err != nil {
			return nil, fmt.Errorf("recording calculation run event: %w", err)
		}
	}

	return outcome, nil
}

// ReverseResult marks a previously committed entity/scenario/period result
// as reversed and records a reversal audit event, mirroring the teacher's
// ReverseTransaction: the original record is kept (flagged, not deleted) so
// its audit trail remains intact.
func (c *Committer) ReverseResult(entityID string, scenarioID, periodID calc.PeriodID, reversedBy string) error {
	pid := int(periodID)
	existing, found, err := c.results.GetResult(entityID, int(scenarioID), pid)
	if err != nil {
		return fmt.Errorf("%w: loading committed result to reverse: %v", apperrors.ErrStore, err)
	}
	if !found {
		return fmt.Errorf("%w: no committed result for %s/%d/%d", apperrors.ErrDomain, entityID, scenarioID, pid)
	}
	if existing.Reversed {
		return fmt.Errorf("%w: result for %s/%d/%d already reversed", apperrors.ErrDomain, entityID, scenarioID, pid)
	}

	existing.Reversed = true
	if err := c.results.SaveResult(existing); err != nil {
		return fmt.Errorf("%w: saving reversed result: %v", apperrors.ErrStore, err)
	}

	if c.journal != nil {
		payload := audit.CalculationRunPayload{
			EntityID:  existing.EntityID,
			LineItems: len(existing.Values),
			Success:   false,
		}
		if err := c.journal.Record(audit.EventCalculationRun, payload, int(scenarioID), pid); err != nil {
			return fmt.Errorf("recording reversal event: %w", err)
		}
	}

	return nil
}

// LoadCommitted returns the most recently committed result for
// entity/scenario/period, if one exists.
func (c *Committer) LoadCommitted(entityID string, scenarioID int, periodID int) (model.CommittedResult, bool, error) {
	return c.results.GetResult(entityID, scenarioID, periodID)
}
