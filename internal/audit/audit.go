// Package audit implements the append-only journal of calculation runs,
// validation outcomes, and management-action applications, adapted from the
// teacher's event-sourced journal (event_store.go) to this domain's event
// types.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"finmodel/internal/apperrors"
	"finmodel/internal/model"
	"finmodel/internal/store"

	"github.com/google/uuid"
)

// Event type constants for the calculation journal.
const (
	EventCalculationRun    = "CALCULATION_RUN"
	EventValidationFailed  = "VALIDATION_FAILED"
	EventActionApplied     = "ACTION_APPLIED"
	EventScenarioGenerated = "SCENARIO_GENERATED"
	EventMacCurveComputed  = "MAC_CURVE_COMPUTED"
)

// CalculationRunPayload is recorded by commit.Committer once per committed
// result, and once per reversal (with Success false).
type CalculationRunPayload struct {
	EntityID   string  `json:"entity_id"`
	LineItems  int     `json:"line_items_computed"`
	Success    bool    `json:"success"`
}

// ValidationFailedPayload is recorded for each validation rule that failed.
type ValidationFailedPayload struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ActionAppliedPayload is recorded once per management action applied to a
// scenario's template.
type ActionAppliedPayload struct {
	ActionCode           string `json:"action_code"`
	TransformationsApplied int  `json:"transformations_applied"`
}

// Journal appends and retrieves audit events through a store.AuditStore.
type Journal struct {
	store store.AuditStore
	now   func() time.Time
}

// NewJournal binds a journal to a store. now defaults to time.Now; a custom
// clock can be supplied from tests for deterministic timestamps.
func NewJournal(s store.AuditStore, now func() time.Time) *Journal {
	if now == nil {
		now = time.Now
	}
	return &Journal{store: s, now: now}
}

// Record marshals payload and appends it as a new journal entry bound to
// scenarioID/periodID.
func (j *Journal) Record(eventType string, payload any, scenarioID, periodID int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal audit payload: %v", apperrors.ErrStore, err)
	}

	event := storeAuditEvent(eventType, data, scenarioID, periodID, j.now())
	if err := j.store.AppendEvent(event); err != nil {
		return fmt.Errorf("%w: append audit event: %v", apperrors.ErrStore, err)
	}
	return nil
}

// Events returns every journal entry recorded for scenarioID.
func (j *Journal) Events(scenarioID int) ([]EventRecord, error) {
	raw, err := j.store.GetEvents(scenarioID)
	if err != nil {
		return nil, err
	}

	out := make([]EventRecord, len(raw))
	for i, e := range raw {
		out[i] = EventRecord{ID: e.ID, EventType: e.EventType, Payload: e.Payload, PeriodID: e.PeriodID, OccurredAt: e.OccurredAt}
	}
	return out, nil
}

// Replay calls handler with every journal entry for scenarioID, in storage
// order, stopping at the first handler error.
func (j *Journal) Replay(scenarioID int, handler func(EventRecord) error) error {
	events, err := j.Events(scenarioID)
	if err != nil {
		return fmt.Errorf("%w: loading events to replay: %v", apperrors.ErrStore, err)
	}

	for _, e := range events {
		if err := handler(e); err != nil {
			return fmt.Errorf("handling event %s: %w", e.ID, err)
		}
	}
	return nil
}

// EventRecord is one journal entry as returned to callers.
type EventRecord struct {
	ID         string
	EventType  string
	Payload    []byte
	PeriodID   int
	OccurredAt string
}

func storeAuditEvent(eventType string, payload []byte, scenarioID, periodID int, at time.Time) model.AuditEvent {
	return model.AuditEvent{
		ID:         uuid.New().String(),
		EventType:  eventType,
		Payload:    payload,
		ScenarioID: scenarioID,
		PeriodID:   periodID,
		OccurredAt: at.UTC().Format(time.RFC3339Nano),
	}
}
