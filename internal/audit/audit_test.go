package audit

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"finmodel/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordAppendsEventWithPayload(t *testing.T) {
	db := memory.New()
	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	j := NewJournal(db, fixedClock(at))

	err := j.Record(EventCalculationRun, CalculationRunPayload{EntityID: "ACME", LineItems: 10, Success: true}, 1, 0)
	require.NoError(t, err)

	events, err := j.Events(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventCalculationRun, events[0].EventType)
	assert.Equal(t, 0, events[0].PeriodID)
	assert.Equal(t, at.Format(time.RFC3339Nano), events[0].OccurredAt)
	assert.NotEmpty(t, events[0].ID)

	var payload CalculationRunPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "ACME", payload.EntityID)
	assert.True(t, payload.Success)
}

func TestRecordDefaultClockWhenNilProvided(t *testing.T) {
	db := memory.New()
	j := NewJournal(db, nil)

	require.NoError(t, j.Record(EventScenarioGenerated, map[string]int{"count": 4}, 2, 0))
	events, err := j.Events(2)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].OccurredAt)
}

func TestEventsScopedByScenario(t *testing.T) {
	db := memory.New()
	j := NewJournal(db, fixedClock(time.Now()))

	require.NoError(t, j.Record(EventCalculationRun, CalculationRunPayload{EntityID: "A"}, 1, 0))
	require.NoError(t, j.Record(EventCalculationRun, CalculationRunPayload{EntityID: "B"}, 2, 0))

	events, err := j.Events(1)
	require.NoError(t, err)
	require.Len(t, events, 1)

	var payload CalculationRunPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "A", payload.EntityID)
}

func TestReplayVisitsEventsInOrderAndStopsOnError(t *testing.T) {
	db := memory.New()
	j := NewJournal(db, fixedClock(time.Now()))

	require.NoError(t, j.Record(EventCalculationRun, CalculationRunPayload{EntityID: "FIRST"}, 1, 0))
	require.NoError(t, j.Record(EventValidationFailed, ValidationFailedPayload{RuleID: "R1"}, 1, 1))
	require.NoError(t, j.Record(EventActionApplied, ActionAppliedPayload{ActionCode: "SOLAR"}, 1, 2))

	var seen []string
	boom := errors.New("stop here")
	err := j.Replay(1, func(e EventRecord) error {
		seen = append(seen, e.EventType)
		if e.EventType == EventValidationFailed {
			return boom
		}
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []string{EventCalculationRun, EventValidationFailed}, seen)
}

func TestReplayNoHandlerErrorsVisitsAll(t *testing.T) {
	db := memory.New()
	j := NewJournal(db, fixedClock(time.Now()))

	require.NoError(t, j.Record(EventCalculationRun, CalculationRunPayload{}, 5, 0))
	require.NoError(t, j.Record(EventMacCurveComputed, map[string]string{}, 5, 1))

	var count int
	require.NoError(t, j.Replay(5, func(EventRecord) error {
		count++
		return nil
	}))
	assert.Equal(t, 2, count)
}
