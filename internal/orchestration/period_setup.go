// Package orchestration implements multi-period and multi-scenario
// orchestration on top of one engine.UnifiedEngine run per period: period
// calendar setup, the roll-forward period runner, and scenario generation.
package orchestration

import "time"

// Period is one reporting period's calendar bounds and sequence position.
type Period struct {
	PeriodIndex  int
	Label        string // "YYYY-MM"
	StartDate    time.Time
	EndDate      time.Time
	DaysInPeriod int
}

// GenerateMonthlyPeriods builds numPeriods sequential calendar-month periods
// starting at start. Each period's days-in-period is a fixed 30-day
// approximation rather than the calendar's true day count, matching this
// engine's period accounting elsewhere.
func GenerateMonthlyPeriods(start time.Time, numPeriods int) []Period {
	if numPeriods <= 0 {
		return nil
	}

	periods := make([]Period, 0, numPeriods)
	for i := 0; i < numPeriods; i++ {
		periodStart := start.AddDate(0, i, 0)
		nextMonth := start.AddDate(0, i+1, 0)
		periodEnd := time.Date(nextMonth.Year(), nextMonth.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)

		periods = append(periods, Period{
			PeriodIndex:  i,
			Label:        periodStart.Format("2006-01"),
			StartDate:    periodStart,
			EndDate:      periodEnd,
			DaysInPeriod: 30,
		})
	}

	return periods
}

// InitialBalanceSheet seeds a minimal opening balance sheet: cash and
// retained earnings at the given amounts, every other standard line item
// zeroed. Templates may carry additional line items the caller should
// zero-fill separately; this only covers the common opening set.
func InitialBalanceSheet(cash, retainedEarnings float64) map[string]float64 {
	return map[string]float64{
		"CASH":                      cash,
		"ACCOUNTS_RECEIVABLE":       0,
		"INVENTORY":                 0,
		"PREPAID_EXPENSES":          0,
		"PPE_GROSS":                 0,
		"ACCUMULATED_DEPRECIATION":  0,
		"PPE_NET":                   0,
		"INTANGIBLE_ASSETS":        0,
		"ACCOUNTS_PAYABLE":          0,
		"ACCRUED_EXPENSES":          0,
		"SHORT_TERM_DEBT":           0,
		"LONG_TERM_DEBT":            0,
		"SHARE_CAPITAL":             0,
		"RETAINED_EARNINGS":         retainedEarnings,
	}
}
