/*
time.go - Month keys, clamped month arithmetic, effective accounting months

PURPOSE:
  Calendar months are the unit of account for the whole engine: recurrence
  instances, accrual totals, and economic indicators are all keyed by month.
  This file provides the month-key derivation, overflow-safe month
  arithmetic, and the statement-cycle adjustment for credit instruments.

KEY INSIGHT:
  "Which month does this money belong to?" is not always the calendar month
  of the transaction. A credit-card charge made after the statement closing
  day bills to the NEXT statement, so it must be accounted in the following
  month. EffectiveMonthKey encodes that rule in exactly one place.

MONTH ARITHMETIC:
  AddMonths clamps instead of overflowing: Jan 31 + 1 month is the last day
  of February (Feb 29 in a leap year), never an invalid date or March 2.
  time.AddDate would normalize Jan 31 + 1 month to March 2/3, which is wrong
  for billing dates.

EXAMPLE:
  engine.MonthKeyOf(date(2024, 2, 15))                    // "2024-02"
  engine.AddMonths(date(2024, 1, 31), 1)                  // 2024-02-29
  engine.EffectiveMonthKey(date(2024, 3, 11), &visa)      // "2024-04" (closing day 10)

SEE ALSO:
  - types.go: Instrument (closing day)
  - accrual/: iterates the months of a period via Period.Months()
*/
package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH KEY - "YYYY-MM"
// =============================================================================

// MonthKey identifies a calendar month as "YYYY-MM". The format sorts
// lexicographically in chronological order, so string comparison is safe.
type MonthKey string

// MonthKeyOf derives the month key for a date.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// ParseMonthKey validates and returns a month key from its string form.
func ParseMonthKey(s string) (MonthKey, error) {
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", fmt.Errorf("%w: %q is not a YYYY-MM month key", ErrInvalidMonthKey, s)
	}
	return MonthKey(s), nil
}

// First returns the first day of the month.
func (m MonthKey) First() time.Time {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Last returns the last day of the month.
func (m MonthKey) Last() time.Time {
	first := m.First()
	if first.IsZero() {
		return time.Time{}
	}
	return first.AddDate(0, 1, -1)
}

// DaysIn returns the number of days in the month.
func (m MonthKey) DaysIn() int {
	last := m.Last()
	if last.IsZero() {
		return 0
	}
	return last.Day()
}

// Next returns the following month.
func (m MonthKey) Next() MonthKey {
	return MonthKeyOf(m.First().AddDate(0, 1, 0))
}

// Before reports chronological order. Lexicographic comparison is correct
// for the YYYY-MM format.
func (m MonthKey) Before(other MonthKey) bool { return m < other }

// =============================================================================
// MONTH ARITHMETIC - Overflow clamps to the last valid day
// =============================================================================

// NewDate builds a UTC date at day granularity.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddMonths adds n calendar months, clamping the day of month to the last
// valid day instead of letting it overflow. Jan 31 + 1 month = Feb 29/28.
func AddMonths(t time.Time, n int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := t.Day()
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return NewDate(firstOfTarget.Year(), firstOfTarget.Month(), day)
}

// ClampDayToMonth places a preferred day of month inside a target month.
// Days outside [1, 31] fall back to day 1; days past the end of the month
// clamp to the last day. Only derived dates are ever clamped - user-entered
// amounts and days are validated, not silently adjusted.
func ClampDayToMonth(month MonthKey, day int) time.Time {
	first := month.First()
	if day < 1 || day > 31 {
		return first
	}
	if last := month.DaysIn(); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// =============================================================================
// EFFECTIVE MONTH - Statement-cycle accounting for credit instruments
// =============================================================================

// EffectiveMonthKey returns the month a transaction is accounted in.
//
// For a credit instrument with a closing day, a charge made AFTER the
// closing day bills to the following month; on or before the closing day it
// stays in its own month. Debit instruments and transactions without an
// instrument use the transaction's own month.
func EffectiveMonthKey(transactionDate time.Time, instrument *Instrument) MonthKey {
	if instrument != nil && instrument.Kind == KindCredit && instrument.ClosingDay > 0 {
		if transactionDate.Day() > instrument.ClosingDay {
			return MonthKeyOf(transactionDate).Next()
		}
	}
	return MonthKeyOf(transactionDate)
}

// =============================================================================
// PERIOD - Inclusive date range for aggregation
// =============================================================================

// Period is an inclusive [Start, End] date range. Accrual totals are always
// computed for a period, never at a point in time.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod validates and builds a period.
func NewPeriod(start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains reports whether t falls within [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Months enumerates every calendar month overlapping the period, in order.
func (p Period) Months() []MonthKey {
	if p.End.Before(p.Start) {
		return nil
	}
	var months []MonthKey
	current := MonthKeyOf(p.Start)
	last := MonthKeyOf(p.End)
	for {
		months = append(months, current)
		if current == last {
			return months
		}
		current = current.Next()
	}
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}
