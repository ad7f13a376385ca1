package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-engine/engine"
)

func date(year int, month time.Month, day int) time.Time {
	return engine.NewDate(year, month, day)
}

// =============================================================================
// MONTH KEY
// =============================================================================

func TestMonthKeyOf(t *testing.T) {
	assert.Equal(t, engine.MonthKey("2024-02"), engine.MonthKeyOf(date(2024, time.February, 15)))
	assert.Equal(t, engine.MonthKey("2024-12"), engine.MonthKeyOf(date(2024, time.December, 1)))
}

func TestParseMonthKey(t *testing.T) {
	m, err := engine.ParseMonthKey("2024-07")
	require.NoError(t, err)
	assert.Equal(t, engine.MonthKey("2024-07"), m)

	_, err = engine.ParseMonthKey("2024-7")
	assert.ErrorIs(t, err, engine.ErrInvalidMonthKey)

	_, err = engine.ParseMonthKey("garbage")
	assert.ErrorIs(t, err, engine.ErrInvalidMonthKey)
}

func TestMonthKeyBounds(t *testing.T) {
	m := engine.MonthKey("2024-02")
	assert.Equal(t, date(2024, time.February, 1), m.First())
	assert.Equal(t, date(2024, time.February, 29), m.Last(), "leap year February")
	assert.Equal(t, 29, m.DaysIn())
	assert.Equal(t, engine.MonthKey("2024-03"), m.Next())

	assert.Equal(t, engine.MonthKey("2024-01"), engine.MonthKey("2023-12").Next(), "year rollover")
}

// =============================================================================
// MONTH ARITHMETIC - Overflow clamps
// =============================================================================

func TestAddMonths_ClampsToLastValidDay(t *testing.T) {
	// GIVEN: Jan 31 in a leap year
	// WHEN: adding one month
	// THEN: the result is Feb 29, not an overflow into March
	assert.Equal(t, date(2024, time.February, 29), engine.AddMonths(date(2024, time.January, 31), 1))

	// Non-leap year clamps to Feb 28
	assert.Equal(t, date(2023, time.February, 28), engine.AddMonths(date(2023, time.January, 31), 1))

	// 31st into a 30-day month
	assert.Equal(t, date(2024, time.April, 30), engine.AddMonths(date(2024, time.March, 31), 1))
}

func TestAddMonths_PlainCases(t *testing.T) {
	assert.Equal(t, date(2024, time.March, 15), engine.AddMonths(date(2024, time.February, 15), 1))
	assert.Equal(t, date(2025, time.January, 10), engine.AddMonths(date(2024, time.December, 10), 1))
	assert.Equal(t, date(2023, time.November, 5), engine.AddMonths(date(2024, time.January, 5), -2))
	assert.Equal(t, date(2024, time.June, 7), engine.AddMonths(date(2024, time.June, 7), 0))
}

func TestClampDayToMonth(t *testing.T) {
	feb := engine.MonthKey("2023-02")

	assert.Equal(t, date(2023, time.February, 10), engine.ClampDayToMonth(feb, 10))
	assert.Equal(t, date(2023, time.February, 28), engine.ClampDayToMonth(feb, 31), "day past month end clamps")
	assert.Equal(t, date(2023, time.February, 1), engine.ClampDayToMonth(feb, 0), "unset day defaults to 1")
	assert.Equal(t, date(2023, time.February, 1), engine.ClampDayToMonth(feb, 42), "out of range defaults to 1")
}

// =============================================================================
// EFFECTIVE MONTH - Statement-cycle boundary
// =============================================================================

func TestEffectiveMonthKey_CreditClosingBoundary(t *testing.T) {
	visa := &engine.Instrument{ID: "visa", Kind: engine.KindCredit, ClosingDay: 10}

	// On the closing day: same month.
	assert.Equal(t, engine.MonthKey("2024-03"), engine.EffectiveMonthKey(date(2024, time.March, 10), visa))

	// The day after the closing day: next month.
	assert.Equal(t, engine.MonthKey("2024-04"), engine.EffectiveMonthKey(date(2024, time.March, 11), visa))

	// After closing in December rolls into January.
	assert.Equal(t, engine.MonthKey("2025-01"), engine.EffectiveMonthKey(date(2024, time.December, 20), visa))
}

func TestEffectiveMonthKey_DebitAndNoInstrument(t *testing.T) {
	debit := &engine.Instrument{ID: "debit", Kind: engine.KindDebit, ClosingDay: 10}

	assert.Equal(t, engine.MonthKey("2024-03"), engine.EffectiveMonthKey(date(2024, time.March, 25), debit))
	assert.Equal(t, engine.MonthKey("2024-03"), engine.EffectiveMonthKey(date(2024, time.March, 25), nil))

	// Credit without a closing day behaves like debit.
	noClose := &engine.Instrument{ID: "cc", Kind: engine.KindCredit}
	assert.Equal(t, engine.MonthKey("2024-03"), engine.EffectiveMonthKey(date(2024, time.March, 25), noClose))
}

// =============================================================================
// PERIOD
// =============================================================================

func TestPeriodMonths(t *testing.T) {
	p := engine.Period{Start: date(2024, time.January, 15), End: date(2024, time.April, 2)}
	assert.Equal(t, []engine.MonthKey{"2024-01", "2024-02", "2024-03", "2024-04"}, p.Months())

	single := engine.Period{Start: date(2024, time.May, 1), End: date(2024, time.May, 31)}
	assert.Equal(t, []engine.MonthKey{"2024-05"}, single.Months())
}

func TestPeriodContains(t *testing.T) {
	p := engine.Period{Start: date(2024, time.January, 1), End: date(2024, time.February, 28)}
	assert.True(t, p.Contains(date(2024, time.January, 1)))
	assert.True(t, p.Contains(date(2024, time.February, 28)))
	assert.False(t, p.Contains(date(2024, time.February, 29)))
}

func TestNewPeriod_RejectsReversedBounds(t *testing.T) {
	_, err := engine.NewPeriod(date(2024, time.March, 1), date(2024, time.February, 1))
	assert.ErrorIs(t, err, engine.ErrInvalidPeriod)
}
