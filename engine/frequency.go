/*
frequency.go - Monthly-equivalent normalization

PURPOSE:
  Recurring obligations carry different cadences (daily, weekly, yearly...)
  but dashboards and budgets reason in calendar months. The Normalizer
  converts an amount tagged with a frequency into its monthly-equivalent
  figure.

APPROXIMATION, ON PURPOSE:
  The daily/weekly/biweekly multipliers are fixed approximations (30 days,
  4.33 weeks, 2.17 fortnights per month). Exactness would require
  calendar-aware week counting per month; the accepted tradeoff is a stable,
  predictable baseline. The multipliers are configuration, not constants:
  callers who want different assumptions override them.

ONE-OFFS:
  FreqOnce normalizes to zero. One-off amounts never contribute to a
  recurring monthly baseline - they are accounted by their effective month
  instead (see accrual/).

EXAMPLE:
  n := engine.DefaultNormalizer()
  n.ToMonthly(decimal.NewFromInt(100), engine.FreqWeekly)   // 433
  n.ToMonthly(decimal.NewFromInt(1200), engine.FreqYearly)  // 100

SEE ALSO:
  - accrual/: applies the normalizer to templates active in a month
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// NORMALIZER - Frequency to monthly-equivalent conversion
// =============================================================================

// Normalizer converts amounts between frequencies and their monthly
// equivalent. Zero values mean "use the defaults"; construct with
// DefaultNormalizer unless you need different month-length assumptions.
type Normalizer struct {
	// Multipliers applied to sub-monthly frequencies.
	DaysPerMonth       decimal.Decimal // daily x 30
	WeeksPerMonth      decimal.Decimal // weekly x 4.33
	FortnightsPerMonth decimal.Decimal // biweekly x 2.17

	// Divisors applied to super-monthly frequencies.
	MonthsPerQuarter decimal.Decimal // quarterly / 3
	MonthsPerYear    decimal.Decimal // yearly / 12
}

// DefaultNormalizer returns the standard month-length approximations.
func DefaultNormalizer() Normalizer {
	return Normalizer{
		DaysPerMonth:       decimal.NewFromInt(30),
		WeeksPerMonth:      decimal.RequireFromString("4.33"),
		FortnightsPerMonth: decimal.RequireFromString("2.17"),
		MonthsPerQuarter:   decimal.NewFromInt(3),
		MonthsPerYear:      decimal.NewFromInt(12),
	}
}

// ToMonthly converts an amount tagged with a frequency into its
// monthly-equivalent figure. FreqOnce and unknown frequencies contribute
// zero to a monthly baseline.
func (n Normalizer) ToMonthly(amount decimal.Decimal, freq Frequency) decimal.Decimal {
	switch freq {
	case FreqDaily:
		return amount.Mul(n.DaysPerMonth)
	case FreqWeekly:
		return amount.Mul(n.WeeksPerMonth)
	case FreqBiweekly:
		return amount.Mul(n.FortnightsPerMonth)
	case FreqMonthly:
		return amount
	case FreqQuarterly:
		return amount.Div(n.MonthsPerQuarter)
	case FreqYearly:
		return amount.Div(n.MonthsPerYear)
	default:
		return decimal.Zero
	}
}
