/*
Package accrual computes period totals over obligations.

PURPOSE:
  Answers "how much was actually earned/spent between these dates?" when the
  records mix recurring templates (different frequencies), one-off
  transactions, multiple currencies, and credit-card statement offsets.
  This is the "actual" figure budgets are measured against.

ALGORITHM (per period):
  1. Enumerate every calendar month overlapping [start, end].
  2. For each month, for each record passing the filters:
     - Recurring template: include its monthly-normalized amount iff the
       template's start date is on or before the month's end.
     - One-off / variable transaction: include its raw amount iff its
       EFFECTIVE month (credit statement shifting) equals the iterated month
       AND its actual date lies within the period.
  3. Convert each contribution to the target currency and sum.

QUERY-TIME, ALWAYS:
  There is no persisted running total. Editing a historical record
  retroactively corrects every period aggregate, which is exactly the
  property a personal ledger needs.

EXAMPLE:
  agg := accrual.New(engine.DefaultNormalizer(), convert)
  total := agg.AccruedAmount(accrual.Input{
      Period:      jan1ToFeb28,
      Records:     records,
      Instruments: instruments,
      Target:      engine.ARS,
  })

SEE ALSO:
  - engine/frequency.go: the monthly normalization used in step 2
  - engine/time.go: effective-month derivation
  - recurrence/: produces the instances aggregated here
*/
package accrual

import (
	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/engine"
)

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator sums accrued amounts over a period. It is pure: records,
// instruments, and the currency converter are all supplied by the caller.
type Aggregator struct {
	normalizer engine.Normalizer
	convert    engine.Converter
}

func New(normalizer engine.Normalizer, convert engine.Converter) *Aggregator {
	if convert == nil {
		convert = engine.IdentityConverter
	}
	return &Aggregator{normalizer: normalizer, convert: convert}
}

// Input gathers the query parameters for an accrual computation.
type Input struct {
	Period      engine.Period
	Records     []engine.Obligation
	Instruments map[engine.InstrumentID]engine.Instrument

	// CategoryID filters records to one category; empty means all.
	CategoryID engine.CategoryID

	// Direction filters to income or expense; empty means both.
	Direction engine.Direction

	// Target is the display currency every contribution is converted to.
	Target engine.Currency
}

// AccruedAmount computes the total accrued in the period, in the target
// currency.
func (a *Aggregator) AccruedAmount(in Input) decimal.Decimal {
	total := decimal.Zero
	for _, monthTotal := range a.MonthlyTotals(in) {
		total = total.Add(monthTotal)
	}
	return total
}

// MonthlyTotals computes the per-month breakdown of the same figure, keyed
// by month. Months with no contributions still appear, with a zero total.
func (a *Aggregator) MonthlyTotals(in Input) map[engine.MonthKey]decimal.Decimal {
	out := make(map[engine.MonthKey]decimal.Decimal)
	for _, month := range in.Period.Months() {
		monthTotal := decimal.Zero
		for _, r := range in.Records {
			if !a.matches(r, in) {
				continue
			}
			if r.IsTemplate() {
				// Recurring baseline: active once its start month is reached.
				if r.Date.After(month.Last()) {
					continue
				}
				monthly := a.normalizer.ToMonthly(r.Amount, r.Frequency)
				monthTotal = monthTotal.Add(a.convert(monthly, r.Currency, in.Target))
				continue
			}
			// One-off or confirmed instance: counted once, in its effective
			// month, and only if the actual date is inside the period.
			if engine.EffectiveMonthKey(r.Date, a.instrumentFor(r, in)) != month {
				continue
			}
			if !in.Period.Contains(r.Date) {
				continue
			}
			monthTotal = monthTotal.Add(a.convert(r.Amount, r.Currency, in.Target))
		}
		out[month] = monthTotal
	}
	return out
}

func (a *Aggregator) matches(r engine.Obligation, in Input) bool {
	if in.CategoryID != "" && r.CategoryID != in.CategoryID {
		return false
	}
	if in.Direction != "" && r.Direction != in.Direction {
		return false
	}
	return true
}

func (a *Aggregator) instrumentFor(r engine.Obligation, in Input) *engine.Instrument {
	if r.InstrumentID == "" {
		return nil
	}
	if ins, ok := in.Instruments[r.InstrumentID]; ok {
		return &ins
	}
	return nil
}

// =============================================================================
// BUDGET COMPARISON - Allocated vs accrued per category
// =============================================================================

// CategoryStatus is one budget line with its accrued actuals.
type CategoryStatus struct {
	CategoryID engine.CategoryID
	Allocated  decimal.Decimal
	Accrued    decimal.Decimal
	Remaining  decimal.Decimal
	Currency   engine.Currency
}

// CompareBudget supplies the accrued-spend figure for each allocation of a
// budget. Only outflows count against a budget line.
func (a *Aggregator) CompareBudget(budget engine.Budget, records []engine.Obligation, instruments map[engine.InstrumentID]engine.Instrument) []CategoryStatus {
	period := engine.Period{Start: budget.PeriodStart, End: budget.PeriodEnd}

	out := make([]CategoryStatus, 0, len(budget.Allocations))
	for _, alloc := range budget.Allocations {
		accrued := a.AccruedAmount(Input{
			Period:      period,
			Records:     records,
			Instruments: instruments,
			CategoryID:  alloc.CategoryID,
			Direction:   engine.Outflow,
			Target:      alloc.Currency,
		})
		out = append(out, CategoryStatus{
			CategoryID: alloc.CategoryID,
			Allocated:  alloc.Amount,
			Accrued:    accrued,
			Remaining:  alloc.Amount.Sub(accrued),
			Currency:   alloc.Currency,
		})
	}
	return out
}
