/*
Package engine provides the core personal-finance computation model.

PURPOSE:
  This package contains the shared data model and leaf utilities used by the
  recurrence, accrual, and valuation engines. It knows nothing about
  persistence or HTTP - it describes obligations (income and expense records),
  their settlement lifecycle, payment instruments, and the per-month economic
  indicators used for inflation-adjusted valuation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount paired with a currency
  - Obligation: A single income/expense record, template or concrete
  - RecurrenceState / SettlementState: Typed lifecycle state
  - Settlement: The payment/receipt record marking an obligation settled
  - Instrument: A payment instrument (credit cards shift accounting months)
  - Indicator: Per-month economic indicators (inflation, USD rates)

DESIGN PRINCIPLES:
  1. Purity: Engines receive collections and an explicit "today"; they never
     read a global clock or touch storage.
  2. Precision: Uses decimal.Decimal to avoid floating-point errors.
     Rounding happens at display time only, never mid-computation.
  3. Type Safety: Strong typing for IDs prevents mixing obligation and
     instrument identifiers.
  4. Explicit State: Recurrence and settlement state are typed structs, not
     strings smuggled through the tag set.

USAGE:
  tmpl := engine.Obligation{
      Name:        "Rent",
      Amount:      decimal.NewFromInt(250000),
      Currency:    engine.ARS,
      Frequency:   engine.FreqMonthly,
      Direction:   engine.Outflow,
      IsRecurring: true,
      RecurringDay: 5,
  }

SEE ALSO:
  - time.go: Month keys, clamped month arithmetic, effective months
  - frequency.go: Monthly-equivalent normalization
  - mutation.go: Record diffs returned by the engines
  - store.go: Persistence interface consumed by the HTTP shell
*/
package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount with currency
// =============================================================================

type Currency string

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

type Money struct {
	Value    decimal.Decimal
	Currency Currency
}

func NewMoney(value float64, currency Currency) Money {
	return Money{Value: decimal.NewFromFloat(value), Currency: currency}
}

func NewMoneyFromInt(value int, currency Currency) Money {
	return Money{Value: decimal.NewFromInt(int64(value)), Currency: currency}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (m Money) Zero() Money                 { return Money{Value: decimal.Zero, Currency: m.Currency} }
func (m Money) Add(b Money) Money           { return Money{Value: m.Value.Add(b.Value), Currency: m.Currency} }
func (m Money) Sub(b Money) Money           { return Money{Value: m.Value.Sub(b.Value), Currency: m.Currency} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s), Currency: m.Currency} }
func (m Money) Neg() Money                  { return Money{Value: m.Value.Neg(), Currency: m.Currency} }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }

// Converter translates an amount between currencies. Exchange rates are an
// external concern: callers supply the function, the engines just apply it.
type Converter func(amount decimal.Decimal, from, to Currency) decimal.Decimal

// IdentityConverter returns amounts unchanged. Useful for single-currency
// datasets and tests.
func IdentityConverter(amount decimal.Decimal, _, _ Currency) decimal.Decimal {
	return amount
}

// RatePair keys a conversion table.
type RatePair struct {
	From Currency
	To   Currency
}

// TableConverter builds a Converter from a static rate table.
// Missing pairs pass the amount through unchanged (fail-soft, like the
// indicator lookups).
func TableConverter(rates map[RatePair]decimal.Decimal) Converter {
	return func(amount decimal.Decimal, from, to Currency) decimal.Decimal {
		if from == to {
			return amount
		}
		if rate, ok := rates[RatePair{From: from, To: to}]; ok {
			return amount.Mul(rate)
		}
		if rate, ok := rates[RatePair{From: to, To: from}]; ok && !rate.IsZero() {
			return amount.Div(rate)
		}
		return amount
	}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ObligationID string
type InstrumentID string
type CategoryID string
type BudgetID string

// =============================================================================
// FREQUENCY & DIRECTION
// =============================================================================

type Frequency string

const (
	FreqOnce      Frequency = "once"
	FreqDaily     Frequency = "daily"
	FreqWeekly    Frequency = "weekly"
	FreqBiweekly  Frequency = "biweekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqYearly    Frequency = "yearly"
)

// IsRepeating reports whether the frequency describes a recurring cadence.
// Templates must carry a repeating frequency; one-off records carry FreqOnce.
func (f Frequency) IsRepeating() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqBiweekly, FreqMonthly, FreqQuarterly, FreqYearly:
		return true
	}
	return false
}

// IsValid reports whether the frequency is one of the known values.
func (f Frequency) IsValid() bool {
	return f == FreqOnce || f.IsRepeating()
}

// Direction distinguishes income from expense. The settlement lifecycle is
// identical for both; direction only matters for reporting.
type Direction string

const (
	Inflow  Direction = "income"
	Outflow Direction = "expense"
)

func (d Direction) IsValid() bool { return d == Inflow || d == Outflow }

// =============================================================================
// OBLIGATION - Income or expense record (template or concrete)
// =============================================================================

// Obligation is a single income or expense record.
//
// Two shapes share this type:
//   - Template: IsRecurring=true with a repeating Frequency. A template is
//     never itself "the money that moved"; it only generates instances.
//   - Concrete record: IsRecurring=false. Either a one-off transaction or a
//     confirmed instance of a template (Recurrence links it back).
type Obligation struct {
	ID           ObligationID
	Name         string
	Amount       decimal.Decimal
	Currency     Currency
	Frequency    Frequency
	Direction    Direction
	IsRecurring  bool
	RecurringDay int // preferred day of month for instances, 0 = unset

	// Date is the transaction date for concrete records, or the start date
	// for templates (no instances are suggested before it).
	Date time.Time

	CategoryID   CategoryID
	InstrumentID InstrumentID

	// Tags are free-form labels for the user. Lifecycle state does NOT live
	// here; see Recurrence and Settlement.
	Tags []string

	Recurrence *RecurrenceState
	Settlement *SettlementState
}

// IsTemplate reports whether the record generates monthly instances.
func (o Obligation) IsTemplate() bool {
	return o.IsRecurring && o.Frequency.IsRepeating()
}

// IsInstance reports whether the record was generated from a template.
func (o Obligation) IsInstance() bool {
	return o.Recurrence != nil && o.Recurrence.TemplateID != ""
}

// IsSettled reports whether the obligation has been paid/received.
func (o Obligation) IsSettled() bool {
	return o.Settlement != nil && !o.Settlement.SettledAt.IsZero()
}

// NameMatches compares obligation names case-insensitively after trimming
// whitespace. Used by duplicate detection.
func (o Obligation) NameMatches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(o.Name), strings.TrimSpace(name))
}

// RecurrenceState holds the typed recurrence lifecycle state.
//
// On a template: SnoozedUntil suppresses pending suggestions while today is
// before it; ReminderDays widens/narrows the due-soon window (0 = default).
//
// On an instance: TemplateID and Month record provenance. At most one
// instance may exist per (template, month) pair.
type RecurrenceState struct {
	TemplateID   ObligationID
	Month        MonthKey
	SnoozedUntil time.Time
	ReminderDays int
}

// Clone returns a copy so engines can return updated records without
// mutating caller-owned state.
func (r *RecurrenceState) Clone() *RecurrenceState {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// SettlementState marks an obligation paid (expense) or received (income).
// Presence means settled; absence means pending.
type SettlementState struct {
	SettledAt time.Time
}

// =============================================================================
// SETTLEMENT - Payment/receipt record
// =============================================================================

// Settlement is the payment/receipt record for a settled obligation.
// At most one exists per obligation (upsert semantics). It is created when
// the user confirms settlement and deleted when settlement is undone.
type Settlement struct {
	ObligationID ObligationID
	Amount       decimal.Decimal
	Currency     Currency
	SettledAt    time.Time
}

// =============================================================================
// PAYMENT INSTRUMENT
// =============================================================================

type InstrumentKind string

const (
	KindCredit InstrumentKind = "credit"
	KindDebit  InstrumentKind = "debit"
)

// Instrument is a payment instrument referenced (never owned) by obligations.
// Only credit instruments with a closing day affect accounting: a charge made
// after the statement closed bills to the following month.
type Instrument struct {
	ID         InstrumentID
	Name       string
	Kind       InstrumentKind
	ClosingDay int // statement closing day of month, 0 = none
}

// =============================================================================
// ECONOMIC INDICATOR - Sparse per-month series
// =============================================================================

// Indicator holds the economic indicators for one calendar month.
// The series is sparse: lookups may miss a month, and every consumer must
// fall back gracefully (nominal passthrough or zero, per operation).
type Indicator struct {
	Month                MonthKey
	InflationRate        decimal.Decimal // month-over-month percentage
	PurchasingPowerIndex decimal.Decimal // monotonically falls as inflation accumulates
	USDOfficialRate      decimal.Decimal
	USDParallelRate      decimal.Decimal
}

// IndicatorSource answers indicator lookups for arbitrary months.
// Implementations must treat a missing month as (zero, false), never as an
// error: the valuation engine's fail-soft paths depend on it.
type IndicatorSource interface {
	IndicatorFor(month MonthKey) (Indicator, bool)
}

// IndicatorTable is a map-backed IndicatorSource.
type IndicatorTable map[MonthKey]Indicator

func (t IndicatorTable) IndicatorFor(month MonthKey) (Indicator, bool) {
	ind, ok := t[month]
	return ind, ok
}

// NewIndicatorTable indexes a slice of indicators by month.
func NewIndicatorTable(indicators []Indicator) IndicatorTable {
	t := make(IndicatorTable, len(indicators))
	for _, ind := range indicators {
		t[ind.Month] = ind
	}
	return t
}

// =============================================================================
// BUDGET - External aggregate consumed by the accrual engine
// =============================================================================

// Allocation is a per-category budget line.
type Allocation struct {
	CategoryID CategoryID
	Amount     decimal.Decimal
	Currency   Currency
}

// Budget is produced elsewhere; the accrual engine only supplies the
// accrued-spend figure each allocation is measured against.
type Budget struct {
	ID          BudgetID
	Name        string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Allocations []Allocation
}
