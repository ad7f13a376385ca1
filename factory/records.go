/*
Package factory provides JSON to engine-record conversion.

PURPOSE:
  Converts JSON definitions into engine.Obligation, engine.Instrument,
  engine.Indicator, and engine.Budget values. This is where user input is
  validated: amounts must be positive, recurring days must fit a month, and
  recurring templates must carry a repeating frequency - all rejected with
  field-level errors BEFORE any record exists. The engine never silently
  clamps user-entered monetary values.

JSON SCHEMA (obligation):
  {
    "id": "rent",
    "name": "Rent",
    "amount": "250000",
    "currency": "ARS",
    "frequency": "monthly",
    "direction": "expense",
    "is_recurring": true,
    "recurring_day": 5,
    "date": "2024-01-01",
    "category_id": "housing",
    "instrument_id": "visa",
    "tags": ["home"]
  }

DEFAULTS:
  currency  -> ARS
  direction -> expense
  frequency -> once

AMOUNTS AS STRINGS:
  Amounts are decimal strings, never JSON numbers: float64 round-tripping
  is exactly the precision loss the decimal stack exists to avoid.

SEE ALSO:
  - engine/errors.go: FieldError returned for invalid input
  - api/: feeds request bodies through these parsers
*/
package factory

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/engine"
)

const dateLayout = "2006-01-02"

// =============================================================================
// OBLIGATION
// =============================================================================

// ObligationJSON is the wire form of an obligation record.
type ObligationJSON struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Amount       string   `json:"amount"`
	Currency     string   `json:"currency"`
	Frequency    string   `json:"frequency"`
	Direction    string   `json:"direction"`
	IsRecurring  bool     `json:"is_recurring"`
	RecurringDay int      `json:"recurring_day"`
	Date         string   `json:"date"`
	CategoryID   string   `json:"category_id"`
	InstrumentID string   `json:"instrument_id"`
	Tags         []string `json:"tags"`
}

// ParseObligation validates and converts a JSON obligation.
func ParseObligation(data []byte) (engine.Obligation, error) {
	var raw ObligationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return engine.Obligation{}, engine.NewFieldError("body", "malformed JSON: "+err.Error())
	}
	return ObligationFromJSON(raw)
}

// ObligationFromJSON converts an already-decoded wire record.
func ObligationFromJSON(raw ObligationJSON) (engine.Obligation, error) {
	if raw.Name == "" {
		return engine.Obligation{}, engine.NewFieldError("name", "is required")
	}

	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return engine.Obligation{}, engine.NewFieldError("amount", "must be a decimal string")
	}
	if !amount.IsPositive() {
		return engine.Obligation{}, engine.NewFieldError("amount", "must be positive")
	}

	freq := engine.Frequency(raw.Frequency)
	if raw.Frequency == "" {
		freq = engine.FreqOnce
	}
	if !freq.IsValid() {
		return engine.Obligation{}, engine.NewFieldError("frequency", "unknown frequency "+raw.Frequency)
	}
	if raw.IsRecurring && !freq.IsRepeating() {
		return engine.Obligation{}, engine.NewFieldError("frequency", "recurring records need a repeating frequency")
	}

	direction := engine.Direction(raw.Direction)
	if raw.Direction == "" {
		direction = engine.Outflow
	}
	if !direction.IsValid() {
		return engine.Obligation{}, engine.NewFieldError("direction", "must be income or expense")
	}

	if raw.RecurringDay < 0 || raw.RecurringDay > 31 {
		return engine.Obligation{}, engine.NewFieldError("recurring_day", "must be between 1 and 31")
	}

	if raw.Date == "" {
		return engine.Obligation{}, engine.NewFieldError("date", "is required")
	}
	date, err := time.Parse(dateLayout, raw.Date)
	if err != nil {
		return engine.Obligation{}, engine.NewFieldError("date", "must be YYYY-MM-DD")
	}

	currency := engine.Currency(raw.Currency)
	if raw.Currency == "" {
		currency = engine.ARS
	}

	id := engine.ObligationID(raw.ID)
	if id == "" {
		id = engine.ObligationID(uuid.NewString())
	}

	return engine.Obligation{
		ID:           id,
		Name:         raw.Name,
		Amount:       amount,
		Currency:     currency,
		Frequency:    freq,
		Direction:    direction,
		IsRecurring:  raw.IsRecurring,
		RecurringDay: raw.RecurringDay,
		Date:         date,
		CategoryID:   engine.CategoryID(raw.CategoryID),
		InstrumentID: engine.InstrumentID(raw.InstrumentID),
		Tags:         raw.Tags,
	}, nil
}

// =============================================================================
// INSTRUMENT
// =============================================================================

type InstrumentJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	ClosingDay int    `json:"closing_day"`
}

// ParseInstrument validates and converts a JSON payment instrument.
func ParseInstrument(data []byte) (engine.Instrument, error) {
	var raw InstrumentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return engine.Instrument{}, engine.NewFieldError("body", "malformed JSON: "+err.Error())
	}

	kind := engine.InstrumentKind(raw.Kind)
	if kind != engine.KindCredit && kind != engine.KindDebit {
		return engine.Instrument{}, engine.NewFieldError("kind", "must be credit or debit")
	}
	if raw.ClosingDay < 0 || raw.ClosingDay > 31 {
		return engine.Instrument{}, engine.NewFieldError("closing_day", "must be between 1 and 31")
	}
	if kind == engine.KindDebit && raw.ClosingDay != 0 {
		return engine.Instrument{}, engine.NewFieldError("closing_day", "only credit instruments have a closing day")
	}

	id := engine.InstrumentID(raw.ID)
	if id == "" {
		id = engine.InstrumentID(uuid.NewString())
	}

	return engine.Instrument{
		ID:         id,
		Name:       raw.Name,
		Kind:       kind,
		ClosingDay: raw.ClosingDay,
	}, nil
}

// =============================================================================
// INDICATOR
// =============================================================================

type IndicatorJSON struct {
	Month                string `json:"month"`
	InflationRate        string `json:"inflation_rate"`
	PurchasingPowerIndex string `json:"purchasing_power_index"`
	USDOfficialRate      string `json:"usd_official_rate"`
	USDParallelRate      string `json:"usd_parallel_rate"`
}

// ParseIndicator validates and converts one month's indicators.
func ParseIndicator(data []byte) (engine.Indicator, error) {
	var raw IndicatorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return engine.Indicator{}, engine.NewFieldError("body", "malformed JSON: "+err.Error())
	}
	return IndicatorFromJSON(raw)
}

// IndicatorFromJSON converts an already-decoded wire record.
func IndicatorFromJSON(raw IndicatorJSON) (engine.Indicator, error) {
	month, err := engine.ParseMonthKey(raw.Month)
	if err != nil {
		return engine.Indicator{}, engine.NewFieldError("month", "must be YYYY-MM")
	}

	parse := func(field, value string) (decimal.Decimal, error) {
		if value == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, engine.NewFieldError(field, "must be a decimal string")
		}
		return d, nil
	}

	ind := engine.Indicator{Month: month}
	if ind.InflationRate, err = parse("inflation_rate", raw.InflationRate); err != nil {
		return engine.Indicator{}, err
	}
	if ind.PurchasingPowerIndex, err = parse("purchasing_power_index", raw.PurchasingPowerIndex); err != nil {
		return engine.Indicator{}, err
	}
	if ind.USDOfficialRate, err = parse("usd_official_rate", raw.USDOfficialRate); err != nil {
		return engine.Indicator{}, err
	}
	if ind.USDParallelRate, err = parse("usd_parallel_rate", raw.USDParallelRate); err != nil {
		return engine.Indicator{}, err
	}
	if ind.PurchasingPowerIndex.IsNegative() {
		return engine.Indicator{}, engine.NewFieldError("purchasing_power_index", "must not be negative")
	}
	return ind, nil
}

// ParseIndicatorSeries converts a JSON array of monthly indicators.
func ParseIndicatorSeries(data []byte) ([]engine.Indicator, error) {
	var raws []IndicatorJSON
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, engine.NewFieldError("body", "malformed JSON: "+err.Error())
	}
	out := make([]engine.Indicator, 0, len(raws))
	for _, raw := range raws {
		ind, err := IndicatorFromJSON(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, nil
}

// =============================================================================
// BUDGET
// =============================================================================

type BudgetJSON struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	PeriodStart string           `json:"period_start"`
	PeriodEnd   string           `json:"period_end"`
	Allocations []AllocationJSON `json:"allocations"`
}

type AllocationJSON struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

// ParseBudget validates and converts a JSON budget.
func ParseBudget(data []byte) (engine.Budget, error) {
	var raw BudgetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return engine.Budget{}, engine.NewFieldError("body", "malformed JSON: "+err.Error())
	}

	start, err := time.Parse(dateLayout, raw.PeriodStart)
	if err != nil {
		return engine.Budget{}, engine.NewFieldError("period_start", "must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, raw.PeriodEnd)
	if err != nil {
		return engine.Budget{}, engine.NewFieldError("period_end", "must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return engine.Budget{}, engine.NewFieldError("period_end", "must not precede period_start")
	}

	allocations := make([]engine.Allocation, 0, len(raw.Allocations))
	for _, a := range raw.Allocations {
		if a.CategoryID == "" {
			return engine.Budget{}, engine.NewFieldError("allocations.category_id", "is required")
		}
		amount, err := decimal.NewFromString(a.Amount)
		if err != nil || !amount.IsPositive() {
			return engine.Budget{}, engine.NewFieldError("allocations.amount", "must be a positive decimal string")
		}
		currency := engine.Currency(a.Currency)
		if a.Currency == "" {
			currency = engine.ARS
		}
		allocations = append(allocations, engine.Allocation{
			CategoryID: engine.CategoryID(a.CategoryID),
			Amount:     amount,
			Currency:   currency,
		})
	}

	id := engine.BudgetID(raw.ID)
	if id == "" {
		id = engine.BudgetID(uuid.NewString())
	}

	return engine.Budget{
		ID:          id,
		Name:        raw.Name,
		PeriodStart: start,
		PeriodEnd:   end,
		Allocations: allocations,
	}, nil
}
