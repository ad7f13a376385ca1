package accrual_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-engine/accrual"
	"github.com/warp/finance-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) time.Time {
	return engine.NewDate(year, month, day)
}

func amt(s string) decimal.Decimal { return engine.MustParseDecimal(s) }

func newAggregator() *accrual.Aggregator {
	return accrual.New(engine.DefaultNormalizer(), engine.IdentityConverter)
}

func monthlyTemplate(id, amount string, start time.Time) engine.Obligation {
	return engine.Obligation{
		ID:          engine.ObligationID(id),
		Name:        id,
		Amount:      amt(amount),
		Currency:    engine.ARS,
		Frequency:   engine.FreqMonthly,
		Direction:   engine.Outflow,
		IsRecurring: true,
		Date:        start,
	}
}

func oneOff(id, amount string, when time.Time) engine.Obligation {
	return engine.Obligation{
		ID:        engine.ObligationID(id),
		Name:      id,
		Amount:    amt(amount),
		Currency:  engine.ARS,
		Frequency: engine.FreqOnce,
		Direction: engine.Outflow,
		Date:      when,
	}
}

// =============================================================================
// FIXED SCENARIO - The canonical two-month total
// =============================================================================

func TestAccruedAmount_FixedScenario(t *testing.T) {
	// GIVEN: one monthly template of 1000 starting January and one one-off
	//        expense of 500 dated February 15 (no card)
	// WHEN:  accruing over Jan 1 - Feb 28
	// THEN:  total = 1000 (Jan) + 1000 (Feb) + 500 = 2500
	agg := newAggregator()

	total := agg.AccruedAmount(accrual.Input{
		Period: engine.Period{Start: date(2023, time.January, 1), End: date(2023, time.February, 28)},
		Records: []engine.Obligation{
			monthlyTemplate("rent", "1000", date(2023, time.January, 1)),
			oneOff("repair", "500", date(2023, time.February, 15)),
		},
		Target: engine.ARS,
	})

	assert.True(t, total.Equal(amt("2500")), "got %s", total)
}

func TestMonthlyTotals_Breakdown(t *testing.T) {
	agg := newAggregator()

	totals := agg.MonthlyTotals(accrual.Input{
		Period: engine.Period{Start: date(2023, time.January, 1), End: date(2023, time.February, 28)},
		Records: []engine.Obligation{
			monthlyTemplate("rent", "1000", date(2023, time.January, 1)),
			oneOff("repair", "500", date(2023, time.February, 15)),
		},
		Target: engine.ARS,
	})

	require.Len(t, totals, 2)
	assert.True(t, totals["2023-01"].Equal(amt("1000")))
	assert.True(t, totals["2023-02"].Equal(amt("1500")))
}

// =============================================================================
// TEMPLATE ACTIVATION & NORMALIZATION
// =============================================================================

func TestAccruedAmount_TemplateInactiveBeforeStart(t *testing.T) {
	agg := newAggregator()

	// Template starts in February: January contributes nothing.
	total := agg.AccruedAmount(accrual.Input{
		Period:  engine.Period{Start: date(2023, time.January, 1), End: date(2023, time.February, 28)},
		Records: []engine.Obligation{monthlyTemplate("gym", "300", date(2023, time.February, 10))},
		Target:  engine.ARS,
	})

	assert.True(t, total.Equal(amt("300")), "got %s", total)
}

func TestAccruedAmount_NormalizesFrequencies(t *testing.T) {
	agg := newAggregator()

	weekly := monthlyTemplate("coffee", "100", date(2023, time.January, 1))
	weekly.Frequency = engine.FreqWeekly

	yearly := monthlyTemplate("insurance", "1200", date(2023, time.January, 1))
	yearly.Frequency = engine.FreqYearly

	total := agg.AccruedAmount(accrual.Input{
		Period:  engine.Period{Start: date(2023, time.March, 1), End: date(2023, time.March, 31)},
		Records: []engine.Obligation{weekly, yearly},
		Target:  engine.ARS,
	})

	// 100 x 4.33 + 1200/12 = 433 + 100
	assert.True(t, total.Equal(amt("533")), "got %s", total)
}

// =============================================================================
// ONE-OFFS - Effective month and period bounds
// =============================================================================

func TestAccruedAmount_CreditChargeShiftsOutOfPeriod(t *testing.T) {
	agg := newAggregator()
	card := engine.Instrument{ID: "visa", Kind: engine.KindCredit, ClosingDay: 10}

	charge := oneOff("tv", "900", date(2023, time.March, 20))
	charge.InstrumentID = card.ID

	in := accrual.Input{
		Period:      engine.Period{Start: date(2023, time.March, 1), End: date(2023, time.March, 31)},
		Records:     []engine.Obligation{charge},
		Instruments: map[engine.InstrumentID]engine.Instrument{card.ID: card},
		Target:      engine.ARS,
	}

	// Charged after the closing day: bills to April, so March shows nothing.
	assert.True(t, agg.AccruedAmount(in).IsZero())

	// A period spanning both months catches it in its effective month.
	in.Period = engine.Period{Start: date(2023, time.March, 1), End: date(2023, time.April, 30)}
	assert.True(t, agg.AccruedAmount(in).Equal(amt("900")))
}

func TestAccruedAmount_OneOffOutsidePeriodExcluded(t *testing.T) {
	agg := newAggregator()

	total := agg.AccruedAmount(accrual.Input{
		Period:  engine.Period{Start: date(2023, time.February, 1), End: date(2023, time.February, 28)},
		Records: []engine.Obligation{oneOff("old", "500", date(2023, time.January, 20))},
		Target:  engine.ARS,
	})
	assert.True(t, total.IsZero())
}

// =============================================================================
// FILTERS & CONVERSION
// =============================================================================

func TestAccruedAmount_CategoryAndDirectionFilters(t *testing.T) {
	agg := newAggregator()

	food := oneOff("groceries", "200", date(2023, time.March, 5))
	food.CategoryID = "food"
	transport := oneOff("fuel", "150", date(2023, time.March, 6))
	transport.CategoryID = "transport"
	salary := oneOff("salary", "5000", date(2023, time.March, 1))
	salary.Direction = engine.Inflow

	in := accrual.Input{
		Period:     engine.Period{Start: date(2023, time.March, 1), End: date(2023, time.March, 31)},
		Records:    []engine.Obligation{food, transport, salary},
		CategoryID: "food",
		Target:     engine.ARS,
	}
	assert.True(t, agg.AccruedAmount(in).Equal(amt("200")))

	in.CategoryID = ""
	in.Direction = engine.Inflow
	assert.True(t, agg.AccruedAmount(in).Equal(amt("5000")))
}

func TestAccruedAmount_ConvertsToTargetCurrency(t *testing.T) {
	convert := engine.TableConverter(map[engine.RatePair]decimal.Decimal{
		{From: engine.USD, To: engine.ARS}: amt("1000"),
	})
	agg := accrual.New(engine.DefaultNormalizer(), convert)

	sub := monthlyTemplate("streaming", "10", date(2023, time.January, 1))
	sub.Currency = engine.USD

	total := agg.AccruedAmount(accrual.Input{
		Period:  engine.Period{Start: date(2023, time.March, 1), End: date(2023, time.March, 31)},
		Records: []engine.Obligation{sub},
		Target:  engine.ARS,
	})
	assert.True(t, total.Equal(amt("10000")), "got %s", total)
}

// =============================================================================
// BUDGET COMPARISON
// =============================================================================

func TestCompareBudget_SuppliesAccruedPerCategory(t *testing.T) {
	agg := newAggregator()

	food := oneOff("groceries", "800", date(2023, time.March, 5))
	food.CategoryID = "food"
	foodTemplate := monthlyTemplate("veggie-box", "200", date(2023, time.January, 1))
	foodTemplate.CategoryID = "food"
	salary := oneOff("salary", "5000", date(2023, time.March, 1))
	salary.Direction = engine.Inflow
	salary.CategoryID = "food" // income never counts against a budget line

	budget := engine.Budget{
		ID:          "b-march",
		PeriodStart: date(2023, time.March, 1),
		PeriodEnd:   date(2023, time.March, 31),
		Allocations: []engine.Allocation{
			{CategoryID: "food", Amount: amt("1500"), Currency: engine.ARS},
			{CategoryID: "transport", Amount: amt("400"), Currency: engine.ARS},
		},
	}

	statuses := agg.CompareBudget(budget, []engine.Obligation{food, foodTemplate, salary}, nil)

	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Accrued.Equal(amt("1000")), "800 one-off + 200 recurring")
	assert.True(t, statuses[0].Remaining.Equal(amt("500")))
	assert.True(t, statuses[1].Accrued.IsZero())
	assert.True(t, statuses[1].Remaining.Equal(amt("400")))
}
