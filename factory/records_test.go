package factory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-engine/engine"
)

func TestParseObligation(t *testing.T) {
	// GIVEN a fully-specified recurring template
	data := []byte(`{
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
		"tags": ["home"]
	}`)

	// WHEN it is parsed
	ob, err := ParseObligation(data)

	// THEN every field survives and the record is a template
	require.NoError(t, err)
	assert.Equal(t, engine.ObligationID("rent"), ob.ID)
	assert.True(t, ob.Amount.Equal(engine.MustParseDecimal("250000")))
	assert.Equal(t, engine.FreqMonthly, ob.Frequency)
	assert.True(t, ob.IsTemplate())
	assert.Equal(t, 5, ob.RecurringDay)
	assert.Equal(t, engine.CategoryID("housing"), ob.CategoryID)
}

func TestParseObligationDefaults(t *testing.T) {
	// GIVEN the minimal record: name, amount, date
	ob, err := ParseObligation([]byte(`{"name":"Coffee","amount":"1500","date":"2024-03-10"}`))

	require.NoError(t, err)
	assert.Equal(t, engine.ARS, ob.Currency)
	assert.Equal(t, engine.Outflow, ob.Direction)
	assert.Equal(t, engine.FreqOnce, ob.Frequency)
	assert.NotEmpty(t, ob.ID, "missing id gets generated")
	assert.False(t, ob.IsTemplate())
}

func TestParseObligationValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"amount":"100","date":"2024-01-01"}`, "name"},
		{"zero amount", `{"name":"x","amount":"0","date":"2024-01-01"}`, "amount"},
		{"negative amount", `{"name":"x","amount":"-5","date":"2024-01-01"}`, "amount"},
		{"amount not decimal", `{"name":"x","amount":"abc","date":"2024-01-01"}`, "amount"},
		{"unknown frequency", `{"name":"x","amount":"100","frequency":"hourly","date":"2024-01-01"}`, "frequency"},
		{"recurring one-off", `{"name":"x","amount":"100","frequency":"once","is_recurring":true,"date":"2024-01-01"}`, "frequency"},
		{"recurring day out of range", `{"name":"x","amount":"100","recurring_day":32,"date":"2024-01-01"}`, "recurring_day"},
		{"bad date", `{"name":"x","amount":"100","date":"01/01/2024"}`, "date"},
		{"missing date", `{"name":"x","amount":"100"}`, "date"},
		{"bad direction", `{"name":"x","amount":"100","direction":"sideways","date":"2024-01-01"}`, "direction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseObligation([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, engine.IsClientError(err))

			var fe *engine.FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestParseInstrument(t *testing.T) {
	ins, err := ParseInstrument([]byte(`{"id":"visa","name":"Visa","kind":"credit","closing_day":10}`))
	require.NoError(t, err)
	assert.Equal(t, engine.KindCredit, ins.Kind)
	assert.Equal(t, 10, ins.ClosingDay)

	// WHEN a debit instrument claims a closing day
	_, err = ParseInstrument([]byte(`{"name":"Cash","kind":"debit","closing_day":10}`))
	require.Error(t, err)

	// WHEN the kind is unknown
	_, err = ParseInstrument([]byte(`{"name":"x","kind":"crypto"}`))
	var fe *engine.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "kind", fe.Field)
}

func TestParseIndicatorSeries(t *testing.T) {
	data := []byte(`[
		{"month":"2024-01","inflation_rate":"20.6","purchasing_power_index":"100","usd_official_rate":"820","usd_parallel_rate":"1200"},
		{"month":"2024-02","inflation_rate":"13.2","purchasing_power_index":"82.9"}
	]`)

	series, err := ParseIndicatorSeries(data)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, engine.MonthKey("2024-01"), series[0].Month)
	assert.True(t, series[0].USDParallelRate.Equal(engine.MustParseDecimal("1200")))
	assert.True(t, series[1].USDOfficialRate.IsZero(), "missing rates stay zero")

	// WHEN a month key is malformed
	_, err = ParseIndicatorSeries([]byte(`[{"month":"January 2024"}]`))
	require.Error(t, err)
	assert.True(t, engine.IsClientError(err))
}

func TestParseBudget(t *testing.T) {
	data := []byte(`{
		"id": "q1",
		"name": "Q1 essentials",
		"period_start": "2024-01-01",
		"period_end": "2024-03-31",
		"allocations": [
			{"category_id": "housing", "amount": "800000", "currency": "ARS"},
			{"category_id": "food", "amount": "450000"}
		]
	}`)

	b, err := ParseBudget(data)
	require.NoError(t, err)
	require.Len(t, b.Allocations, 2)
	assert.Equal(t, engine.ARS, b.Allocations[1].Currency)

	// WHEN the period is inverted
	_, err = ParseBudget([]byte(`{"name":"x","period_start":"2024-03-01","period_end":"2024-01-01"}`))
	var fe *engine.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "period_end", fe.Field)
}
