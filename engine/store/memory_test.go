package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-engine/engine"
	"github.com/warp/finance-engine/engine/store"
)

func obligation(id string) engine.Obligation {
	return engine.Obligation{
		ID:        engine.ObligationID(id),
		Name:      id,
		Amount:    engine.MustParseDecimal("100"),
		Currency:  engine.ARS,
		Frequency: engine.FreqOnce,
		Direction: engine.Outflow,
		Date:      engine.NewDate(2024, time.March, 5),
	}
}

func instance(id, templateID string, month engine.MonthKey) engine.Obligation {
	o := obligation(id)
	o.Recurrence = &engine.RecurrenceState{TemplateID: engine.ObligationID(templateID), Month: month}
	return o
}

func TestMemory_ObligationRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.PutObligation(ctx, obligation("a")))

	got, err := m.Obligation(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, engine.ObligationID("a"), got.ID)

	_, err = m.Obligation(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrObligationNotFound)
}

func TestMemory_InstanceUniquenessPerTemplateMonth(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.PutObligation(ctx, instance("i1", "tmpl", "2024-03")))

	err := m.PutObligation(ctx, instance("i2", "tmpl", "2024-03"))
	assert.ErrorIs(t, err, engine.ErrAlreadyConfirmed)

	// A different month is fine.
	assert.NoError(t, m.PutObligation(ctx, instance("i3", "tmpl", "2024-04")))

	// Re-putting the same instance (update) is fine.
	assert.NoError(t, m.PutObligation(ctx, instance("i1", "tmpl", "2024-03")))
}

func TestMemory_DeleteTemplateKeepsInstances(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	tmpl := obligation("tmpl")
	tmpl.IsRecurring = true
	tmpl.Frequency = engine.FreqMonthly
	require.NoError(t, m.PutObligation(ctx, tmpl))
	require.NoError(t, m.PutObligation(ctx, instance("i1", "tmpl", "2024-03")))

	require.NoError(t, m.DeleteObligation(ctx, "tmpl"))

	// The instance survives as an independent ledger fact.
	got, err := m.Obligation(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, engine.ObligationID("tmpl"), got.Recurrence.TemplateID)
}

func TestMemory_ApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.PutObligation(ctx, instance("existing", "tmpl", "2024-03")))

	// A batch containing a conflicting instance fails without side effects.
	err := m.Apply(ctx, []engine.Mutation{
		engine.CreateObligation(obligation("fresh")),
		engine.CreateObligation(instance("dup", "tmpl", "2024-03")),
	})
	assert.ErrorIs(t, err, engine.ErrAlreadyConfirmed)

	_, err = m.Obligation(ctx, "fresh")
	assert.ErrorIs(t, err, engine.ErrObligationNotFound, "failed batch must not apply partially")
}

func TestMemory_ApplySettlementLifecycle(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.PutObligation(ctx, obligation("a")))

	settledAt := engine.NewDate(2024, time.March, 6)
	require.NoError(t, m.Apply(ctx, []engine.Mutation{
		engine.PutSettlement(engine.Settlement{ObligationID: "a", Amount: engine.MustParseDecimal("100"), Currency: engine.ARS, SettledAt: settledAt}),
	}))

	s, ok, err := m.SettlementFor(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, settledAt, s.SettledAt)

	// Upsert: a second put replaces, never duplicates.
	require.NoError(t, m.Apply(ctx, []engine.Mutation{
		engine.PutSettlement(engine.Settlement{ObligationID: "a", Amount: engine.MustParseDecimal("100"), Currency: engine.ARS, SettledAt: settledAt}),
	}))
	all, err := m.Settlements(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, m.Apply(ctx, []engine.Mutation{engine.DeleteSettlement("a")}))
	_, ok, err = m.SettlementFor(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_IndicatorRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.PutIndicator(ctx, engine.Indicator{Month: "2024-01", PurchasingPowerIndex: engine.MustParseDecimal("100")}))
	require.NoError(t, m.PutIndicator(ctx, engine.Indicator{Month: "2024-02", PurchasingPowerIndex: engine.MustParseDecimal("92")}))

	all, err := m.Indicators(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, engine.MonthKey("2024-01"), all[0].Month, "sorted by month")
}
