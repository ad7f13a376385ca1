/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Obligation CRUD and validation mapping
- Recurrence confirm flow, including the already-confirmed conflict
- Settlement idempotency over HTTP
- Accrual queries and currency conversion
- Valuation endpoints
- Scenario loading
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-engine/engine"
	"github.com/warp/finance-engine/engine/store"
)

// newTestServer wires a handler onto a memory store with a fixed clock.
func newTestServer(t *testing.T) (*Handler, *httptest.Server) {
	t.Helper()

	h := NewHandler(store.NewMemory())
	h.Now = func() time.Time {
		return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	}
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return h, srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestObligationCRUD(t *testing.T) {
	_, srv := newTestServer(t)

	// WHEN: creating a valid obligation
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"id":     "coffee",
		"name":   "Coffee",
		"amount": "1500",
		"date":   "2024-06-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[ObligationDTO](t, resp)
	assert.Equal(t, "1500.00", created.Amount)
	assert.Equal(t, "ARS", created.Currency, "currency defaults")
	assert.Equal(t, "expense", created.Direction, "direction defaults")

	// THEN: it lists and fetches back
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/obligations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]ObligationDTO](t, resp)
	require.Len(t, list, 1)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/obligations/coffee", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// WHEN: deleting it
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/obligations/coffee", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// THEN: it is gone
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/obligations/coffee", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestObligationValidationMapsTo400(t *testing.T) {
	_, srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"name":   "Bad",
		"amount": "-10",
		"date":   "2024-06-10",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[ErrorResponse](t, resp)
	assert.Contains(t, errResp.Details, "amount")
}

func TestConfirmFlow(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: one monthly template
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"id": "rent", "name": "Rent", "amount": "250000",
		"frequency": "monthly", "is_recurring": true, "recurring_day": 5,
		"date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// THEN: it is pending for June
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/recurrence/pending?month=2024-06", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decode[struct {
		Month   string          `json:"month"`
		Pending []SuggestionDTO `json:"pending"`
	}](t, resp)
	require.Len(t, pending.Pending, 1)
	assert.Equal(t, "rent", pending.Pending[0].TemplateID)
	assert.Equal(t, "2024-06-05", pending.Pending[0].SuggestedDate)

	// WHEN: confirming it with an amount override
	amount := "260000"
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/recurrence/confirm", ConfirmRequest{
		TemplateID: "rent", Month: "2024-06", Amount: &amount,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	instance := decode[ObligationDTO](t, resp)
	assert.Equal(t, "260000.00", instance.Amount)
	assert.Equal(t, "rent", instance.TemplateID)
	assert.Equal(t, "2024-06", instance.RecurrenceMonth)

	// THEN: a second confirm for the month conflicts
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/recurrence/confirm", ConfirmRequest{
		TemplateID: "rent", Month: "2024-06",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// AND: the pending list is now empty
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/recurrence/pending?month=2024-06", nil)
	pending = decode[struct {
		Month   string          `json:"month"`
		Pending []SuggestionDTO `json:"pending"`
	}](t, resp)
	assert.Empty(t, pending.Pending)
}

func TestConfirmAllAndSnooze(t *testing.T) {
	_, srv := newTestServer(t)

	for _, id := range []string{"rent", "internet"} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
			"id": id, "name": id, "amount": "1000",
			"frequency": "monthly", "is_recurring": true, "recurring_day": 1,
			"date": "2024-01-01",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	// WHEN: snoozing one template
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/recurrence/snooze", SnoozeRequest{
		TemplateID: "internet", Days: 30,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snoozed := decode[ObligationDTO](t, resp)
	assert.Equal(t, "2024-07-15", snoozed.SnoozedUntil)

	// THEN: confirm-all only materializes the other one
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/recurrence/confirm-all", ConfirmAllRequest{Month: "2024-06"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[map[string]any](t, resp)
	assert.Equal(t, float64(1), result["confirmed"])

	// AND: repeating the call confirms nothing new
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/recurrence/confirm-all", ConfirmAllRequest{Month: "2024-06"})
	result = decode[map[string]any](t, resp)
	assert.Equal(t, float64(0), result["confirmed"])
}

func TestSettleRoundTrip(t *testing.T) {
	_, srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"id": "bill", "name": "Bill", "amount": "5000", "date": "2024-06-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// WHEN: settling it twice
	for i := 0; i < 2; i++ {
		resp = doJSON(t, http.MethodPost, srv.URL+"/api/obligations/bill/settle", SettleRequest{SettledAt: "2024-06-12"})
		require.Equal(t, http.StatusOK, resp.StatusCode, "settle call %d", i+1)
		dto := decode[ObligationDTO](t, resp)
		assert.True(t, dto.Settled)
		assert.Equal(t, "2024-06-12", dto.SettledAt)
	}

	// THEN: unsettling returns it to unpaid, also idempotently
	for i := 0; i < 2; i++ {
		resp = doJSON(t, http.MethodDelete, srv.URL+"/api/obligations/bill/settle", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		dto := decode[ObligationDTO](t, resp)
		assert.False(t, dto.Settled)
	}

	// Settling an unknown obligation is a 404.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/obligations/ghost/settle", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAccrualEndpoints(t *testing.T) {
	_, srv := newTestServer(t)

	// GIVEN: a monthly template and a one-off inside the window
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"id": "rent", "name": "Rent", "amount": "1000",
		"frequency": "monthly", "is_recurring": true, "recurring_day": 1,
		"date": "2024-01-01", "category_id": "housing",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"id": "repair", "name": "Repair", "amount": "500",
		"date": "2024-06-10", "category_id": "housing",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// WHEN: querying May-June
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accrual/total?from=2024-05-01&to=2024-06-30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	total := decode[AccrualTotalDTO](t, resp)
	assert.Equal(t, "2500.00", total.Total)
	assert.Equal(t, "ARS", total.Currency)

	// THEN: the monthly breakdown splits 1000 / 1500
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accrual/monthly?from=2024-05-01&to=2024-06-30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	months := decode[[]MonthlyTotalDTO](t, resp)
	require.Len(t, months, 2)
	assert.Equal(t, MonthlyTotalDTO{Month: "2024-05", Total: "1000.00"}, months[0])
	assert.Equal(t, MonthlyTotalDTO{Month: "2024-06", Total: "1500.00"}, months[1])

	// Missing bounds are client errors.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accrual/total?from=2024-05-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAccrualConvertsUSDWithLatestRate(t *testing.T) {
	h, srv := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, h.Store.PutIndicator(ctx, engine.Indicator{
		Month:           "2024-05",
		USDParallelRate: engine.MustParseDecimal("900"),
	}))
	require.NoError(t, h.Store.PutIndicator(ctx, engine.Indicator{
		Month:           "2024-06",
		USDParallelRate: engine.MustParseDecimal("1000"),
	}))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"id": "saas", "name": "SaaS", "amount": "10", "currency": "USD",
		"date": "2024-06-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// The June rate (the latest) converts the $10 record.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accrual/total?from=2024-06-01&to=2024-06-30&currency=ARS", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	total := decode[AccrualTotalDTO](t, resp)
	assert.Equal(t, "10000.00", total.Total)
}

func TestBudgetStatusEndpoint(t *testing.T) {
	h, srv := newTestServer(t)

	require.NoError(t, h.Store.PutBudget(context.Background(), engine.Budget{
		ID:          "june",
		Name:        "June",
		PeriodStart: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Allocations: []engine.Allocation{
			{CategoryID: "food", Amount: engine.MustParseDecimal("100000"), Currency: engine.ARS},
		},
	}))
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"id": "groceries", "name": "Groceries", "amount": "40000",
		"date": "2024-06-08", "category_id": "food",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/budgets/june/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[struct {
		BudgetID string              `json:"budget_id"`
		Statuses []CategoryStatusDTO `json:"statuses"`
	}](t, resp)
	require.Len(t, status.Statuses, 1)
	assert.Equal(t, "40000.00", status.Statuses[0].Accrued)
	assert.Equal(t, "60000.00", status.Statuses[0].Remaining)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/budgets/missing/status", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestValuationEndpoints(t *testing.T) {
	h, srv := newTestServer(t)
	ctx := context.Background()

	// GIVEN: purchasing power halves between purchase and payment
	require.NoError(t, h.Store.PutIndicator(ctx, engine.Indicator{
		Month:                "2024-01",
		PurchasingPowerIndex: engine.MustParseDecimal("100"),
		USDParallelRate:      engine.MustParseDecimal("1000"),
	}))
	require.NoError(t, h.Store.PutIndicator(ctx, engine.Indicator{
		Month:                "2024-02",
		PurchasingPowerIndex: engine.MustParseDecimal("50"),
		USDParallelRate:      engine.MustParseDecimal("2000"),
	}))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/valuation/plan", PlanRequest{
		TotalAmount:       "1000",
		InstallmentAmount: "1000",
		TotalInstallments: 1,
		PurchaseDate:      "2024-01-10",
		FirstPaymentDate:  "2024-02-10",
		Today:             "2024-06-15",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	analysis := decode[PlanAnalysisDTO](t, resp)
	assert.Equal(t, "1000.00", analysis.TotalNominal)
	assert.Equal(t, "2000.00", analysis.TotalReal, "payment month money buys half")

	// Projection: 10% monthly over 3 installments of 1000.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/valuation/projection", ProjectionRequest{
		RemainingInstallments: 3,
		Amount:                "1000",
		NextDate:              "2024-07-15",
		MonthlyInflationPct:   "10",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payments := decode[[]ProjectedPaymentDTO](t, resp)
	require.Len(t, payments, 3)
	assert.Equal(t, "1100.00", payments[0].ProjectedReal)
	assert.Equal(t, "1331.00", payments[2].ProjectedReal)

	// Compare: discounted installments clearly beat cash.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/valuation/compare", CompareRequest{
		CashPrice:           "1000",
		FinancedTotal:       "1000",
		Installments:        12,
		MonthlyInflationPct: "10",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decision := decode[DecisionDTO](t, resp)
	assert.Equal(t, "installments", decision.Recommendation)

	// Invalid plans map to 400.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/valuation/plan", PlanRequest{
		TotalAmount:       "0",
		InstallmentAmount: "1000",
		TotalInstallments: 1,
		PurchaseDate:      "2024-01-10",
		FirstPaymentDate:  "2024-02-10",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestScenarioLoading(t *testing.T) {
	_, srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/scenarios", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]ScenarioDTO](t, resp)
	require.NotEmpty(t, list)

	for _, s := range list {
		resp = doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: s.ID})
		require.Equal(t, http.StatusOK, resp.StatusCode, "scenario %s", s.ID)
		resp.Body.Close()

		resp = doJSON(t, http.MethodGet, srv.URL+"/api/obligations", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		records := decode[[]ObligationDTO](t, resp)
		assert.NotEmpty(t, records, "scenario %s seeds records", s.ID)

		resp = doJSON(t, http.MethodGet, srv.URL+"/api/scenarios/current", nil)
		current := decode[ScenarioDTO](t, resp)
		assert.Equal(t, s.ID, current.ID)
	}

	// Unknown scenarios are rejected.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Reset clears everything.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/obligations", nil)
	records := decode[[]ObligationDTO](t, resp)
	assert.Empty(t, records)
}

func TestDuplicateWarningEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"id": "netflix", "name": "Netflix", "amount": "6000",
		"frequency": "monthly", "is_recurring": true, "recurring_day": 3,
		"date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/obligations", map[string]any{
		"id": "netflix-june", "name": "  netflix ", "amount": "6000",
		"date": "2024-06-03",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/recurrence/duplicates?template_id=netflix&date=2024-06-10", srv.URL), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dupes := decode[[]ObligationDTO](t, resp)
	require.Len(t, dupes, 1)
	assert.Equal(t, "netflix-june", dupes[0].ID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/recurrence/duplicates", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
