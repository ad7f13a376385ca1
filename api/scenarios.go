/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates obligations,
	instruments, indicators, and budgets that demonstrate specific
	features.

AVAILABLE SCENARIOS:

	monthly-essentials: Recurring templates with a confirmed prior month
	credit-card-cycle:  Closing-day accounting on a credit card
	inflation-playbook: Installment plans with a full indicator series

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create instruments
 3. Create obligation records via factory wire forms
 4. Load the economic indicator series
 5. Optionally confirm and settle a prior month

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "monthly-essentials"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - factory/records.go: wire forms used to build the seed data
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/finance-engine/engine"
	"github.com/warp/finance-engine/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "monthly-essentials",
		Name:        "Monthly Essentials",
		Description: "Recurring rent, utilities, and salary with last month confirmed and settled",
	},
	{
		ID:          "credit-card-cycle",
		Name:        "Credit Card Cycle",
		Description: "Purchases straddling a credit card closing day",
	},
	{
		ID:          "inflation-playbook",
		Name:        "Inflation Playbook",
		Description: "Installment purchases with a year of economic indicators",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "monthly-essentials":
		err = h.loadEssentialsScenario(ctx)
	case "credit-card-cycle":
		err = h.loadCreditCycleScenario(ctx)
	case "inflation-playbook":
		err = h.loadInflationScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]any{"loaded": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedObligations parses and stores a batch of wire-form records.
func (h *Handler) seedObligations(ctx context.Context, raws []factory.ObligationJSON) error {
	for _, raw := range raws {
		rec, err := factory.ObligationFromJSON(raw)
		if err != nil {
			return fmt.Errorf("seed %q: %w", raw.Name, err)
		}
		if err := h.Store.PutObligation(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// seedIndicators stores a descending-inflation indicator series ending at
// the current month, starting from the given index level.
func (h *Handler) seedIndicators(ctx context.Context, months int, startIndex string) error {
	now := h.Now()
	index := engine.MustParseDecimal(startIndex)
	official := engine.MustParseDecimal("820")
	parallel := engine.MustParseDecimal("1100")

	step := engine.MustParseDecimal("0.94")     // purchasing power decays ~6%/month
	rateStep := engine.MustParseDecimal("1.04") // the peso price of USD climbs

	for i := months - 1; i >= 0; i-- {
		month := engine.MonthKeyOf(engine.AddMonths(now, -i))
		ind := engine.Indicator{
			Month:                month,
			InflationRate:        engine.MustParseDecimal("6.0"),
			PurchasingPowerIndex: index,
			USDOfficialRate:      official,
			USDParallelRate:      parallel,
		}
		if err := h.Store.PutIndicator(ctx, ind); err != nil {
			return err
		}
		index = index.Mul(step)
		official = official.Mul(rateStep)
		parallel = parallel.Mul(rateStep)
	}
	return nil
}

func (h *Handler) loadEssentialsScenario(ctx context.Context) error {
	now := h.Now()
	start := engine.AddMonths(now, -6).Format("2006-01")

	if err := h.Store.PutInstrument(ctx, engine.Instrument{
		ID: "visa", Name: "Visa", Kind: engine.KindCredit, ClosingDay: 10,
	}); err != nil {
		return err
	}
	if err := h.Store.PutInstrument(ctx, engine.Instrument{
		ID: "debit", Name: "Debit Card", Kind: engine.KindDebit,
	}); err != nil {
		return err
	}

	if err := h.seedObligations(ctx, []factory.ObligationJSON{
		{ID: "rent", Name: "Rent", Amount: "250000", Frequency: "monthly", IsRecurring: true, RecurringDay: 5, Date: start + "-01", CategoryID: "housing"},
		{ID: "internet", Name: "Internet", Amount: "18000", Frequency: "monthly", IsRecurring: true, RecurringDay: 12, Date: start + "-01", CategoryID: "utilities", InstrumentID: "visa"},
		{ID: "gym", Name: "Gym", Amount: "5000", Frequency: "weekly", IsRecurring: true, RecurringDay: 1, Date: start + "-01", CategoryID: "health", InstrumentID: "debit"},
		{ID: "salary", Name: "Salary", Amount: "1500000", Frequency: "monthly", Direction: "income", IsRecurring: true, RecurringDay: 1, Date: start + "-01", CategoryID: "work"},
	}); err != nil {
		return err
	}

	if err := h.seedIndicators(ctx, 7, "100"); err != nil {
		return err
	}

	// Confirm last month's instances and settle them, so the current month
	// shows a full pending list while history has concrete entries.
	lastMonth := engine.MonthKeyOf(engine.AddMonths(now, -1))
	records, err := h.Store.Obligations(ctx)
	if err != nil {
		return err
	}
	_, muts := h.Recurrence.ConfirmAll(records, lastMonth, now)
	if err := h.Store.Apply(ctx, muts); err != nil {
		return err
	}

	records, err = h.Store.Obligations(ctx)
	if err != nil {
		return err
	}
	settlements, err := h.Store.Settlements(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if !rec.IsInstance() {
			continue
		}
		settleMuts, err := h.Recurrence.MarkSettled(records, settlements, rec.ID, rec.Date)
		if err != nil {
			return err
		}
		if err := h.Store.Apply(ctx, settleMuts); err != nil {
			return err
		}
	}

	// A quarterly one-off and a yearly subscription round out the mix.
	return h.seedObligations(ctx, []factory.ObligationJSON{
		{ID: "insurance", Name: "Home Insurance", Amount: "45000", Frequency: "quarterly", IsRecurring: true, RecurringDay: 15, Date: start + "-01", CategoryID: "housing"},
		{ID: "domain", Name: "Domain Renewal", Amount: "15", Currency: "USD", Frequency: "yearly", IsRecurring: true, RecurringDay: 20, Date: start + "-01", CategoryID: "services", InstrumentID: "visa"},
	})
}

func (h *Handler) loadCreditCycleScenario(ctx context.Context) error {
	now := h.Now()
	month := now.Format("2006-01")

	if err := h.Store.PutInstrument(ctx, engine.Instrument{
		ID: "amex", Name: "Amex", Kind: engine.KindCredit, ClosingDay: 10,
	}); err != nil {
		return err
	}

	// Two purchases straddling the closing day: the first bills this
	// month, the second rolls into the next statement.
	if err := h.seedObligations(ctx, []factory.ObligationJSON{
		{ID: "groceries", Name: "Groceries", Amount: "82000", Date: month + "-08", CategoryID: "food", InstrumentID: "amex"},
		{ID: "electronics", Name: "Headphones", Amount: "120000", Date: month + "-12", CategoryID: "leisure", InstrumentID: "amex"},
		{ID: "pharmacy", Name: "Pharmacy", Amount: "9500", Date: month + "-10", CategoryID: "health", InstrumentID: "amex"},
	}); err != nil {
		return err
	}

	return h.seedIndicators(ctx, 3, "100")
}

func (h *Handler) loadInflationScenario(ctx context.Context) error {
	now := h.Now()

	// A 12-installment TV plan, 4 installments already paid.
	raws := make([]factory.ObligationJSON, 0, 4)
	for i := 0; i < 4; i++ {
		raws = append(raws, factory.ObligationJSON{
			ID:         fmt.Sprintf("tv-installment-%d", i+1),
			Name:       "TV installment",
			Amount:     "100000",
			Date:       engine.AddMonths(now, i-4).Format("2006-01") + "-15",
			CategoryID: "home",
			Tags:       []string{"installments", "tv"},
		})
	}
	if err := h.seedObligations(ctx, raws); err != nil {
		return err
	}

	if err := h.Store.PutBudget(ctx, engine.Budget{
		ID:          "quarter",
		Name:        "Quarterly essentials",
		PeriodStart: engine.AddMonths(now, -2),
		PeriodEnd:   now.Add(24 * time.Hour * 30),
		Allocations: []engine.Allocation{
			{CategoryID: "home", Amount: engine.MustParseDecimal("500000"), Currency: engine.ARS},
		},
	}); err != nil {
		return err
	}

	return h.seedIndicators(ctx, 12, "100")
}
