/*
handlers.go - HTTP API handlers for the obligation and valuation engines

PURPOSE:
  Exposes the finance engines via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Obligations:
    GET    /api/obligations               List all records
    POST   /api/obligations               Create record
    GET    /api/obligations/{id}          Get record
    PUT    /api/obligations/{id}          Replace record
    DELETE /api/obligations/{id}          Delete record
    POST   /api/obligations/{id}/settle   Mark settled
    DELETE /api/obligations/{id}/settle   Undo settlement

  Recurrence:
    GET    /api/recurrence/pending        Pending suggestions for a month
    POST   /api/recurrence/confirm        Confirm one template
    POST   /api/recurrence/confirm-all    Confirm every pending template
    POST   /api/recurrence/snooze         Snooze a template
    GET    /api/recurrence/due-soon       Upcoming reminders
    GET    /api/recurrence/duplicates     Possible duplicate entries

  Accrual:
    GET    /api/accrual/total             Period total
    GET    /api/accrual/monthly           Per-month breakdown
    GET    /api/budgets/{id}/status       Budget allocations vs accrued

  Valuation:
    POST   /api/valuation/plan            Analyze an installment plan
    POST   /api/valuation/projection      Simulate future installments
    POST   /api/valuation/compare         Cash vs installments decision

ARCHITECTURE:
  Handler holds the store and the three engines. Every request loads the
  record collections it needs from the store, runs a pure engine call, and
  atomically applies the returned mutations. The engines never see the
  store.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (factory parsers, field errors)
  3. Load records, call engine
  4. Apply mutations
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Conflict (month already confirmed)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. Single-user deployment.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/accrual"
	"github.com/warp/finance-engine/engine"
	"github.com/warp/finance-engine/factory"
	"github.com/warp/finance-engine/recurrence"
	"github.com/warp/finance-engine/valuation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      engine.RecordStore
	Recurrence *recurrence.Engine
	Valuation  *valuation.Engine
	Normalizer engine.Normalizer

	// Now is the clock; override in tests for deterministic "today".
	Now func() time.Time

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and default engine
// configurations.
func NewHandler(store engine.RecordStore) *Handler {
	return &Handler{
		Store:      store,
		Recurrence: recurrence.New(recurrence.DefaultConfig()),
		Valuation:  valuation.New(valuation.DefaultPolicy()),
		Normalizer: engine.DefaultNormalizer(),
		Now:        time.Now,
	}
}

// instrumentMap loads instruments keyed by id for effective-month lookups.
func (h *Handler) instrumentMap(ctx context.Context) (map[engine.InstrumentID]engine.Instrument, error) {
	list, err := h.Store.Instruments(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[engine.InstrumentID]engine.Instrument, len(list))
	for _, ins := range list {
		out[ins.ID] = ins
	}
	return out, nil
}

// indicatorTable loads the full indicator series indexed by month.
func (h *Handler) indicatorTable(ctx context.Context) (engine.IndicatorTable, error) {
	series, err := h.Store.Indicators(ctx)
	if err != nil {
		return nil, err
	}
	return engine.NewIndicatorTable(series), nil
}

// aggregator builds a period aggregator whose currency converter uses the
// latest month that has a USD rate. Parallel rate wins over official when
// both exist; with no rates at all the converter passes amounts through.
func (h *Handler) aggregator(ctx context.Context) (*accrual.Aggregator, error) {
	series, err := h.Store.Indicators(ctx)
	if err != nil {
		return nil, err
	}

	rates := make(map[engine.RatePair]decimal.Decimal)
	for _, ind := range series { // sorted by month: later entries win
		rate := ind.USDParallelRate
		if !rate.IsPositive() {
			rate = ind.USDOfficialRate
		}
		if rate.IsPositive() {
			rates[engine.RatePair{From: engine.USD, To: engine.ARS}] = rate
		}
	}
	return accrual.New(h.Normalizer, engine.TableConverter(rates)), nil
}

// =============================================================================
// OBLIGATION HANDLERS
// =============================================================================

// ListObligations returns all obligation records.
func (h *Handler) ListObligations(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.Obligations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list obligations", err)
		return
	}

	dtos := make([]ObligationDTO, len(records))
	for i, rec := range records {
		dtos[i] = obligationDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetObligation returns a single record.
func (h *Handler) GetObligation(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))

	rec, err := h.Store.Obligation(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get obligation", err)
		return
	}
	writeJSON(w, http.StatusOK, obligationDTO(rec))
}

// CreateObligation creates a record from its JSON wire form.
func (h *Handler) CreateObligation(w http.ResponseWriter, r *http.Request) {
	body := json.NewDecoder(r.Body)
	var raw factory.ObligationJSON
	if err := body.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := factory.ObligationFromJSON(raw)
	if err != nil {
		writeEngineError(w, "Invalid obligation", err)
		return
	}

	if err := h.Store.PutObligation(r.Context(), rec); err != nil {
		writeEngineError(w, "Failed to create obligation", err)
		return
	}
	writeJSON(w, http.StatusCreated, obligationDTO(rec))
}

// UpdateObligation replaces a record. The URL id wins over any id in the
// body.
func (h *Handler) UpdateObligation(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))

	existing, err := h.Store.Obligation(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get obligation", err)
		return
	}

	var raw factory.ObligationJSON
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	raw.ID = string(id)

	rec, err := factory.ObligationFromJSON(raw)
	if err != nil {
		writeEngineError(w, "Invalid obligation", err)
		return
	}

	// Provenance and settlement are engine-managed state, not client input.
	rec.Recurrence = existing.Recurrence
	rec.Settlement = existing.Settlement

	if err := h.Store.PutObligation(r.Context(), rec); err != nil {
		writeEngineError(w, "Failed to update obligation", err)
		return
	}
	writeJSON(w, http.StatusOK, obligationDTO(rec))
}

// DeleteObligation removes a record. Instances of a deleted template stay.
func (h *Handler) DeleteObligation(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteObligation(r.Context(), id); err != nil {
		writeEngineError(w, "Failed to delete obligation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SettleObligation marks a record settled. Repeated calls are no-ops.
func (h *Handler) SettleObligation(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))
	ctx := r.Context()

	var req SettleRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	settledAt, err := parseDate(req.SettledAt, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settled_at format (use YYYY-MM-DD)", err)
		return
	}

	records, settlements, err := h.loadLedger(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	muts, err := h.Recurrence.MarkSettled(records, settlements, id, settledAt)
	if err != nil {
		writeEngineError(w, "Failed to settle obligation", err)
		return
	}
	if err := h.Store.Apply(ctx, muts); err != nil {
		writeEngineError(w, "Failed to persist settlement", err)
		return
	}

	rec, err := h.Store.Obligation(ctx, id)
	if err != nil {
		writeEngineError(w, "Failed to reload obligation", err)
		return
	}
	writeJSON(w, http.StatusOK, obligationDTO(rec))
}

// UnsettleObligation undoes a settlement. Repeated calls are no-ops.
func (h *Handler) UnsettleObligation(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))
	ctx := r.Context()

	records, settlements, err := h.loadLedger(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	muts, err := h.Recurrence.UnmarkSettled(records, settlements, id)
	if err != nil {
		writeEngineError(w, "Failed to unsettle obligation", err)
		return
	}
	if err := h.Store.Apply(ctx, muts); err != nil {
		writeEngineError(w, "Failed to persist unsettlement", err)
		return
	}

	rec, err := h.Store.Obligation(ctx, id)
	if err != nil {
		writeEngineError(w, "Failed to reload obligation", err)
		return
	}
	writeJSON(w, http.StatusOK, obligationDTO(rec))
}

func (h *Handler) loadLedger(ctx context.Context) ([]engine.Obligation, []engine.Settlement, error) {
	records, err := h.Store.Obligations(ctx)
	if err != nil {
		return nil, nil, err
	}
	settlements, err := h.Store.Settlements(ctx)
	if err != nil {
		return nil, nil, err
	}
	return records, settlements, nil
}

// =============================================================================
// INSTRUMENT HANDLERS
// =============================================================================

// ListInstruments returns all payment instruments.
func (h *Handler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.Instruments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list instruments", err)
		return
	}

	dtos := make([]InstrumentDTO, len(list))
	for i, ins := range list {
		dtos[i] = instrumentDTO(ins)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateInstrument creates a payment instrument.
func (h *Handler) CreateInstrument(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ins, err := factory.ParseInstrument(raw)
	if err != nil {
		writeEngineError(w, "Invalid instrument", err)
		return
	}
	if err := h.Store.PutInstrument(r.Context(), ins); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create instrument", err)
		return
	}
	writeJSON(w, http.StatusCreated, instrumentDTO(ins))
}

// =============================================================================
// INDICATOR HANDLERS
// =============================================================================

// ListIndicators returns the full indicator series, sorted by month.
func (h *Handler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	series, err := h.Store.Indicators(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list indicators", err)
		return
	}

	dtos := make([]IndicatorDTO, len(series))
	for i, ind := range series {
		dtos[i] = indicatorDTO(ind)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PutIndicators upserts a batch of monthly indicators.
func (h *Handler) PutIndicators(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	series, err := factory.ParseIndicatorSeries(raw)
	if err != nil {
		writeEngineError(w, "Invalid indicator series", err)
		return
	}

	for _, ind := range series {
		if err := h.Store.PutIndicator(r.Context(), ind); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save indicators", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": len(series)})
}

// =============================================================================
// RECURRENCE HANDLERS
// =============================================================================

// ListPending returns the pending suggestions for a month
// (?month=YYYY-MM, default: the current month).
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	today := h.Now()
	month, err := h.monthParam(r, engine.MonthKeyOf(today))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
		return
	}

	records, err := h.Store.Obligations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	pending := h.Recurrence.PendingForMonth(records, month, today)
	dtos := make([]SuggestionDTO, len(pending))
	for i, s := range pending {
		dtos[i] = suggestionDTO(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": string(month), "pending": dtos})
}

// ConfirmTemplate materializes one template's instance for a month.
func (h *Handler) ConfirmTemplate(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	month, err := engine.ParseMonthKey(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
		return
	}

	ov, err := overridesFromRequest(req)
	if err != nil {
		writeEngineError(w, "Invalid overrides", err)
		return
	}

	ctx := r.Context()
	records, err := h.Store.Obligations(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	instance, muts, err := h.Recurrence.Confirm(records, engine.ObligationID(req.TemplateID), month, ov, h.Now())
	if err != nil {
		writeEngineError(w, "Failed to confirm template", err)
		return
	}
	if err := h.Store.Apply(ctx, muts); err != nil {
		writeEngineError(w, "Failed to persist confirmation", err)
		return
	}
	writeJSON(w, http.StatusCreated, obligationDTO(instance))
}

// ConfirmAllTemplates confirms every pending suggestion for a month with
// default values. Safe to repeat.
func (h *Handler) ConfirmAllTemplates(w http.ResponseWriter, r *http.Request) {
	var req ConfirmAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	month, err := engine.ParseMonthKey(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
		return
	}

	ctx := r.Context()
	records, err := h.Store.Obligations(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	count, muts := h.Recurrence.ConfirmAll(records, month, h.Now())
	if err := h.Store.Apply(ctx, muts); err != nil {
		writeEngineError(w, "Failed to persist confirmations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": string(month), "confirmed": count})
}

// SnoozeTemplate suppresses a template's suggestions for N days.
func (h *Handler) SnoozeTemplate(w http.ResponseWriter, r *http.Request) {
	var req SnoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	records, err := h.Store.Obligations(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	tmpl, muts, err := h.Recurrence.Snooze(records, engine.ObligationID(req.TemplateID), req.Days, h.Now())
	if err != nil {
		writeEngineError(w, "Failed to snooze template", err)
		return
	}
	if err := h.Store.Apply(ctx, muts); err != nil {
		writeEngineError(w, "Failed to persist snooze", err)
		return
	}
	writeJSON(w, http.StatusOK, obligationDTO(tmpl))
}

// ListDueSoon returns this month's pending suggestions falling inside each
// template's reminder window.
func (h *Handler) ListDueSoon(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.Obligations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	due := h.Recurrence.DueSoon(records, h.Now())
	dtos := make([]SuggestionDTO, len(due))
	for i, s := range due {
		dtos[i] = suggestionDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListDuplicates warns about records that look like double entries for a
// template (?template_id=...&date=YYYY-MM-DD).
func (h *Handler) ListDuplicates(w http.ResponseWriter, r *http.Request) {
	templateID := engine.ObligationID(r.URL.Query().Get("template_id"))
	if templateID == "" {
		writeError(w, http.StatusBadRequest, "template_id is required", nil)
		return
	}
	date, err := parseDate(r.URL.Query().Get("date"), h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	ctx := r.Context()
	records, err := h.Store.Obligations(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}
	instruments, err := h.instrumentMap(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load instruments", err)
		return
	}

	dupes := h.Recurrence.FindDuplicates(records, instruments, templateID, date)
	dtos := make([]ObligationDTO, len(dupes))
	for i, d := range dupes {
		dtos[i] = obligationDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ACCRUAL HANDLERS
// =============================================================================

// GetAccrualTotal returns the accrued total for a period
// (?from=YYYY-MM-DD&to=YYYY-MM-DD&category_id=&direction=&currency=).
func (h *Handler) GetAccrualTotal(w http.ResponseWriter, r *http.Request) {
	in, agg, err := h.accrualInput(r)
	if err != nil {
		writeEngineError(w, "Invalid accrual query", err)
		return
	}

	total := agg.AccruedAmount(in)
	writeJSON(w, http.StatusOK, AccrualTotalDTO{
		From:     in.Period.Start.Format("2006-01-02"),
		To:       in.Period.End.Format("2006-01-02"),
		Total:    money(total),
		Currency: string(in.Target),
	})
}

// GetAccrualMonthly returns the per-month breakdown for the same query.
func (h *Handler) GetAccrualMonthly(w http.ResponseWriter, r *http.Request) {
	in, agg, err := h.accrualInput(r)
	if err != nil {
		writeEngineError(w, "Invalid accrual query", err)
		return
	}

	totals := agg.MonthlyTotals(in)
	dtos := make([]MonthlyTotalDTO, 0, len(totals))
	for _, month := range in.Period.Months() {
		dtos = append(dtos, MonthlyTotalDTO{Month: string(month), Total: money(totals[month])})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// accrualInput assembles an accrual query from URL parameters.
func (h *Handler) accrualInput(r *http.Request) (accrual.Input, *accrual.Aggregator, error) {
	q := r.URL.Query()

	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		return accrual.Input{}, nil, engine.NewFieldError("from", "must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		return accrual.Input{}, nil, engine.NewFieldError("to", "must be YYYY-MM-DD")
	}
	period, err := engine.NewPeriod(from, to)
	if err != nil {
		return accrual.Input{}, nil, err
	}

	target := engine.Currency(q.Get("currency"))
	if target == "" {
		target = engine.ARS
	}

	ctx := r.Context()
	records, err := h.Store.Obligations(ctx)
	if err != nil {
		return accrual.Input{}, nil, err
	}
	instruments, err := h.instrumentMap(ctx)
	if err != nil {
		return accrual.Input{}, nil, err
	}
	agg, err := h.aggregator(ctx)
	if err != nil {
		return accrual.Input{}, nil, err
	}

	return accrual.Input{
		Period:      period,
		Records:     records,
		Instruments: instruments,
		CategoryID:  engine.CategoryID(q.Get("category_id")),
		Direction:   engine.Direction(q.Get("direction")),
		Target:      target,
	}, agg, nil
}

// GetBudgetStatus returns each allocation of a budget with its accrued
// actuals over the budget period.
func (h *Handler) GetBudgetStatus(w http.ResponseWriter, r *http.Request) {
	id := engine.BudgetID(chi.URLParam(r, "id"))
	ctx := r.Context()

	budget, err := h.Store.Budget(ctx, id)
	if err != nil {
		writeEngineError(w, "Failed to get budget", err)
		return
	}

	records, err := h.Store.Obligations(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}
	instruments, err := h.instrumentMap(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load instruments", err)
		return
	}
	agg, err := h.aggregator(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build aggregator", err)
		return
	}

	statuses := agg.CompareBudget(budget, records, instruments)
	dtos := make([]CategoryStatusDTO, len(statuses))
	for i, s := range statuses {
		dtos[i] = categoryStatusDTO(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"budget_id": string(budget.ID),
		"name":      budget.Name,
		"statuses":  dtos,
	})
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

// ListBudgets returns all budgets.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.Store.Budgets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list budgets", err)
		return
	}

	dtos := make([]BudgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = budgetDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBudget creates a budget from its JSON wire form.
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	budget, err := factory.ParseBudget(raw)
	if err != nil {
		writeEngineError(w, "Invalid budget", err)
		return
	}
	if err := h.Store.PutBudget(r.Context(), budget); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create budget", err)
		return
	}
	writeJSON(w, http.StatusCreated, budgetDTO(budget))
}

// =============================================================================
// VALUATION HANDLERS
// =============================================================================

// AnalyzePlan runs the full valuation of an installment plan.
func (h *Handler) AnalyzePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := h.planInput(req)
	if err != nil {
		writeEngineError(w, "Invalid plan", err)
		return
	}

	indicators, err := h.indicatorTable(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load indicators", err)
		return
	}

	analysis, err := h.Valuation.AnalyzePlan(in, indicators)
	if err != nil {
		writeEngineError(w, "Failed to analyze plan", err)
		return
	}
	writeJSON(w, http.StatusOK, planAnalysisDTO(analysis))
}

func (h *Handler) planInput(req PlanRequest) (valuation.PlanInput, error) {
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return valuation.PlanInput{}, engine.NewFieldError("total_amount", "must be a decimal string")
	}
	installment, err := decimal.NewFromString(req.InstallmentAmount)
	if err != nil {
		return valuation.PlanInput{}, engine.NewFieldError("installment_amount", "must be a decimal string")
	}
	purchase, err := time.Parse("2006-01-02", req.PurchaseDate)
	if err != nil {
		return valuation.PlanInput{}, engine.NewFieldError("purchase_date", "must be YYYY-MM-DD")
	}
	first, err := time.Parse("2006-01-02", req.FirstPaymentDate)
	if err != nil {
		return valuation.PlanInput{}, engine.NewFieldError("first_payment_date", "must be YYYY-MM-DD")
	}
	today, err := parseDate(req.Today, h.Now())
	if err != nil {
		return valuation.PlanInput{}, engine.NewFieldError("today", "must be YYYY-MM-DD")
	}

	return valuation.PlanInput{
		TotalAmount:       total,
		InstallmentAmount: installment,
		TotalInstallments: req.TotalInstallments,
		PurchaseDate:      purchase,
		FirstPaymentDate:  first,
		Today:             today,
	}, nil
}

// ProjectPayments simulates the remaining installments under an assumed
// monthly inflation rate.
func (h *Handler) ProjectPayments(w http.ResponseWriter, r *http.Request) {
	var req ProjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeEngineError(w, "Invalid projection", engine.NewFieldError("amount", "must be a decimal string"))
		return
	}
	inflation, err := decimal.NewFromString(req.MonthlyInflationPct)
	if err != nil {
		writeEngineError(w, "Invalid projection", engine.NewFieldError("monthly_inflation_pct", "must be a decimal string"))
		return
	}
	next, err := time.Parse("2006-01-02", req.NextDate)
	if err != nil {
		writeEngineError(w, "Invalid projection", engine.NewFieldError("next_date", "must be YYYY-MM-DD"))
		return
	}

	payments := h.Valuation.ProjectFuturePayments(req.RemainingInstallments, amount, next, inflation)
	dtos := make([]ProjectedPaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = ProjectedPaymentDTO{
			Month:           string(p.Month),
			Nominal:         money(p.Nominal),
			ProjectedReal:   money(p.ProjectedReal),
			LiquefactionPct: money(p.LiquefactionPct),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CompareFinancing weighs a cash price against a financed total.
func (h *Handler) CompareFinancing(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cash, err := decimal.NewFromString(req.CashPrice)
	if err != nil {
		writeEngineError(w, "Invalid comparison", engine.NewFieldError("cash_price", "must be a decimal string"))
		return
	}
	financed, err := decimal.NewFromString(req.FinancedTotal)
	if err != nil {
		writeEngineError(w, "Invalid comparison", engine.NewFieldError("financed_total", "must be a decimal string"))
		return
	}
	inflation, err := decimal.NewFromString(req.MonthlyInflationPct)
	if err != nil {
		writeEngineError(w, "Invalid comparison", engine.NewFieldError("monthly_inflation_pct", "must be a decimal string"))
		return
	}

	decision, err := h.Valuation.CompareCashVsInstallments(cash, financed, req.Installments, inflation)
	if err != nil {
		writeEngineError(w, "Failed to compare", err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionDTO{
		Recommendation: string(decision.Recommendation),
		CashPrice:      money(decision.CashPrice),
		FinancedTotal:  money(decision.FinancedTotal),
		FinancedReal:   money(decision.FinancedReal),
		SavingsPct:     money(decision.SavingsPct),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) monthParam(r *http.Request, fallback engine.MonthKey) (engine.MonthKey, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return fallback, nil
	}
	return engine.ParseMonthKey(raw)
}

func overridesFromRequest(req ConfirmRequest) (recurrence.Overrides, error) {
	var ov recurrence.Overrides
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return ov, engine.NewFieldError("amount", "must be a decimal string")
		}
		ov.Amount = &amount
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return ov, engine.NewFieldError("date", "must be YYYY-MM-DD")
		}
		ov.Date = &date
	}
	if req.Currency != nil {
		currency := engine.Currency(*req.Currency)
		ov.Currency = &currency
	}
	return ov, nil
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrAlreadyConfirmed):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
