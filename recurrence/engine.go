/*
Package recurrence maintains the template-to-instance lifecycle for
recurring obligations.

PURPOSE:
  Recurring obligations are stored once as templates ("rent, monthly, day 5")
  and materialized into concrete monthly instances when the user confirms
  them. This package detects which templates still lack an instance for a
  month, proposes suggested amounts and dates, supports deferral (snooze),
  confirms instances with provenance, tracks the paid/unpaid lifecycle, and
  flags likely double entries.

STATE MACHINE per (template, month):
  Pending   -> template active, no instance for the month, no active snooze
  Snoozed   -> a future snoozed-until date suppresses Pending
  Confirmed -> exactly one instance exists, linked by RecurrenceState
  Settled   -> confirmed instance additionally has a Settlement record

PURITY & IDEMPOTENCY:
  Every entry point takes the record collections and an explicit "today";
  nothing reads a global clock or a store. Operations that change records
  return engine.Mutations for the caller to persist. Confirm and settle are
  at-most-once: Confirm surfaces AlreadyConfirmedError, ConfirmAll and
  MarkSettled skip silently ("nothing to do" is not a failure), and the
  store's (template, month) uniqueness index backstops double-submitted
  batches.

SUGGESTION HEURISTIC:
  The suggested amount is the average of the last three confirmed instance
  amounts when any exist, otherwise the template's base amount. This tracks
  amount drift in variable bills (utilities) without any forecasting
  machinery. The window is tunable policy, not a correctness guarantee.

EXAMPLE:
  eng := recurrence.New(recurrence.DefaultConfig())
  pending := eng.PendingForMonth(records, "2024-03", today)
  for _, s := range pending {
      _, muts, err := eng.Confirm(records, s.Template.ID, "2024-03", recurrence.Overrides{}, today)
      ...
      store.Apply(ctx, muts)
  }

SEE ALSO:
  - engine/types.go: Obligation, RecurrenceState, SettlementState
  - engine/mutation.go: the diffs returned here
  - accrual/: consumes the instances this package creates
*/
package recurrence

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/engine"
)

// =============================================================================
// CONFIGURATION - Tunable policy knobs
// =============================================================================

// Config gathers the heuristic knobs. The defaults reproduce the historical
// behavior; none of them is a load-bearing correctness guarantee.
type Config struct {
	// AverageWindow is how many recent confirmed instances feed the
	// suggested-amount average.
	AverageWindow int

	// DefaultReminderDays is the due-soon window for templates that don't
	// set their own.
	DefaultReminderDays int
}

// DefaultConfig returns the standard policy: average the last 3 instances,
// remind 3 days ahead.
func DefaultConfig() Config {
	return Config{AverageWindow: 3, DefaultReminderDays: 3}
}

// Engine implements the recurrence lifecycle over caller-supplied records.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.AverageWindow <= 0 {
		cfg.AverageWindow = 3
	}
	if cfg.DefaultReminderDays <= 0 {
		cfg.DefaultReminderDays = 3
	}
	return &Engine{cfg: cfg}
}

// =============================================================================
// SUGGESTIONS - Pending templates for a month
// =============================================================================

// Suggestion proposes an instance for a template that has none this month.
type Suggestion struct {
	Template        engine.Obligation
	SuggestedAmount decimal.Decimal
	SuggestedDate   time.Time
}

// PendingForMonth returns a suggestion for every template that is active in
// the month, has no confirmed instance for it, and is not snoozed past
// today. Results are ordered by suggested date, then template id.
func (e *Engine) PendingForMonth(records []engine.Obligation, month engine.MonthKey, today time.Time) []Suggestion {
	confirmed := confirmedIndex(records)
	var out []Suggestion

	for _, tmpl := range records {
		if !tmpl.IsTemplate() {
			continue
		}
		if tmpl.Date.After(month.Last()) {
			continue // template not active yet
		}
		if confirmed[instanceKey{tmpl.ID, month}] {
			continue
		}
		if isSnoozed(tmpl, today) {
			continue
		}
		out = append(out, Suggestion{
			Template:        tmpl,
			SuggestedAmount: e.suggestedAmount(tmpl, records),
			SuggestedDate:   engine.ClampDayToMonth(month, tmpl.RecurringDay),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SuggestedDate.Equal(out[j].SuggestedDate) {
			return out[i].Template.ID < out[j].Template.ID
		}
		return out[i].SuggestedDate.Before(out[j].SuggestedDate)
	})
	return out
}

// DueSoon filters this month's pending suggestions down to those whose
// suggested date falls within the template's reminder window from today.
func (e *Engine) DueSoon(records []engine.Obligation, today time.Time) []Suggestion {
	pending := e.PendingForMonth(records, engine.MonthKeyOf(today), today)

	var due []Suggestion
	for _, s := range pending {
		within := e.cfg.DefaultReminderDays
		if s.Template.Recurrence != nil && s.Template.Recurrence.ReminderDays > 0 {
			within = s.Template.Recurrence.ReminderDays
		}
		horizon := today.AddDate(0, 0, within)
		if !s.SuggestedDate.Before(truncateDay(today)) && !s.SuggestedDate.After(horizon) {
			due = append(due, s)
		}
	}
	return due
}

// suggestedAmount averages the most recent confirmed instance amounts for
// the template (up to the configured window), falling back to the
// template's base amount when none exist.
func (e *Engine) suggestedAmount(tmpl engine.Obligation, records []engine.Obligation) decimal.Decimal {
	var history []engine.Obligation
	for _, r := range records {
		if r.IsInstance() && r.Recurrence.TemplateID == tmpl.ID {
			history = append(history, r)
		}
	}
	if len(history) == 0 {
		return tmpl.Amount
	}

	sort.Slice(history, func(i, j int) bool { return history[i].Date.After(history[j].Date) })
	if len(history) > e.cfg.AverageWindow {
		history = history[:e.cfg.AverageWindow]
	}

	sum := decimal.Zero
	for _, h := range history {
		sum = sum.Add(h.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(history))))
}

// =============================================================================
// CONFIRM - Materialize a template into a concrete instance
// =============================================================================

// Overrides are the optional user-supplied values for a confirmation.
// Nil fields fall back to the suggestion defaults.
type Overrides struct {
	Amount   *decimal.Decimal
	Date     *time.Time
	Currency *engine.Currency
}

// Confirm creates the instance for (templateID, month).
//
// Fails with engine.ErrTemplateNotFound when the template is missing,
// *engine.AlreadyConfirmedError when the month already has its instance,
// and a field error for a non-positive amount override. The instance copies
// the template's non-identity fields, strips the recurrence flags, and
// records provenance in RecurrenceState.
func (e *Engine) Confirm(records []engine.Obligation, templateID engine.ObligationID, month engine.MonthKey, ov Overrides, today time.Time) (engine.Obligation, []engine.Mutation, error) {
	tmpl, ok := findTemplate(records, templateID)
	if !ok {
		return engine.Obligation{}, nil, engine.ErrTemplateNotFound
	}
	if confirmedIndex(records)[instanceKey{templateID, month}] {
		return engine.Obligation{}, nil, &engine.AlreadyConfirmedError{TemplateID: templateID, Month: month}
	}

	amount := e.suggestedAmount(tmpl, records)
	if ov.Amount != nil {
		if !ov.Amount.IsPositive() {
			return engine.Obligation{}, nil, engine.NewFieldError("amount", "must be positive")
		}
		amount = *ov.Amount
	}

	date := engine.ClampDayToMonth(month, tmpl.RecurringDay)
	if ov.Date != nil {
		date = *ov.Date
	}

	currency := tmpl.Currency
	if ov.Currency != nil {
		currency = *ov.Currency
	}

	instance := engine.Obligation{
		ID:           engine.ObligationID(uuid.NewString()),
		Name:         tmpl.Name,
		Amount:       amount,
		Currency:     currency,
		Frequency:    engine.FreqOnce, // a concrete instance is money that moved once
		Direction:    tmpl.Direction,
		IsRecurring:  false,
		Date:         date,
		CategoryID:   tmpl.CategoryID,
		InstrumentID: tmpl.InstrumentID,
		Tags:         append([]string(nil), tmpl.Tags...),
		Recurrence:   &engine.RecurrenceState{TemplateID: tmpl.ID, Month: month},
	}

	return instance, []engine.Mutation{engine.CreateObligation(instance)}, nil
}

// ConfirmAll confirms every currently pending suggestion for the month with
// default amounts and dates. Already-confirmed or snoozed templates are
// skipped, not errored, so the call is safe to repeat.
func (e *Engine) ConfirmAll(records []engine.Obligation, month engine.MonthKey, today time.Time) (int, []engine.Mutation) {
	pending := e.PendingForMonth(records, month, today)

	var muts []engine.Mutation
	working := records
	for _, s := range pending {
		inst, m, err := e.Confirm(working, s.Template.ID, month, Overrides{}, today)
		if err != nil {
			continue // raced with a direct confirm; skipping keeps the call idempotent
		}
		muts = append(muts, m...)
		working = append(working, inst) // guard against duplicate templates in the input
	}
	return len(muts), muts
}

// =============================================================================
// SNOOZE - Defer a template's pending status
// =============================================================================

// Snooze suppresses the template's pending suggestion until today+days.
// A prior snooze is replaced: last write wins.
func (e *Engine) Snooze(records []engine.Obligation, templateID engine.ObligationID, days int, today time.Time) (engine.Obligation, []engine.Mutation, error) {
	if days <= 0 {
		return engine.Obligation{}, nil, engine.NewFieldError("days", "must be positive")
	}
	tmpl, ok := findTemplate(records, templateID)
	if !ok {
		return engine.Obligation{}, nil, engine.ErrTemplateNotFound
	}

	state := tmpl.Recurrence.Clone()
	if state == nil {
		state = &engine.RecurrenceState{}
	}
	state.SnoozedUntil = truncateDay(today).AddDate(0, 0, days)
	tmpl.Recurrence = state

	return tmpl, []engine.Mutation{engine.UpdateObligation(tmpl)}, nil
}

// =============================================================================
// SETTLEMENT - Paid/received lifecycle, idempotent
// =============================================================================

// MarkSettled records the payment/receipt for an obligation. A second call
// for an already-settled obligation is a no-op returning no mutations.
func (e *Engine) MarkSettled(records []engine.Obligation, settlements []engine.Settlement, obligationID engine.ObligationID, settledAt time.Time) ([]engine.Mutation, error) {
	obl, ok := findObligation(records, obligationID)
	if !ok {
		return nil, engine.ErrObligationNotFound
	}
	if obl.IsSettled() || hasSettlement(settlements, obligationID) {
		return nil, nil // already settled: nothing to do
	}

	obl.Settlement = &engine.SettlementState{SettledAt: settledAt}
	return []engine.Mutation{
		engine.PutSettlement(engine.Settlement{
			ObligationID: obligationID,
			Amount:       obl.Amount,
			Currency:     obl.Currency,
			SettledAt:    settledAt,
		}),
		engine.UpdateObligation(obl),
	}, nil
}

// UnmarkSettled undoes a settlement. A no-op if the obligation isn't
// settled.
func (e *Engine) UnmarkSettled(records []engine.Obligation, settlements []engine.Settlement, obligationID engine.ObligationID) ([]engine.Mutation, error) {
	obl, ok := findObligation(records, obligationID)
	if !ok {
		return nil, engine.ErrObligationNotFound
	}
	if !obl.IsSettled() && !hasSettlement(settlements, obligationID) {
		return nil, nil
	}

	obl.Settlement = nil
	return []engine.Mutation{
		engine.DeleteSettlement(obligationID),
		engine.UpdateObligation(obl),
	}, nil
}

// =============================================================================
// DUPLICATE DETECTION - Warn before double entry, never auto-merge
// =============================================================================

// FindDuplicates returns concrete records in the same effective month as
// `date` that either carry the template's provenance or match its name
// (case-insensitive, whitespace-trimmed) on a non-recurring transaction.
// Callers use this to warn the user; nothing is merged automatically.
func (e *Engine) FindDuplicates(records []engine.Obligation, instruments map[engine.InstrumentID]engine.Instrument, templateID engine.ObligationID, date time.Time) []engine.Obligation {
	tmpl, hasTemplate := findTemplate(records, templateID)
	targetMonth := engine.MonthKeyOf(date)

	var dups []engine.Obligation
	for _, r := range records {
		if r.IsTemplate() || r.ID == templateID {
			continue
		}
		var ins *engine.Instrument
		if r.InstrumentID != "" {
			if i, ok := instruments[r.InstrumentID]; ok {
				ins = &i
			}
		}
		if engine.EffectiveMonthKey(r.Date, ins) != targetMonth {
			continue
		}
		if r.IsInstance() && r.Recurrence.TemplateID == templateID {
			dups = append(dups, r)
			continue
		}
		if hasTemplate && !r.IsRecurring && r.NameMatches(tmpl.Name) {
			dups = append(dups, r)
		}
	}
	return dups
}

// =============================================================================
// HELPERS
// =============================================================================

type instanceKey struct {
	TemplateID engine.ObligationID
	Month      engine.MonthKey
}

func confirmedIndex(records []engine.Obligation) map[instanceKey]bool {
	idx := make(map[instanceKey]bool)
	for _, r := range records {
		if r.IsInstance() && r.Recurrence.Month != "" {
			idx[instanceKey{r.Recurrence.TemplateID, r.Recurrence.Month}] = true
		}
	}
	return idx
}

func findTemplate(records []engine.Obligation, id engine.ObligationID) (engine.Obligation, bool) {
	for _, r := range records {
		if r.ID == id && r.IsTemplate() {
			return r, true
		}
	}
	return engine.Obligation{}, false
}

func findObligation(records []engine.Obligation, id engine.ObligationID) (engine.Obligation, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return engine.Obligation{}, false
}

func hasSettlement(settlements []engine.Settlement, id engine.ObligationID) bool {
	for _, s := range settlements {
		if s.ObligationID == id {
			return true
		}
	}
	return false
}

// isSnoozed reports whether an active snooze covers today.
func isSnoozed(tmpl engine.Obligation, today time.Time) bool {
	if tmpl.Recurrence == nil || tmpl.Recurrence.SnoozedUntil.IsZero() {
		return false
	}
	return truncateDay(today).Before(tmpl.Recurrence.SnoozedUntil)
}

func truncateDay(t time.Time) time.Time {
	return engine.NewDate(t.Year(), t.Month(), t.Day())
}
