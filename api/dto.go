/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FORMATTING:
  Monetary fields and percentages are decimal STRINGS rounded to 2 places
  for display. The engines keep full precision internally; rounding happens
  only at this boundary.

TYPES:
  Obligation:
    ObligationDTO (wraps factory.ObligationJSON with state)

  Recurrence:
    SuggestionDTO, ConfirmRequest, ConfirmAllRequest, SnoozeRequest

  Accrual:
    AccrualTotalDTO, MonthlyTotalDTO, CategoryStatusDTO

  Valuation:
    PlanRequest, PlanAnalysisDTO, ProjectionRequest, ProjectedPaymentDTO,
    CompareRequest, DecisionDTO

SEE ALSO:
  - handlers.go: Uses these types
  - factory/records.go: wire forms shared with persistence seeds
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/accrual"
	"github.com/warp/finance-engine/engine"
	"github.com/warp/finance-engine/factory"
	"github.com/warp/finance-engine/recurrence"
	"github.com/warp/finance-engine/valuation"
)

// money renders a decimal for display.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

// =============================================================================
// OBLIGATIONS
// =============================================================================

// ObligationDTO represents an obligation in API responses. It extends the
// wire form with derived state: provenance and settlement.
type ObligationDTO struct {
	factory.ObligationJSON

	TemplateID      string `json:"template_id,omitempty"`
	RecurrenceMonth string `json:"recurrence_month,omitempty"`
	SnoozedUntil    string `json:"snoozed_until,omitempty"`
	Settled         bool   `json:"settled"`
	SettledAt       string `json:"settled_at,omitempty"`
}

func obligationDTO(o engine.Obligation) ObligationDTO {
	dto := ObligationDTO{
		ObligationJSON: factory.ObligationJSON{
			ID:           string(o.ID),
			Name:         o.Name,
			Amount:       money(o.Amount),
			Currency:     string(o.Currency),
			Frequency:    string(o.Frequency),
			Direction:    string(o.Direction),
			IsRecurring:  o.IsRecurring,
			RecurringDay: o.RecurringDay,
			Date:         o.Date.Format("2006-01-02"),
			CategoryID:   string(o.CategoryID),
			InstrumentID: string(o.InstrumentID),
			Tags:         o.Tags,
		},
		Settled: o.IsSettled(),
	}
	if o.Recurrence != nil {
		dto.TemplateID = string(o.Recurrence.TemplateID)
		dto.RecurrenceMonth = string(o.Recurrence.Month)
		if !o.Recurrence.SnoozedUntil.IsZero() {
			dto.SnoozedUntil = o.Recurrence.SnoozedUntil.Format("2006-01-02")
		}
	}
	if o.Settlement != nil {
		dto.SettledAt = o.Settlement.SettledAt.Format("2006-01-02")
	}
	return dto
}

// SettleRequest marks an obligation settled.
type SettleRequest struct {
	SettledAt string `json:"settled_at,omitempty"` // YYYY-MM-DD, default today
}

// =============================================================================
// INSTRUMENTS
// =============================================================================

// InstrumentDTO represents a payment instrument in API responses.
type InstrumentDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	ClosingDay int    `json:"closing_day,omitempty"`
}

func instrumentDTO(ins engine.Instrument) InstrumentDTO {
	return InstrumentDTO{
		ID:         string(ins.ID),
		Name:       ins.Name,
		Kind:       string(ins.Kind),
		ClosingDay: ins.ClosingDay,
	}
}

// =============================================================================
// INDICATORS
// =============================================================================

// IndicatorDTO represents one month's economic indicators.
type IndicatorDTO struct {
	Month                string `json:"month"`
	InflationRate        string `json:"inflation_rate"`
	PurchasingPowerIndex string `json:"purchasing_power_index"`
	USDOfficialRate      string `json:"usd_official_rate"`
	USDParallelRate      string `json:"usd_parallel_rate"`
}

func indicatorDTO(ind engine.Indicator) IndicatorDTO {
	return IndicatorDTO{
		Month:                string(ind.Month),
		InflationRate:        ind.InflationRate.String(),
		PurchasingPowerIndex: ind.PurchasingPowerIndex.String(),
		USDOfficialRate:      ind.USDOfficialRate.String(),
		USDParallelRate:      ind.USDParallelRate.String(),
	}
}

// =============================================================================
// RECURRENCE
// =============================================================================

// SuggestionDTO proposes a pending instance for a template.
type SuggestionDTO struct {
	TemplateID      string `json:"template_id"`
	TemplateName    string `json:"template_name"`
	SuggestedAmount string `json:"suggested_amount"`
	SuggestedDate   string `json:"suggested_date"`
	Currency        string `json:"currency"`
	Direction       string `json:"direction"`
	CategoryID      string `json:"category_id,omitempty"`
}

func suggestionDTO(s recurrence.Suggestion) SuggestionDTO {
	return SuggestionDTO{
		TemplateID:      string(s.Template.ID),
		TemplateName:    s.Template.Name,
		SuggestedAmount: money(s.SuggestedAmount),
		SuggestedDate:   s.SuggestedDate.Format("2006-01-02"),
		Currency:        string(s.Template.Currency),
		Direction:       string(s.Template.Direction),
		CategoryID:      string(s.Template.CategoryID),
	}
}

// ConfirmRequest confirms one template for a month, with optional overrides.
type ConfirmRequest struct {
	TemplateID string  `json:"template_id"`
	Month      string  `json:"month"`
	Amount     *string `json:"amount,omitempty"`
	Date       *string `json:"date,omitempty"`
	Currency   *string `json:"currency,omitempty"`
}

// ConfirmAllRequest confirms every pending template for a month.
type ConfirmAllRequest struct {
	Month string `json:"month"`
}

// SnoozeRequest suppresses a template's suggestions for a number of days.
type SnoozeRequest struct {
	TemplateID string `json:"template_id"`
	Days       int    `json:"days"`
}

// =============================================================================
// ACCRUAL
// =============================================================================

// AccrualTotalDTO is the total accrued over a period.
type AccrualTotalDTO struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// MonthlyTotalDTO is one month of an accrual breakdown.
type MonthlyTotalDTO struct {
	Month string `json:"month"`
	Total string `json:"total"`
}

// BudgetDTO represents a budget in API responses.
type BudgetDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Allocations []AllocationDTO `json:"allocations"`
}

// AllocationDTO is one per-category budget line.
type AllocationDTO struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

func budgetDTO(b engine.Budget) BudgetDTO {
	allocations := make([]AllocationDTO, len(b.Allocations))
	for i, a := range b.Allocations {
		allocations[i] = AllocationDTO{
			CategoryID: string(a.CategoryID),
			Amount:     money(a.Amount),
			Currency:   string(a.Currency),
		}
	}
	return BudgetDTO{
		ID:          string(b.ID),
		Name:        b.Name,
		PeriodStart: b.PeriodStart.Format("2006-01-02"),
		PeriodEnd:   b.PeriodEnd.Format("2006-01-02"),
		Allocations: allocations,
	}
}

// CategoryStatusDTO is one budget allocation with its accrued actuals.
type CategoryStatusDTO struct {
	CategoryID string `json:"category_id"`
	Allocated  string `json:"allocated"`
	Accrued    string `json:"accrued"`
	Remaining  string `json:"remaining"`
	Currency   string `json:"currency"`
}

func categoryStatusDTO(s accrual.CategoryStatus) CategoryStatusDTO {
	return CategoryStatusDTO{
		CategoryID: string(s.CategoryID),
		Allocated:  money(s.Allocated),
		Accrued:    money(s.Accrued),
		Remaining:  money(s.Remaining),
		Currency:   string(s.Currency),
	}
}

// =============================================================================
// VALUATION
// =============================================================================

// PlanRequest describes an installment plan to analyze.
type PlanRequest struct {
	TotalAmount       string `json:"total_amount"`
	InstallmentAmount string `json:"installment_amount"`
	TotalInstallments int    `json:"total_installments"`
	PurchaseDate      string `json:"purchase_date"`
	FirstPaymentDate  string `json:"first_payment_date"`
	Today             string `json:"today,omitempty"` // default: today
}

// PlanAnalysisDTO is the aggregated valuation of a plan.
type PlanAnalysisDTO struct {
	TotalNominal          string `json:"total_nominal"`
	TotalReal             string `json:"total_real"`
	TotalUSD              string `json:"total_usd"`
	TotalLiquefactionPct  string `json:"total_liquefaction_pct"`
	AvgInflationImpactPct string `json:"avg_inflation_impact_pct"`
	USDSavings            string `json:"usd_savings"`
	Strategy              string `json:"strategy"`
	ProjectedSavings      string `json:"projected_savings"`
}

func planAnalysisDTO(a valuation.PlanAnalysis) PlanAnalysisDTO {
	return PlanAnalysisDTO{
		TotalNominal:          money(a.TotalNominal),
		TotalReal:             money(a.TotalReal),
		TotalUSD:              money(a.TotalUSD),
		TotalLiquefactionPct:  money(a.TotalLiquefactionPct),
		AvgInflationImpactPct: money(a.AvgInflationImpactPct),
		USDSavings:            money(a.USDSavings),
		Strategy:              string(a.Strategy),
		ProjectedSavings:      money(a.ProjectedSavings),
	}
}

// ProjectionRequest simulates the remaining installments of a plan under an
// assumed monthly inflation rate.
type ProjectionRequest struct {
	RemainingInstallments int    `json:"remaining_installments"`
	Amount                string `json:"amount"`
	NextDate              string `json:"next_date"`
	MonthlyInflationPct   string `json:"monthly_inflation_pct"`
}

// ProjectedPaymentDTO is one simulated future installment.
type ProjectedPaymentDTO struct {
	Month           string `json:"month"`
	Nominal         string `json:"nominal"`
	ProjectedReal   string `json:"projected_real"`
	LiquefactionPct string `json:"liquefaction_pct"`
}

// CompareRequest weighs a cash price against a financed total.
type CompareRequest struct {
	CashPrice           string `json:"cash_price"`
	FinancedTotal       string `json:"financed_total"`
	Installments        int    `json:"installments"`
	MonthlyInflationPct string `json:"monthly_inflation_pct"`
}

// DecisionDTO is the cash-vs-installments outcome.
type DecisionDTO struct {
	Recommendation string `json:"recommendation"`
	CashPrice      string `json:"cash_price"`
	FinancedTotal  string `json:"financed_total"`
	FinancedReal   string `json:"financed_real"`
	SavingsPct     string `json:"savings_pct"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// parseDate is a small DTO-level helper for optional YYYY-MM-DD fields.
func parseDate(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", value)
}
