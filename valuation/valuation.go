/*
Package valuation restates nominal cash-flow amounts in inflation- and
exchange-rate-adjusted terms.

PURPOSE:
  In a high-inflation economy, "how much did this cost?" has three answers:
  the nominal figure, the inflation-adjusted (real) figure, and the
  USD-equivalent figure. This package computes all three from the per-month
  economic indicator series, aggregates them across installment plans,
  projects forward under an assumed inflation rate, and recommends cash vs
  installments for a purchase.

LIQUEFACTION:
  A fixed nominal installment erodes as inflation accumulates: by the time
  you pay it, the indexed equivalent of the original amount is higher than
  what you actually hand over. RealValue returns that indexed equivalent
  (nominal x ppi(purchase month) / ppi(payment month)); LiquefactionPct is
  the relative gap. A purchasing-power index falling from 100 to 60 between
  purchase and payment makes a nominal 1000 worth 1000 x 100/60 in
  payment-month terms - positive liquefaction, the debtor's gain.

FAIL-SOFT LOOKUPS:
  The indicator series is sparse. A missing month never throws:
  - RealValue/LiquefactionPct fall back to the nominal amount unchanged.
  - USDValue returns zero - a USD figure has no defensible nominal
    fallback, so the asymmetry is intentional.

ROUNDING:
  None. All math stays in decimal.Decimal; display layers round.

EXAMPLE:
  eng := valuation.New(valuation.DefaultPolicy())
  real := eng.RealValue(nominal, purchased, paid, indicators)
  plan, err := eng.AnalyzePlan(valuation.PlanInput{...}, indicators)

SEE ALSO:
  - engine/types.go: Indicator, IndicatorSource
  - engine/time.go: AddMonths (installment due dates)
*/
package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/engine"
)

// =============================================================================
// POLICY - Tunable decision constants
// =============================================================================

// Policy gathers the valuation tunables. The defaults reproduce the
// historical behavior: prefer the parallel USD rate and treat a 1% real
// saving as material.
type Policy struct {
	// MaterialityThresholdPct is the minimum real saving, as a percentage
	// of the cash price, before installments are recommended over cash.
	MaterialityThresholdPct decimal.Decimal

	// UseParallelRate selects the parallel USD rate over the official one
	// when both are present.
	UseParallelRate bool
}

// DefaultPolicy returns the standard tunables.
func DefaultPolicy() Policy {
	return Policy{
		MaterialityThresholdPct: decimal.NewFromInt(1),
		UseParallelRate:         true,
	}
}

// Engine computes inflation- and exchange-adjusted valuations.
type Engine struct {
	policy Policy
}

func New(policy Policy) *Engine {
	if policy.MaterialityThresholdPct.IsZero() {
		policy.MaterialityThresholdPct = decimal.NewFromInt(1)
	}
	return &Engine{policy: policy}
}

var hundred = decimal.NewFromInt(100)

// =============================================================================
// POINT VALUATIONS
// =============================================================================

// RealValue restates a nominal amount dated at purchaseDate into
// payment-month terms: nominal x ppi(purchase) / ppi(payment). A falling
// index yields a value above nominal - the fixed payment got cheaper in
// real terms. Missing indicators for either month return the nominal amount
// unchanged.
func (e *Engine) RealValue(nominal decimal.Decimal, purchaseDate, paymentDate time.Time, indicators engine.IndicatorSource) decimal.Decimal {
	purchase, ok := indicators.IndicatorFor(engine.MonthKeyOf(purchaseDate))
	if !ok {
		return nominal
	}
	payment, ok := indicators.IndicatorFor(engine.MonthKeyOf(paymentDate))
	if !ok || payment.PurchasingPowerIndex.IsZero() {
		return nominal
	}
	return nominal.Mul(purchase.PurchasingPowerIndex).Div(payment.PurchasingPowerIndex)
}

// USDValue converts a nominal amount to USD at the payment month's rate.
// Returns zero when the month has no indicator or no usable rate.
func (e *Engine) USDValue(nominal decimal.Decimal, paymentDate time.Time, indicators engine.IndicatorSource) decimal.Decimal {
	ind, ok := indicators.IndicatorFor(engine.MonthKeyOf(paymentDate))
	if !ok {
		return decimal.Zero
	}
	rate := ind.USDOfficialRate
	if e.policy.UseParallelRate && ind.USDParallelRate.IsPositive() {
		rate = ind.USDParallelRate
	}
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return nominal.Div(rate)
}

// LiquefactionPct is the percentage gap between the real (indexed) value
// and the nominal amount: positive when inflation eroded the payment.
func (e *Engine) LiquefactionPct(nominal decimal.Decimal, purchaseDate, paymentDate time.Time, indicators engine.IndicatorSource) decimal.Decimal {
	if nominal.IsZero() {
		return decimal.Zero
	}
	restated := e.RealValue(nominal, purchaseDate, paymentDate, indicators)
	return restated.Sub(nominal).Div(nominal).Mul(hundred)
}

// =============================================================================
// INSTALLMENT PLAN ANALYSIS
// =============================================================================

// Strategy is the repayment recommendation for an existing plan.
type Strategy string

const (
	StrategyEarly   Strategy = "early"
	StrategyDelayed Strategy = "delayed"
)

// PlanInput describes an installment plan under analysis.
type PlanInput struct {
	TotalAmount       decimal.Decimal
	InstallmentAmount decimal.Decimal
	TotalInstallments int
	PurchaseDate      time.Time
	FirstPaymentDate  time.Time
	Today             time.Time
}

// PlanAnalysis aggregates nominal/real/USD totals across a plan.
type PlanAnalysis struct {
	TotalNominal decimal.Decimal
	TotalReal    decimal.Decimal
	TotalUSD     decimal.Decimal

	// TotalLiquefactionPct is the liquefaction of the plan as a whole.
	TotalLiquefactionPct decimal.Decimal

	// AvgInflationImpactPct averages the per-installment liquefaction.
	AvgInflationImpactPct decimal.Decimal

	// USDSavings compares paying everything upfront in USD terms against
	// the summed USD cost of the installments.
	USDSavings decimal.Decimal

	// Strategy recommends early repayment when waiting carries no
	// inflation benefit, delayed otherwise.
	Strategy Strategy

	// ProjectedSavings is the real-terms amount the plan saves versus its
	// nominal total.
	ProjectedSavings decimal.Decimal
}

// AnalyzePlan walks each installment's due date (first payment + i months),
// accumulates nominal, real, and USD totals, and recommends early vs
// delayed repayment.
func (e *Engine) AnalyzePlan(in PlanInput, indicators engine.IndicatorSource) (PlanAnalysis, error) {
	if !in.TotalAmount.IsPositive() {
		return PlanAnalysis{}, engine.NewFieldError("total_amount", "must be positive")
	}
	if !in.InstallmentAmount.IsPositive() {
		return PlanAnalysis{}, engine.NewFieldError("installment_amount", "must be positive")
	}
	if in.TotalInstallments <= 0 {
		return PlanAnalysis{}, engine.NewFieldError("total_installments", "must be positive")
	}

	var (
		nominal  = decimal.Zero
		realTot  = decimal.Zero
		usd      = decimal.Zero
		liqSum   = decimal.Zero
		payments = decimal.NewFromInt(int64(in.TotalInstallments))
	)
	for i := 0; i < in.TotalInstallments; i++ {
		due := engine.AddMonths(in.FirstPaymentDate, i)
		nominal = nominal.Add(in.InstallmentAmount)
		realTot = realTot.Add(e.RealValue(in.InstallmentAmount, in.PurchaseDate, due, indicators))
		usd = usd.Add(e.USDValue(in.InstallmentAmount, due, indicators))
		liqSum = liqSum.Add(e.LiquefactionPct(in.InstallmentAmount, in.PurchaseDate, due, indicators))
	}

	totalLiq := decimal.Zero
	if !nominal.IsZero() {
		totalLiq = realTot.Sub(nominal).Div(nominal).Mul(hundred)
	}

	// Waiting is advantageous while the indexed equivalent of the debt at
	// today's date exceeds its nominal face: recommend early only when it
	// doesn't.
	strategy := StrategyDelayed
	if e.RealValue(in.TotalAmount, in.PurchaseDate, in.Today, indicators).LessThan(in.TotalAmount) {
		strategy = StrategyEarly
	}

	return PlanAnalysis{
		TotalNominal:          nominal,
		TotalReal:             realTot,
		TotalUSD:              usd,
		TotalLiquefactionPct:  totalLiq,
		AvgInflationImpactPct: liqSum.Div(payments),
		USDSavings:            e.USDValue(in.TotalAmount, in.PurchaseDate, indicators).Sub(usd),
		Strategy:              strategy,
		ProjectedSavings:      realTot.Sub(nominal),
	}, nil
}

// =============================================================================
// FORWARD PROJECTION - Assumed constant monthly inflation
// =============================================================================

// ProjectedPayment is one future installment under assumed inflation.
type ProjectedPayment struct {
	Month           engine.MonthKey
	Nominal         decimal.Decimal
	ProjectedReal   decimal.Decimal
	LiquefactionPct decimal.Decimal
}

// ProjectFuturePayments compounds an assumed monthly inflation rate forward
// over the remaining installments. This is a pure simulation - it reads no
// historical indicators.
func (e *Engine) ProjectFuturePayments(remainingInstallments int, amount decimal.Decimal, nextDate time.Time, assumedMonthlyInflationPct decimal.Decimal) []ProjectedPayment {
	if remainingInstallments <= 0 {
		return nil
	}

	factor := decimal.NewFromInt(1).Add(assumedMonthlyInflationPct.Div(hundred))
	compounded := decimal.NewFromInt(1)

	out := make([]ProjectedPayment, 0, remainingInstallments)
	for i := 0; i < remainingInstallments; i++ {
		compounded = compounded.Mul(factor)
		projected := amount.Mul(compounded)
		liq := decimal.Zero
		if !amount.IsZero() {
			liq = projected.Sub(amount).Div(amount).Mul(hundred)
		}
		out = append(out, ProjectedPayment{
			Month:           engine.MonthKeyOf(engine.AddMonths(nextDate, i)),
			Nominal:         amount,
			ProjectedReal:   projected,
			LiquefactionPct: liq,
		})
	}
	return out
}

// =============================================================================
// CASH vs INSTALLMENTS DECISION
// =============================================================================

// Recommendation is the purchase decision.
type Recommendation string

const (
	RecommendCash         Recommendation = "cash"
	RecommendInstallments Recommendation = "installments"
)

// Decision is the outcome of a cash-vs-installments comparison.
type Decision struct {
	Recommendation Recommendation
	CashPrice      decimal.Decimal
	FinancedTotal  decimal.Decimal

	// FinancedReal is the financed plan's cost in today's money: each
	// installment discounted by the assumed inflation to its due month.
	FinancedReal decimal.Decimal

	// SavingsPct is (cash - financedReal) / cash x 100.
	SavingsPct decimal.Decimal
}

// CompareCashVsInstallments discounts each of n equal installments by the
// assumed monthly inflation and recommends installments when the real
// saving over the cash price exceeds the materiality threshold.
func (e *Engine) CompareCashVsInstallments(cashPrice, financedTotal decimal.Decimal, installments int, assumedMonthlyInflationPct decimal.Decimal) (Decision, error) {
	if !cashPrice.IsPositive() {
		return Decision{}, engine.NewFieldError("cash_price", "must be positive")
	}
	if !financedTotal.IsPositive() {
		return Decision{}, engine.NewFieldError("financed_total", "must be positive")
	}
	if installments <= 0 {
		return Decision{}, engine.NewFieldError("installments", "must be positive")
	}

	perInstallment := financedTotal.Div(decimal.NewFromInt(int64(installments)))
	factor := decimal.NewFromInt(1).Add(assumedMonthlyInflationPct.Div(hundred))

	financedReal := decimal.Zero
	compounded := decimal.NewFromInt(1)
	for i := 0; i < installments; i++ {
		compounded = compounded.Mul(factor)
		financedReal = financedReal.Add(perInstallment.Div(compounded))
	}

	return Decision{
		Recommendation: e.Recommend(cashPrice, financedReal),
		CashPrice:      cashPrice,
		FinancedTotal:  financedTotal,
		FinancedReal:   financedReal,
		SavingsPct:     cashPrice.Sub(financedReal).Div(cashPrice).Mul(hundred),
	}, nil
}

// Recommend applies the materiality threshold to an already-computed real
// financed cost: installments iff the real saving beats the threshold.
func (e *Engine) Recommend(cashPrice, financedReal decimal.Decimal) Recommendation {
	if cashPrice.IsZero() {
		return RecommendCash
	}
	savingsPct := cashPrice.Sub(financedReal).Div(cashPrice).Mul(hundred)
	if savingsPct.GreaterThan(e.policy.MaterialityThresholdPct) {
		return RecommendInstallments
	}
	return RecommendCash
}
