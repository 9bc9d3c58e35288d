/*
apr.go - Actuarial APR solver

PURPOSE:
  Solves the actuarial equation for the periodic rate ρ that discounts a
  loan's payments back to its amount financed, then annualizes it:

    level payments:   AF = M × (1 − (1+ρ)^−T) / ρ
    irregular flows:  AF = Σ p_k × (1+ρ)^−k,  k = 1..T

  APR = ρ × 12 × 100.

METHOD:
  Newton-Raphson with the closed-form derivative, seeded at ρ₀ = M / AF.
  Stops when |Δρ| < 1e-10 or after 100 iterations. Running out of
  iterations is not an error: the last estimate is returned with
  Converged = false so the document layer can decide what to print.

DEGENERATE INPUT:
  AF ≤ 0, M ≤ 0, T ≤ 0, or payments that do not exceed AF (zero or negative
  finance charge) return a zero APR flagged Degenerate.
*/
package finance

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	aprTolerance     = 1e-10
	aprMaxIterations = 100
)

// APRResult is the outcome of an APR solve.
type APRResult struct {
	// PeriodicRate is the monthly rate ρ.
	PeriodicRate float64
	// APR is ρ × 12 × 100, a percentage.
	APR        decimal.Decimal
	Iterations int
	Converged  bool
	Degenerate bool
}

// AnnualRate returns the APR as a decimal fraction (0.0725 = 7.25%).
func (r APRResult) AnnualRate() decimal.Decimal { return r.APR.Div(hundred) }

func degenerateAPR() APRResult {
	return APRResult{APR: decimal.Zero, Converged: true, Degenerate: true}
}

// SolveAPR solves for the APR of a loan repaid by termMonths level payments.
func SolveAPR(amountFinanced, payment decimal.Decimal, termMonths int) APRResult {
	if !amountFinanced.IsPositive() || !payment.IsPositive() || termMonths <= 0 {
		return degenerateAPR()
	}
	if payment.Mul(decimal.NewFromInt(int64(termMonths))).LessThanOrEqual(amountFinanced) {
		return degenerateAPR()
	}

	af := amountFinanced.InexactFloat64()
	m := payment.InexactFloat64()
	t := float64(termMonths)

	eval := func(rho float64) (float64, float64) {
		disc := math.Pow(1+rho, -t)
		annuity := (1 - disc) / rho
		dAnnuity := (t*rho*disc/(1+rho) - (1 - disc)) / (rho * rho)
		return m*annuity - af, m * dAnnuity
	}
	return newtonAPR(m/af, aprMaxIterations, eval)
}

// SolveAPRFromFinanceCharge solves the APR when only the finance charge is
// known, assuming it is repaid with the amount financed in level payments.
func SolveAPRFromFinanceCharge(amountFinanced, financeCharge decimal.Decimal, termMonths int) APRResult {
	if termMonths <= 0 {
		return degenerateAPR()
	}
	payment := amountFinanced.Add(financeCharge).Div(decimal.NewFromInt(int64(termMonths)))
	return SolveAPR(amountFinanced, payment, termMonths)
}

// SolveAPRCashFlows solves the APR for irregular monthly payments, where
// payments[k] is due at the end of month k+1.
func SolveAPRCashFlows(amountFinanced decimal.Decimal, payments []decimal.Decimal) APRResult {
	if !amountFinanced.IsPositive() || len(payments) == 0 {
		return degenerateAPR()
	}
	total := decimal.Zero
	flows := make([]float64, len(payments))
	for i, p := range payments {
		if p.IsNegative() {
			return degenerateAPR()
		}
		total = total.Add(p)
		flows[i] = p.InexactFloat64()
	}
	if total.LessThanOrEqual(amountFinanced) {
		return degenerateAPR()
	}

	af := amountFinanced.InexactFloat64()
	eval := func(rho float64) (float64, float64) {
		var pv, dpv float64
		for k, p := range flows {
			n := float64(k + 1)
			disc := math.Pow(1+rho, -n)
			pv += p * disc
			dpv -= n * p * disc / (1 + rho)
		}
		return pv - af, dpv
	}
	seed := total.Div(decimal.NewFromInt(int64(len(flows)))).InexactFloat64() / af
	return newtonAPR(seed, aprMaxIterations, eval)
}

// newtonAPR iterates from seed until the step falls below aprTolerance or
// maxIter steps are spent. The last estimate is returned either way.
func newtonAPR(seed float64, maxIter int, eval func(float64) (float64, float64)) APRResult {
	rho := seed
	res := APRResult{}
	for res.Iterations < maxIter {
		res.Iterations++
		f, df := eval(rho)
		if df == 0 || math.IsNaN(df) || math.IsInf(df, 0) {
			break
		}
		next := rho - f/df
		// the solution is positive whenever payments exceed AF
		if next <= 0 || math.IsNaN(next) {
			next = rho / 2
		}
		delta := math.Abs(next - rho)
		rho = next
		if delta < aprTolerance {
			res.Converged = true
			break
		}
	}
	res.PeriodicRate = rho
	res.APR = decimal.NewFromFloat(rho * 12 * 100)
	return res
}

// TotalInterestPercentage is (totalOfPayments − principal) / principal × 100.
// A zero principal yields zero.
func TotalInterestPercentage(totalOfPayments, principal decimal.Decimal) decimal.Decimal {
	if principal.IsZero() {
		return decimal.Zero
	}
	return totalOfPayments.Sub(principal).Div(principal).Mul(hundred)
}
