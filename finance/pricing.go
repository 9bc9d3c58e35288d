package finance

import (
	"math"

	"github.com/shopspring/decimal"
)

// LevelPayment returns the fixed monthly payment that amortizes principal
// over months at annualRate:
//
//	payment = P × i × (1+i)^n / ((1+i)^n − 1),  i = annualRate / 12
//
// A zero rate splits principal evenly. The power is taken in float64 and
// the result rounded to cents, the precision a note states its payment in.
func LevelPayment(principal, annualRate decimal.Decimal, months int) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, invalidLoan("principal", principal, "must be positive")
	}
	if months < 1 {
		return decimal.Zero, invalidLoan("amortization_months", months, "must be at least 1")
	}
	if annualRate.IsNegative() {
		return decimal.Zero, invalidLoan("annual_rate", annualRate, "must not be negative")
	}
	if annualRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(months))).Round(2), nil
	}

	i := annualRate.InexactFloat64() / 12
	factor := math.Pow(1+i, float64(months))
	payment := principal.InexactFloat64() * i * factor / (factor - 1)
	return decimal.NewFromFloat(payment).Round(2), nil
}

// InterestOnlyPayment is principal × (annual rate / 12), held at WorkingScale.
func InterestOnlyPayment(principal, annualRate decimal.Decimal) decimal.Decimal {
	return principal.Mul(MonthlyRate(annualRate)).Round(WorkingScale)
}
