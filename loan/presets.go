/*
presets.go - Pre-built loan structures

PURPOSE:
  Ready-to-use terms for the loan structures deal teams draft most often.
  These are starting points: callers override names, fees and covenants.

AVAILABLE PRESETS:
  ConventionalMortgage: 30-year fully amortizing, fixed
  CommercialBalloon:    5-year term on a 25-year amortization, 1% origination
  BridgeInterestOnly:   24-month interest-only, principal due at maturity
  IndexedTermLoan:      7-year term on 25 years, floating over an index

EXAMPLE:
  terms := loan.CommercialBalloon("loan-42", decimal.NewFromInt(500000),
      decimal.RequireFromString("0.07"), closing)
  terms.Borrower = "Acme Holdings LLC"

SEE ALSO:
  - factory/terms.go: JSON/YAML terms creation
*/
package loan

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

var onePercent = decimal.RequireFromString("0.01")

// ConventionalMortgage returns a 360-month fully amortizing fixed loan.
func ConventionalMortgage(id string, principal, rate decimal.Decimal, closing civil.Date) Terms {
	return Terms{
		ID:                 id,
		Principal:          principal,
		AnnualRate:         rate,
		RateType:           RateFixed,
		TermMonths:         360,
		AmortizationMonths: 360,
		ClosingDate:        closing,
	}
}

// CommercialBalloon returns a 60/300 balloon loan with a prepaid origination fee.
func CommercialBalloon(id string, principal, rate decimal.Decimal, closing civil.Date) Terms {
	return Terms{
		ID:                 id,
		Principal:          principal,
		AnnualRate:         rate,
		RateType:           RateFixed,
		TermMonths:         60,
		AmortizationMonths: 300,
		ClosingDate:        closing,
		Fees: []Fee{{
			Name:        "Origination Fee",
			Amount:      principal.Mul(onePercent).Round(2),
			Description: "One percent of the principal amount, withheld at closing",
			Prepaid:     true,
		}},
		Covenants: []Covenant{
			{Title: "Debt Service Coverage", Text: "Borrower shall maintain a debt service coverage ratio of not less than 1.25 to 1.00."},
		},
	}
}

// BridgeInterestOnly returns a 24-month interest-only loan.
func BridgeInterestOnly(id string, principal, rate decimal.Decimal, closing civil.Date) Terms {
	return Terms{
		ID:                 id,
		Principal:          principal,
		AnnualRate:         rate,
		RateType:           RateFixed,
		TermMonths:         24,
		AmortizationMonths: 24,
		InterestOnly:       true,
		ClosingDate:        closing,
	}
}

// IndexedTermLoan returns an 84/300 loan priced at index plus spread.
// indexRate is the index value on the closing date.
func IndexedTermLoan(id string, principal decimal.Decimal, index string, indexRate, spread decimal.Decimal, closing civil.Date) Terms {
	return Terms{
		ID:                 id,
		Principal:          principal,
		AnnualRate:         indexRate.Add(spread),
		RateType:           RateIndexed,
		Index:              index,
		Spread:             spread,
		TermMonths:         84,
		AmortizationMonths: 300,
		ClosingDate:        closing,
	}
}
