/*
Package finance provides the deterministic financial computation layer.

PURPOSE:
  This package contains the pure numeric routines that every generated
  document depends on: maturity and payment date arithmetic, amortization
  schedules (including balloons and interest-only periods), the actuarial
  APR solver, day-count interest accrual, fund distribution waterfalls, and
  the formatting helpers that turn those numbers into document text.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal.Decimal, never float64, for every currency amount
  - Rate: a decimal fraction (0.07 = 7%) until final formatting
  - Epsilon: the 0.01 currency-unit tolerance used for balance checks

DESIGN PRINCIPLES:
  1. Purity: no I/O, no shared state, safe for concurrent use
  2. Precision: decimal arithmetic at full precision, rounding at display only
  3. Explicit failure: invalid input returns typed errors, never NaN or Inf

USAGE:
  sched, err := finance.Amortize(finance.ScheduleInput{
      Principal:          finance.Dollars(500000),
      AnnualRate:         finance.Rate(0.07),
      TermMonths:         60,
      AmortizationMonths: 300,
      MonthlyPayment:     finance.MustParseDecimal("3322.72"),
      FirstPaymentDate:   civil.Date{Year: 2025, Month: time.February, Day: 1},
  })

SEE ALSO:
  - amortization.go: Schedule generation
  - apr.go: Actuarial APR solver
  - waterfall.go: Fund distribution tiers
*/
package finance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY AND RATES
// =============================================================================

// WorkingScale is the number of decimal places schedule arithmetic carries
// between rows.
const WorkingScale int32 = 10

var (
	// Epsilon is the balance tolerance in currency units.
	Epsilon = decimal.NewFromFloat(0.01)

	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
)

// Dollars builds a money amount from a float literal.
func Dollars(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// Rate builds a rate expressed as a decimal fraction (0.05 = 5%).
func Rate(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// MustParseDecimal parses s, returning zero on malformed input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MonthlyRate converts an annual rate to the nominal monthly rate.
func MonthlyRate(annual decimal.Decimal) decimal.Decimal { return annual.Div(monthsInYear) }

// RoundCents rounds a money amount to 2 decimals for display.
func RoundCents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// WithinEpsilon reports whether |a-b| <= Epsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}
