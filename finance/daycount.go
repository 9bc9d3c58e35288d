package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DayCount is the denominator convention used to turn an annual rate into
// a daily one.
type DayCount string

const (
	// Actual360 is the commercial banking convention (settlement statements).
	Actual360 DayCount = "actual_360"
	// Actual365 is the consumer disclosure convention.
	Actual365 DayCount = "actual_365"
)

// DaysInYear returns the convention's denominator.
func (c DayCount) DaysInYear() (int, error) {
	switch c {
	case Actual360:
		return 360, nil
	case Actual365:
		return 365, nil
	default:
		return 0, fmt.Errorf("unknown day count convention %q: %w", string(c), ErrInvalidLoanParameters)
	}
}

// PerDiem is principal × annualRate / daysInYear.
func PerDiem(principal, annualRate decimal.Decimal, conv DayCount) (decimal.Decimal, error) {
	days, err := conv.DaysInYear()
	if err != nil {
		return decimal.Zero, err
	}
	return principal.Mul(annualRate).Div(decimal.NewFromInt(int64(days))), nil
}

// ProratedInterest is the per-diem interest accrued over days.
func ProratedInterest(principal, annualRate decimal.Decimal, days int, conv DayCount) (decimal.Decimal, error) {
	if days < 0 {
		return decimal.Zero, invalidLoan("days", days, "must not be negative")
	}
	perDiem, err := PerDiem(principal, annualRate, conv)
	if err != nil {
		return decimal.Zero, err
	}
	return perDiem.Mul(decimal.NewFromInt(int64(days))), nil
}
