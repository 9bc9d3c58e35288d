package loan

import (
	"errors"
	"fmt"

	"github.com/dealforge/docfin/finance"
	"github.com/shopspring/decimal"
)

// ErrProrationMismatch is returned when two documents of the same loan state
// prorated interest figures that cannot both be right.
var ErrProrationMismatch = errors.New("proration figures are inconsistent")

// ProrationFigure is the prorated interest one document states.
type ProrationFigure struct {
	Document   string
	Convention finance.DayCount
	Days       int
	Amount     decimal.Decimal
}

// ConsistencyError describes which figures disagree.
type ConsistencyError struct {
	A, B     ProrationFigure
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Reason   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s (%s) vs %s (%s): %s: expected %s, got %s",
		e.A.Document, e.A.Convention, e.B.Document, e.B.Convention,
		e.Reason, e.Expected.StringFixed(2), e.Actual.StringFixed(2))
}

func (e *ConsistencyError) Unwrap() error { return ErrProrationMismatch }

// CheckProrationConsistency verifies that two documents' prorated interest
// figures for the same principal and rate agree. Each figure must match its
// own convention, and when the conventions differ the gap between the two
// figures must be exactly the gap the conventions imply.
func CheckProrationConsistency(principal, annualRate decimal.Decimal, a, b ProrationFigure) error {
	if a.Days != b.Days {
		return &ConsistencyError{
			A: a, B: b,
			Expected: decimal.NewFromInt(int64(a.Days)),
			Actual:   decimal.NewFromInt(int64(b.Days)),
			Reason:   "documents prorate different periods",
		}
	}

	expectA, err := finance.ProratedInterest(principal, annualRate, a.Days, a.Convention)
	if err != nil {
		return err
	}
	expectB, err := finance.ProratedInterest(principal, annualRate, b.Days, b.Convention)
	if err != nil {
		return err
	}

	if !finance.WithinEpsilon(a.Amount, expectA) {
		return &ConsistencyError{A: a, B: b, Expected: expectA, Actual: a.Amount,
			Reason: a.Document + " does not match its convention"}
	}
	if !finance.WithinEpsilon(b.Amount, expectB) {
		return &ConsistencyError{A: a, B: b, Expected: expectB, Actual: b.Amount,
			Reason: b.Document + " does not match its convention"}
	}

	wantGap := expectA.Sub(expectB)
	gotGap := a.Amount.Sub(b.Amount)
	if !finance.WithinEpsilon(gotGap, wantGap) {
		return &ConsistencyError{A: a, B: b, Expected: wantGap, Actual: gotGap,
			Reason: "difference between documents is not explained by their conventions"}
	}
	return nil
}

// CheckPackages runs the proration check across two packages of one loan.
func CheckPackages(a, b *Package) error {
	if a.Terms.ID != b.Terms.ID {
		return fmt.Errorf("%w: packages belong to different loans", finance.ErrInvalidLoanParameters)
	}
	return CheckProrationConsistency(a.Terms.Principal, a.Terms.AnnualRate, a.Proration(), b.Proration())
}
