/*
amortization.go - Amortization schedule generation

PURPOSE:
  Expands a loan's terms into the month-by-month table embedded in loan
  documents: payment date, payment, principal, interest, ending balance.

ALGORITHM:
  For month = 1..TermMonths:
    interest  = balance × (annual rate / 12)
    IO loan:    principal = 0, payment = interest
    otherwise:  payment = MonthlyPayment, principal = payment - interest,
                clamped to the balance on the final amortizing month or
                whenever it would overshoot the balance
    balance   = max(0, balance - principal)
  Stop early once the balance is within Epsilon of zero.

BALLOON:
  When the amortization period exceeds the term (or the loan is interest
  only), the balance left after the term is emitted as one extra row dated
  at maturity: principal only, zero interest.

PRECISION:
  All values are decimal at full precision. Nothing is rounded here; the
  document layer rounds to cents when it formats a row.

SEE ALSO:
  - calendar.go: PaymentDate and DayPolicy
  - pricing.go: LevelPayment for callers that do not supply MonthlyPayment
  - disclosure.go: Totals consumed by the finance disclosure
*/
package finance

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ScheduleInput is the snapshot of loan terms the engine needs.
type ScheduleInput struct {
	Principal          decimal.Decimal
	AnnualRate         decimal.Decimal
	TermMonths         int
	AmortizationMonths int

	// MonthlyPayment is authoritative; the engine never re-derives it.
	// Ignored for interest-only loans.
	MonthlyPayment decimal.Decimal
	InterestOnly   bool

	FirstPaymentDate civil.Date
	// MaturityDate dates the balloon row. Zero means the last scheduled
	// payment date.
	MaturityDate civil.Date
	DayPolicy    DayPolicy
}

// Row is one line of an amortization table.
type Row struct {
	Month         int
	Date          civil.Date
	Payment       decimal.Decimal
	Principal     decimal.Decimal
	Interest      decimal.Decimal
	EndingBalance decimal.Decimal
	Balloon       bool
}

// Schedule is a complete amortization table with running totals.
type Schedule struct {
	Rows           []Row
	TotalPayments  decimal.Decimal
	TotalPrincipal decimal.Decimal
	TotalInterest  decimal.Decimal
}

// Balloon returns the synthetic balloon row, if any.
func (s *Schedule) Balloon() (Row, bool) {
	if n := len(s.Rows); n > 0 && s.Rows[n-1].Balloon {
		return s.Rows[n-1], true
	}
	return Row{}, false
}

// RegularRows returns the rows excluding the balloon.
func (s *Schedule) RegularRows() []Row {
	if _, ok := s.Balloon(); ok {
		return s.Rows[:len(s.Rows)-1]
	}
	return s.Rows
}

// CashFlows returns one payment per period, folding the balloon into the
// final period since both are due at maturity.
func (s *Schedule) CashFlows() []decimal.Decimal {
	regular := s.RegularRows()
	flows := make([]decimal.Decimal, len(regular))
	for i, r := range regular {
		flows[i] = r.Payment
	}
	if b, ok := s.Balloon(); ok && len(flows) > 0 {
		flows[len(flows)-1] = flows[len(flows)-1].Add(b.Payment)
	}
	return flows
}

// Validate checks the input before any row is produced.
func (in ScheduleInput) Validate() error {
	switch {
	case !in.Principal.IsPositive():
		return invalidLoan("principal", in.Principal, "must be positive")
	case in.AnnualRate.IsNegative():
		return invalidLoan("annual_rate", in.AnnualRate, "must not be negative")
	case in.TermMonths < 1:
		return invalidLoan("term_months", in.TermMonths, "must be at least 1")
	case in.AmortizationMonths < 1:
		return invalidLoan("amortization_months", in.AmortizationMonths, "must be at least 1")
	case !in.DayPolicy.Valid():
		return invalidLoan("day_policy", in.DayPolicy, "unknown policy")
	case !in.FirstPaymentDate.IsValid():
		return &InvalidParameterError{Field: "first_payment_date", Value: in.FirstPaymentDate.String(), Reason: "not a calendar date", kind: ErrInvalidDate}
	}
	if in.InterestOnly {
		return nil
	}
	if !in.MonthlyPayment.IsPositive() {
		return invalidLoan("monthly_payment", in.MonthlyPayment, "must be positive for an amortizing loan")
	}
	if firstInterest := in.Principal.Mul(MonthlyRate(in.AnnualRate)); in.MonthlyPayment.LessThan(firstInterest) {
		return invalidLoan("monthly_payment", in.MonthlyPayment, "does not cover first month interest")
	}
	return nil
}

// Amortize generates the schedule for in.
func Amortize(in ScheduleInput) (*Schedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rate := MonthlyRate(in.AnnualRate)
	balance := in.Principal
	sched := &Schedule{
		Rows:           make([]Row, 0, in.TermMonths+1),
		TotalPayments:  decimal.Zero,
		TotalPrincipal: decimal.Zero,
		TotalInterest:  decimal.Zero,
	}

	for month := 1; month <= in.TermMonths; month++ {
		interest := balance.Mul(rate).Round(WorkingScale)

		var principal, payment decimal.Decimal
		if in.InterestOnly {
			principal = decimal.Zero
			payment = interest
		} else {
			payment = in.MonthlyPayment
			principal = payment.Sub(interest)
			if month == in.AmortizationMonths || principal.GreaterThan(balance) {
				principal = balance
				payment = principal.Add(interest)
			}
		}

		balance = balance.Sub(principal)
		if balance.IsNegative() {
			balance = decimal.Zero
		}

		sched.append(Row{
			Month:         month,
			Date:          PaymentDate(in.FirstPaymentDate, month, in.DayPolicy),
			Payment:       payment,
			Principal:     principal,
			Interest:      interest,
			EndingBalance: balance,
		})

		if month < in.TermMonths && balance.LessThanOrEqual(Epsilon) {
			break
		}
	}

	if balance.GreaterThan(Epsilon) {
		maturity := in.MaturityDate
		if !maturity.IsValid() {
			maturity = sched.Rows[len(sched.Rows)-1].Date
		}
		sched.append(Row{
			Month:         len(sched.Rows) + 1,
			Date:          maturity,
			Payment:       balance,
			Principal:     balance,
			Interest:      decimal.Zero,
			EndingBalance: decimal.Zero,
			Balloon:       true,
		})
	}

	return sched, nil
}

func (s *Schedule) append(r Row) {
	s.Rows = append(s.Rows, r)
	s.TotalPayments = s.TotalPayments.Add(r.Payment)
	s.TotalPrincipal = s.TotalPrincipal.Add(r.Principal)
	s.TotalInterest = s.TotalInterest.Add(r.Interest)
}
