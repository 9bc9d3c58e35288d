package finance

import (
	"github.com/shopspring/decimal"
)

// Disclosure is the regulatory finance-charge box of a consumer loan.
type Disclosure struct {
	Principal             decimal.Decimal
	PrepaidFinanceCharges decimal.Decimal

	// AmountFinanced = Principal − PrepaidFinanceCharges
	AmountFinanced decimal.Decimal
	// TotalOfPayments is the sum of every scheduled payment, balloon included.
	TotalOfPayments decimal.Decimal
	// FinanceCharge = TotalOfPayments − Principal + PrepaidFinanceCharges
	FinanceCharge decimal.Decimal

	APR                     APRResult
	TotalInterestPercentage decimal.Decimal
}

// Disclose derives the disclosure figures from a generated schedule.
// The APR is solved against the schedule's actual cash flows so balloon
// and final-payment adjustments are reflected.
func Disclose(principal, prepaidFinanceCharges decimal.Decimal, sched *Schedule) (Disclosure, error) {
	if !principal.IsPositive() {
		return Disclosure{}, invalidLoan("principal", principal, "must be positive")
	}
	if prepaidFinanceCharges.IsNegative() || prepaidFinanceCharges.GreaterThanOrEqual(principal) {
		return Disclosure{}, invalidLoan("prepaid_finance_charges", prepaidFinanceCharges, "must be in [0, principal)")
	}
	if sched == nil || len(sched.Rows) == 0 {
		return Disclosure{}, invalidLoan("schedule", "empty", "no payments to disclose")
	}

	amountFinanced := principal.Sub(prepaidFinanceCharges)
	total := sched.TotalPayments

	return Disclosure{
		Principal:               principal,
		PrepaidFinanceCharges:   prepaidFinanceCharges,
		AmountFinanced:          amountFinanced,
		TotalOfPayments:         total,
		FinanceCharge:           total.Sub(principal).Add(prepaidFinanceCharges),
		APR:                     SolveAPRCashFlows(amountFinanced, sched.CashFlows()),
		TotalInterestPercentage: TotalInterestPercentage(total, principal),
	}, nil
}
