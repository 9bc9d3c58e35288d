// Package fund implements the fund-formation side of deal documents:
// the limited partnership terms and the distribution waterfall the
// private placement memorandum and LPA present.
package fund

import (
	"fmt"

	"github.com/dealforge/docfin/finance"
	"github.com/shopspring/decimal"
)

// Strategy is the fund's investment strategy. It only affects prose.
type Strategy string

const (
	StrategyBuyout     Strategy = "buyout"
	StrategyVenture    Strategy = "venture"
	StrategyRealEstate Strategy = "real_estate"
	StrategyCredit     Strategy = "credit"
)

// Terms are the economic terms of a fund.
type Terms struct {
	ID             string
	Name           string
	GeneralPartner string
	Strategy       Strategy

	TargetRaise  decimal.Decimal
	GPCommitment decimal.Decimal

	PreferredReturn decimal.Decimal // annual, compounding
	CatchUpGPShare  decimal.Decimal
	CarriedInterest decimal.Decimal
	ManagementFee   decimal.Decimal // annual fraction of commitments

	TermYears int
}

// Waterfall maps the terms onto the financial layer's waterfall terms.
func (t Terms) Waterfall() finance.WaterfallTerms {
	return finance.WaterfallTerms{
		PreferredReturn: t.PreferredReturn,
		CatchUpGPShare:  t.CatchUpGPShare,
		CarriedInterest: t.CarriedInterest,
		GPCommitment:    t.GPCommitment,
		TargetRaise:     t.TargetRaise,
	}
}

// Validate checks the fund-level terms and the waterfall.
func (t Terms) Validate() error {
	if t.ManagementFee.IsNegative() || t.ManagementFee.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: management fee must be in [0, 1]", finance.ErrInvalidWaterfall)
	}
	if t.TermYears < 0 {
		return fmt.Errorf("%w: term years must not be negative", finance.ErrInvalidWaterfall)
	}
	return t.Waterfall().Validate()
}

// AnnualManagementFee is the fee on the full target raise.
func (t Terms) AnnualManagementFee() decimal.Decimal {
	return finance.RoundCents(t.TargetRaise.Mul(t.ManagementFee))
}
