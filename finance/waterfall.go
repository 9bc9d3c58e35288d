/*
waterfall.go - Private fund distribution waterfall (presentational)

PURPOSE:
  Produces the tier table and dollar illustration printed in fund
  formation documents. It is not a distribution ledger: nothing is
  persisted and there is no partial-period proration.

TIERS:
  1. Return of capital   pro rata by commitment until contributions return
  2. Preferred return    pro rata, compounding annual rate on contributions
  3. GP catch-up         CatchUpGPShare to the GP until the GP holds
                         CarriedInterest of tiers 2-3 combined
  4. Carried interest    CarriedInterest to the GP, the rest to LPs

INVARIANT:
  In every tier GPShare + LPShare == 1 exactly. LP shares are computed as
  1 − GP share so the closure holds for any input in [0, 1].
*/
package finance

import (
	"github.com/shopspring/decimal"
)

// WaterfallTerms configures the distribution tiers.
type WaterfallTerms struct {
	// PreferredReturn is the annual compounding hurdle (0.08 = 8%).
	PreferredReturn decimal.Decimal
	// CatchUpGPShare is the GP's share of catch-up distributions.
	CatchUpGPShare decimal.Decimal
	// CarriedInterest is the GP's share of residual profits.
	CarriedInterest decimal.Decimal

	GPCommitment decimal.Decimal
	TargetRaise  decimal.Decimal
}

// Tier is one row of the waterfall table.
type Tier struct {
	Number      int
	Name        string
	Description string
	GPShare     decimal.Decimal
	LPShare     decimal.Decimal
}

// Waterfall is the presentational tier table for a fund.
type Waterfall struct {
	Terms WaterfallTerms
	Tiers []Tier
	// GPCommitmentShare is GPCommitment / TargetRaise as a fraction.
	GPCommitmentShare decimal.Decimal
}

// Validate checks every split is a fraction in [0, 1].
func (t WaterfallTerms) Validate() error {
	one := decimal.NewFromInt(1)
	fractions := []struct {
		name string
		v    decimal.Decimal
	}{
		{"catch_up_gp_share", t.CatchUpGPShare},
		{"carried_interest", t.CarriedInterest},
	}
	for _, f := range fractions {
		if f.v.IsNegative() || f.v.GreaterThan(one) {
			return invalidWaterfall(f.name, f.v, "must be in [0, 1]")
		}
	}
	if t.PreferredReturn.IsNegative() {
		return invalidWaterfall("preferred_return", t.PreferredReturn, "must not be negative")
	}
	if t.GPCommitment.IsNegative() {
		return invalidWaterfall("gp_commitment", t.GPCommitment, "must not be negative")
	}
	if t.TargetRaise.IsNegative() {
		return invalidWaterfall("target_raise", t.TargetRaise, "must not be negative")
	}
	if t.TargetRaise.IsPositive() && t.GPCommitment.GreaterThan(t.TargetRaise) {
		return invalidWaterfall("gp_commitment", t.GPCommitment, "exceeds target raise")
	}
	return nil
}

// GPCommitmentPercent returns gp / target as a fraction, or zero when the
// target raise is zero.
func GPCommitmentPercent(gp, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.Zero
	}
	return gp.Div(target)
}

// SplitClosure returns a GP/LP pair for gpShare where LP = 1 − GP.
func SplitClosure(gpShare decimal.Decimal) (gp, lp decimal.Decimal) {
	return gpShare, decimal.NewFromInt(1).Sub(gpShare)
}

// BuildWaterfall assembles the four-tier table.
func BuildWaterfall(t WaterfallTerms) (*Waterfall, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	commitment := GPCommitmentPercent(t.GPCommitment, t.TargetRaise)
	tier := func(n int, name, desc string, gpShare decimal.Decimal) Tier {
		gp, lp := SplitClosure(gpShare)
		return Tier{Number: n, Name: name, Description: desc, GPShare: gp, LPShare: lp}
	}

	return &Waterfall{
		Terms:             t,
		GPCommitmentShare: commitment,
		Tiers: []Tier{
			tier(1, "Return of Capital",
				"100% to all partners pro rata until capital contributions are returned", commitment),
			tier(2, "Preferred Return",
				"to all partners pro rata until a cumulative compounding preferred return of "+FormatPercent(t.PreferredReturn)+" per annum", commitment),
			tier(3, "GP Catch-Up",
				FormatPercent(t.CatchUpGPShare)+" to the General Partner until it has received "+FormatPercent(t.CarriedInterest)+" of distributions under tiers 2 and 3", t.CatchUpGPShare),
			tier(4, "Carried Interest",
				FormatPercent(t.CarriedInterest)+" to the General Partner, the balance to the Limited Partners", t.CarriedInterest),
		},
	}, nil
}

// =============================================================================
// ILLUSTRATION - Dollar example for a distributable amount
// =============================================================================

// TierAmount is the dollar outcome of one tier.
type TierAmount struct {
	Tier   int
	Name   string
	Amount decimal.Decimal
	ToGP   decimal.Decimal
	ToLP   decimal.Decimal
}

// Illustration shows how one distribution flows through the tiers.
type Illustration struct {
	Distributable decimal.Decimal
	Contributions decimal.Decimal
	Years         int
	Tiers         []TierAmount
	TotalGP       decimal.Decimal
	TotalLP       decimal.Decimal
}

// IllustrateWaterfall runs distributable cash through the tiers, assuming
// contributions have been outstanding for years whole years.
func IllustrateWaterfall(w *Waterfall, distributable, contributions decimal.Decimal, years int) (*Illustration, error) {
	if w == nil {
		return nil, invalidWaterfall("waterfall", "nil", "required")
	}
	if distributable.IsNegative() {
		return nil, invalidWaterfall("distributable", distributable, "must not be negative")
	}
	if contributions.IsNegative() {
		return nil, invalidWaterfall("contributions", contributions, "must not be negative")
	}
	if years < 0 {
		return nil, invalidWaterfall("years", years, "must not be negative")
	}

	t := w.Terms
	remaining := distributable
	ill := &Illustration{
		Distributable: distributable,
		Contributions: contributions,
		Years:         years,
		TotalGP:       decimal.Zero,
		TotalLP:       decimal.Zero,
	}
	take := func(want decimal.Decimal) decimal.Decimal {
		got := decimal.Min(want, remaining)
		remaining = remaining.Sub(got)
		return got
	}
	record := func(tier Tier, amount, toGP decimal.Decimal) {
		ta := TierAmount{Tier: tier.Number, Name: tier.Name, Amount: amount, ToGP: toGP, ToLP: amount.Sub(toGP)}
		ill.Tiers = append(ill.Tiers, ta)
		ill.TotalGP = ill.TotalGP.Add(ta.ToGP)
		ill.TotalLP = ill.TotalLP.Add(ta.ToLP)
	}

	roc := take(contributions)
	record(w.Tiers[0], roc, roc.Mul(w.Tiers[0].GPShare))

	growth := decimal.NewFromInt(1).Add(t.PreferredReturn).Pow(decimal.NewFromInt(int64(years)))
	pref := take(contributions.Mul(growth.Sub(decimal.NewFromInt(1))))
	record(w.Tiers[1], pref, pref.Mul(w.Tiers[1].GPShare))

	// c·X = k·(pref + X)  =>  X = k·pref / (c − k)
	// When c <= k the GP never catches up, so the tier is empty and the
	// remainder is split at the carry.
	catchUp := decimal.Zero
	if t.CarriedInterest.IsPositive() && t.CatchUpGPShare.GreaterThan(t.CarriedInterest) {
		catchUp = take(t.CarriedInterest.Mul(pref).Div(t.CatchUpGPShare.Sub(t.CarriedInterest)))
	}
	record(w.Tiers[2], catchUp, catchUp.Mul(t.CatchUpGPShare))

	residual := take(remaining)
	record(w.Tiers[3], residual, residual.Mul(t.CarriedInterest))

	return ill, nil
}
