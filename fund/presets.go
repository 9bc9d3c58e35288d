package fund

import "github.com/shopspring/decimal"

// =============================================================================
// COMMON FUND STRUCTURES
// =============================================================================

// BuyoutFund returns the 8% pref, full catch-up, 20% carry structure with a
// 2% management fee and a 2% GP commitment.
func BuyoutFund(id, name string, target decimal.Decimal) Terms {
	return Terms{
		ID:              id,
		Name:            name,
		Strategy:        StrategyBuyout,
		TargetRaise:     target,
		GPCommitment:    target.Mul(decimal.RequireFromString("0.02")),
		PreferredReturn: decimal.RequireFromString("0.08"),
		CatchUpGPShare:  decimal.NewFromInt(1),
		CarriedInterest: decimal.RequireFromString("0.2"),
		ManagementFee:   decimal.RequireFromString("0.02"),
		TermYears:       10,
	}
}

// VentureFund has no preferred return; catch-up is therefore never reached.
func VentureFund(id, name string, target decimal.Decimal) Terms {
	return Terms{
		ID:              id,
		Name:            name,
		Strategy:        StrategyVenture,
		TargetRaise:     target,
		GPCommitment:    target.Mul(decimal.RequireFromString("0.01")),
		PreferredReturn: decimal.Zero,
		CatchUpGPShare:  decimal.NewFromInt(1),
		CarriedInterest: decimal.RequireFromString("0.2"),
		ManagementFee:   decimal.RequireFromString("0.025"),
		TermYears:       10,
	}
}

// RealEstateFund uses a 9% pref with a 50% catch-up.
func RealEstateFund(id, name string, target decimal.Decimal) Terms {
	return Terms{
		ID:              id,
		Name:            name,
		Strategy:        StrategyRealEstate,
		TargetRaise:     target,
		GPCommitment:    target.Mul(decimal.RequireFromString("0.05")),
		PreferredReturn: decimal.RequireFromString("0.09"),
		CatchUpGPShare:  decimal.RequireFromString("0.5"),
		CarriedInterest: decimal.RequireFromString("0.2"),
		ManagementFee:   decimal.RequireFromString("0.015"),
		TermYears:       7,
	}
}
