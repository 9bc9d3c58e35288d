/*
presentation.go - Waterfall presentation

PURPOSE:
  Turns fund terms into the strings and tables the offering documents
  embed: the tier table with GP/LP splits, the GP commitment line and an
  optional dollar illustration.

  Every displayed GP/LP pair is formatted from the same decimal pair, so a
  tier always reads as summing to 100%.

SEE ALSO:
  - finance/waterfall.go: Tier math and illustration
*/
package fund

import (
	"fmt"

	"github.com/dealforge/docfin/finance"
	"github.com/shopspring/decimal"
)

// TierLine is one row of the rendered tier table.
type TierLine struct {
	Number      int
	Name        string
	Description string
	GP          string
	LP          string
}

// IllustrationInput requests a dollar example.
type IllustrationInput struct {
	Distributable decimal.Decimal
	Contributions decimal.Decimal
	Years         int
}

// Presentation is the waterfall as documents show it.
type Presentation struct {
	Terms     Terms
	Waterfall *finance.Waterfall
	Tiers     []TierLine

	CommitmentPercent string
	CommitmentLine    string
	ManagementFeeLine string

	Illustration *finance.Illustration
}

// Present builds the presentation. ill may be nil.
func Present(t Terms, ill *IllustrationInput) (*Presentation, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("fund %s: %w", t.ID, err)
	}

	w, err := finance.BuildWaterfall(t.Waterfall())
	if err != nil {
		return nil, fmt.Errorf("fund %s: %w", t.ID, err)
	}

	p := &Presentation{
		Terms:             t,
		Waterfall:         w,
		CommitmentPercent: finance.FormatPercent(w.GPCommitmentShare),
	}

	for _, tier := range w.Tiers {
		p.Tiers = append(p.Tiers, TierLine{
			Number:      tier.Number,
			Name:        tier.Name,
			Description: tier.Description,
			GP:          finance.FormatPercent(tier.GPShare),
			LP:          finance.FormatPercent(tier.LPShare),
		})
	}

	p.CommitmentLine = fmt.Sprintf("%s will commit %s, or %s of the target raise of %s.",
		generalPartner(t), finance.FormatCurrency(t.GPCommitment),
		p.CommitmentPercent, finance.FormatCurrency(t.TargetRaise))

	if t.ManagementFee.IsPositive() {
		p.ManagementFeeLine = fmt.Sprintf("An annual management fee of %s of commitments (%s per year at the target raise).",
			finance.FormatPercent(t.ManagementFee), finance.FormatCurrency(t.AnnualManagementFee()))
	}

	if ill != nil {
		p.Illustration, err = finance.IllustrateWaterfall(w, ill.Distributable, ill.Contributions, ill.Years)
		if err != nil {
			return nil, fmt.Errorf("fund %s: %w", t.ID, err)
		}
	}

	return p, nil
}

func generalPartner(t Terms) string {
	if t.GeneralPartner == "" {
		return "The General Partner"
	}
	return t.GeneralPartner
}
