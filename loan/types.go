// Package loan implements the loan side of deal documents.
// It turns a terms snapshot into the figures every loan document embeds:
// payment, schedule, disclosure and per-diem interest.
package loan

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dealforge/docfin/finance"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE TYPE
// =============================================================================

// RateType is how the note rate is determined.
type RateType string

const (
	RateFixed   RateType = "fixed"
	RateIndexed RateType = "indexed"
)

// =============================================================================
// DOCUMENT KINDS
// =============================================================================

// DocumentKind identifies which loan document a package is built for.
type DocumentKind string

const (
	KindTermSheet          DocumentKind = "term_sheet"
	KindPromissoryNote     DocumentKind = "promissory_note"
	KindLoanAgreement      DocumentKind = "loan_agreement"
	KindClosingStatement   DocumentKind = "closing_statement"
	KindConsumerDisclosure DocumentKind = "consumer_disclosure"
)

// AllKinds lists every supported document kind.
var AllKinds = []DocumentKind{
	KindTermSheet,
	KindPromissoryNote,
	KindLoanAgreement,
	KindClosingStatement,
	KindConsumerDisclosure,
}

// Valid reports whether k is a known kind.
func (k DocumentKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// DayCount returns the proration convention a document of this kind uses.
// Settlement statements follow commercial Actual/360; consumer-facing
// disclosures use Actual/365. Everything else follows the note.
func (k DocumentKind) DayCount() finance.DayCount {
	if k == KindConsumerDisclosure {
		return finance.Actual365
	}
	return finance.Actual360
}

// Title is the heading used when rendering the document.
func (k DocumentKind) Title() string {
	switch k {
	case KindTermSheet:
		return "Summary of Terms and Conditions"
	case KindPromissoryNote:
		return "Promissory Note"
	case KindLoanAgreement:
		return "Loan Agreement"
	case KindClosingStatement:
		return "Closing Statement"
	case KindConsumerDisclosure:
		return "Truth in Lending Disclosure Statement"
	default:
		return string(k)
	}
}

// =============================================================================
// TERMS
// =============================================================================

// Fee is a one-time charge collected at closing.
type Fee struct {
	Name        string
	Amount      decimal.Decimal
	Description string
	// Prepaid fees are finance charges withheld from the amount financed.
	Prepaid bool
}

// Covenant is an opaque condition carried into document prose.
type Covenant struct {
	Title string
	Text  string
}

// Terms is a snapshot of the commercial terms of a loan.
type Terms struct {
	ID       string
	Borrower string
	Lender   string

	Principal  decimal.Decimal
	AnnualRate decimal.Decimal

	RateType RateType
	Index    string          // e.g. "SOFR", indexed loans only
	Spread   decimal.Decimal // fraction over the index

	TermMonths         int
	AmortizationMonths int
	InterestOnly       bool

	ClosingDate      civil.Date
	FirstPaymentDate civil.Date      // zero value: first of the month after closing
	MonthlyPayment   decimal.Decimal // zero value: derived level payment
	DayPolicy        finance.DayPolicy

	Fees      []Fee
	Covenants []Covenant
}

// Validate checks the terms-level invariants. Schedule-level checks happen
// in finance.Amortize.
func (t Terms) Validate() error {
	if !t.Principal.IsPositive() {
		return fmt.Errorf("%w: principal must be positive", finance.ErrInvalidLoanParameters)
	}
	if t.AnnualRate.IsNegative() {
		return fmt.Errorf("%w: annual rate must not be negative", finance.ErrInvalidLoanParameters)
	}
	if t.TermMonths < 1 || t.AmortizationMonths < 1 {
		return fmt.Errorf("%w: term and amortization must be at least one month", finance.ErrInvalidLoanParameters)
	}
	switch t.RateType {
	case "", RateFixed:
	case RateIndexed:
		if t.Index == "" {
			return fmt.Errorf("%w: indexed loans need an index name", finance.ErrInvalidLoanParameters)
		}
	default:
		return fmt.Errorf("%w: unknown rate type %q", finance.ErrInvalidLoanParameters, t.RateType)
	}
	if !t.ClosingDate.IsValid() {
		return fmt.Errorf("%w: closing date is required", finance.ErrInvalidDate)
	}
	if !t.DayPolicy.Valid() {
		return fmt.Errorf("%w: unknown day policy %q", finance.ErrInvalidLoanParameters, t.DayPolicy)
	}
	prepaid := t.PrepaidFinanceCharges()
	if prepaid.GreaterThanOrEqual(t.Principal) {
		return fmt.Errorf("%w: prepaid finance charges %s exceed principal", finance.ErrInvalidLoanParameters, prepaid)
	}
	for _, f := range t.Fees {
		if f.Amount.IsNegative() {
			return fmt.Errorf("%w: fee %q is negative", finance.ErrInvalidLoanParameters, f.Name)
		}
	}
	return nil
}

// FirstPayment returns the explicit first payment date or the default.
func (t Terms) FirstPayment() civil.Date {
	if t.FirstPaymentDate.IsValid() {
		return t.FirstPaymentDate
	}
	return finance.FirstPaymentDate(t.ClosingDate)
}

// Maturity is the closing date plus the term.
func (t Terms) Maturity() civil.Date {
	return finance.MaturityDate(t.ClosingDate, t.TermMonths)
}

// HasBalloon reports whether the term ends before the loan amortizes.
func (t Terms) HasBalloon() bool {
	return t.InterestOnly || t.TermMonths < t.AmortizationMonths
}

// PrepaidFinanceCharges sums fees flagged as prepaid.
func (t Terms) PrepaidFinanceCharges() decimal.Decimal {
	total := decimal.Zero
	for _, f := range t.Fees {
		if f.Prepaid {
			total = total.Add(f.Amount)
		}
	}
	return total
}

// TotalFees sums every fee.
func (t Terms) TotalFees() decimal.Decimal {
	total := decimal.Zero
	for _, f := range t.Fees {
		total = total.Add(f.Amount)
	}
	return total
}

// RateDescription renders the rate the way documents state it.
func (t Terms) RateDescription() string {
	if t.RateType == RateIndexed {
		return fmt.Sprintf("%s plus %s (initially %s per annum)",
			t.Index, finance.FormatRate(t.Spread, 3), finance.FormatRate(t.AnnualRate, 3))
	}
	return finance.FormatRate(t.AnnualRate, 3) + " per annum, fixed"
}
