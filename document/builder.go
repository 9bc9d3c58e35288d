/*
builder.go - Document assembly

PURPOSE:
  Lays out a loan package or fund presentation as a document tree. The
  builder decides which sections a document kind carries and formats
  every figure; prose comes from the Narrator.

LOAN DOCUMENT SECTIONS:
                        terms  fees  disclosure  interest  schedule  covenants  signatures
  term_sheet              x     x        x                             x
  promissory_note         x     x                             x                     x
  loan_agreement          x     x                             x        x            x
  closing_statement       x     x        x          x
  consumer_disclosure     x     x        x          x         x

FUND DOCUMENT SECTIONS:
  ppm_summary:   overview, key terms, waterfall, illustration
  lpa_economics: key terms, waterfall, illustration, signature

SEE ALSO:
  - loan/package.go: Loan figures
  - fund/presentation.go: Waterfall presentation
  - render.go: Packing the tree
*/
package document

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dealforge/docfin/finance"
	"github.com/dealforge/docfin/fund"
	"github.com/dealforge/docfin/loan"
	"go.uber.org/zap"
)

// FundKind identifies a fund-formation document.
type FundKind string

const (
	FundPPMSummary   FundKind = "ppm_summary"
	FundLPAEconomics FundKind = "lpa_economics"
)

// Valid reports whether k is a known fund document kind.
func (k FundKind) Valid() bool {
	return k == FundPPMSummary || k == FundLPAEconomics
}

// Title is the document heading.
func (k FundKind) Title() string {
	if k == FundLPAEconomics {
		return "Limited Partnership Agreement: Economic Terms"
	}
	return "Private Placement Memorandum: Summary of Principal Terms"
}

// Section headings.
const (
	SectionSummary      = "Summary"
	SectionTerms        = "Principal Terms"
	SectionFees         = "Fees and Charges"
	SectionDisclosure   = "Federal Truth in Lending Disclosures"
	SectionInterest     = "Prepaid Interest"
	SectionSchedule     = "Payment Schedule"
	SectionCovenants    = "Covenants and Conditions"
	SectionSignatures   = "Signatures"
	SectionOverview     = "Fund Overview"
	SectionFundTerms    = "Key Terms"
	SectionWaterfall    = "Distribution Waterfall"
	SectionIllustration = "Illustrative Distribution"
)

// Builder lays out documents.
type Builder struct {
	narrator Narrator
	logger   *zap.Logger
}

// NewBuilder creates a builder. A nil narrator uses StaticNarrator.
func NewBuilder(n Narrator, logger *zap.Logger) *Builder {
	if n == nil {
		n = StaticNarrator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{narrator: n, logger: logger}
}

// =============================================================================
// LOAN DOCUMENTS
// =============================================================================

// Loan lays out a loan document for the package's kind.
func (b *Builder) Loan(ctx context.Context, p *loan.Package) (*Document, error) {
	t := p.Terms
	doc := &Document{
		Title:    p.Kind.Title(),
		Subtitle: fmt.Sprintf("Loan %s, dated %s", t.ID, FormatDate(p.GeneratedOn)),
		Kind:     string(p.Kind),
		DealID:   t.ID,
	}

	summary, err := b.narrator.Narrate(ctx, NarrationRequest{
		DocumentKind: string(p.Kind),
		Section:      SectionSummary,
		Facts:        loanFacts(p),
	})
	if err != nil {
		return nil, err
	}
	if summary != "" {
		doc.AddSection(SectionSummary, Paragraph{Text: summary})
	}

	doc.AddSection(SectionTerms, loanTerms(p))
	if len(t.Fees) > 0 {
		doc.AddSection(SectionFees, feeTable(t))
	}

	switch p.Kind {
	case loan.KindTermSheet:
		doc.AddSection(SectionDisclosure, disclosure(p)...)
		b.addCovenants(doc, t)
	case loan.KindPromissoryNote:
		doc.AddSection(SectionSchedule, scheduleTable(p))
		addSignatures(doc, t)
	case loan.KindLoanAgreement:
		doc.AddSection(SectionSchedule, scheduleTable(p))
		b.addCovenants(doc, t)
		addSignatures(doc, t)
	case loan.KindClosingStatement:
		doc.AddSection(SectionDisclosure, disclosure(p)...)
		doc.AddSection(SectionInterest, prepaidInterest(p))
	case loan.KindConsumerDisclosure:
		doc.AddSection(SectionDisclosure, disclosure(p)...)
		doc.AddSection(SectionInterest, prepaidInterest(p))
		doc.AddSection(SectionSchedule, scheduleTable(p))
	}

	b.logger.Debug("loan document laid out",
		zap.String("op", "document.Loan"),
		zap.String("loan_id", t.ID),
		zap.String("kind", string(p.Kind)),
		zap.Int("sections", len(doc.Sections)),
	)
	return doc, nil
}

func loanFacts(p *loan.Package) []Fact {
	facts := []Fact{
		{"Principal amount", finance.FormatCurrency(p.Terms.Principal)},
		{"Interest rate", p.Terms.RateDescription()},
		{"Term", months(p.Terms.TermMonths)},
		{"Monthly payment", finance.FormatCurrency(p.MonthlyPayment)},
		{"Maturity date", FormatDate(p.Maturity)},
	}
	if p.Terms.Borrower != "" {
		facts = append([]Fact{{"Borrower", p.Terms.Borrower}}, facts...)
	}
	if balloon, ok := p.Schedule.Balloon(); ok {
		facts = append(facts, Fact{"Balloon payment due at maturity", finance.FormatCurrency(balloon.Payment)})
	}
	return facts
}

func loanTerms(p *loan.Package) Definitions {
	t := p.Terms
	var items []Definition
	if t.Borrower != "" {
		items = append(items, Definition{"Borrower", t.Borrower})
	}
	if t.Lender != "" {
		items = append(items, Definition{"Lender", t.Lender})
	}

	amortization := months(t.AmortizationMonths)
	if t.InterestOnly {
		amortization = "None (interest only)"
	}

	items = append(items,
		Definition{"Principal Amount", finance.FormatCurrency(t.Principal) + " (" + finance.AmountInWords(t.Principal) + ")"},
		Definition{"Interest Rate", t.RateDescription()},
		Definition{"Term", months(t.TermMonths)},
		Definition{"Amortization", amortization},
		Definition{"Monthly Payment", finance.FormatCurrency(p.MonthlyPayment)},
		Definition{"Closing Date", FormatDate(t.ClosingDate)},
		Definition{"First Payment Date", FormatDate(p.FirstPayment)},
		Definition{"Maturity Date", FormatDate(p.Maturity)},
	)
	if balloon, ok := p.Schedule.Balloon(); ok {
		items = append(items, Definition{"Balloon Payment", finance.FormatCurrency(balloon.Payment) + " due " + FormatDate(balloon.Date)})
	}
	return Definitions{Items: items}
}

func feeTable(t loan.Terms) Table {
	tbl := Table{
		Headers:    []string{"Fee", "Amount", "Prepaid Finance Charge"},
		RightAlign: []bool{false, true, false},
	}
	for _, f := range t.Fees {
		prepaid := "No"
		if f.Prepaid {
			prepaid = "Yes"
		}
		tbl.Rows = append(tbl.Rows, []string{f.Name, finance.FormatCurrency(f.Amount), prepaid})
	}
	tbl.Rows = append(tbl.Rows, []string{"Total", finance.FormatCurrency(t.TotalFees()), ""})
	return tbl
}

func disclosure(p *loan.Package) []Block {
	d := p.Disclosure
	apr := finance.FormatAPR(d.APR)
	if d.APR.Degenerate {
		apr = "Not applicable"
	}
	blocks := []Block{Definitions{Items: []Definition{
		{"Annual Percentage Rate", apr},
		{"Finance Charge", finance.FormatCurrency(d.FinanceCharge)},
		{"Amount Financed", finance.FormatCurrency(d.AmountFinanced)},
		{"Total of Payments", finance.FormatCurrency(d.TotalOfPayments)},
		{"Total Interest Percentage", d.TotalInterestPercentage.StringFixed(3) + "%"},
	}}}
	if !d.APR.Degenerate && !d.APR.Converged {
		blocks = append(blocks, Paragraph{Text: "The Annual Percentage Rate shown is an estimate."})
	}
	return blocks
}

func prepaidInterest(p *loan.Package) Paragraph {
	basis := "Actual/360"
	if p.DayCount == finance.Actual365 {
		basis = "Actual/365"
	}
	through := finance.FirstPaymentDate(p.Terms.ClosingDate)
	return Paragraph{Text: fmt.Sprintf(
		"Interest from %s to %s (%d days) at %s per day, computed on an %s basis: %s.",
		FormatDate(p.Terms.ClosingDate), FormatDate(through), p.PrepaidInterestDays,
		finance.FormatCurrency(p.PerDiem), basis, finance.FormatCurrency(p.PrepaidInterest),
	)}
}

func scheduleTable(p *loan.Package) Table {
	tbl := Table{
		Headers:    []string{"No.", "Date", "Payment", "Principal", "Interest", "Balance"},
		RightAlign: []bool{true, false, true, true, true, true},
	}
	for _, r := range p.Schedule.Rows {
		label := strconv.Itoa(r.Month)
		if r.Balloon {
			label = "Balloon"
		}
		tbl.Rows = append(tbl.Rows, []string{
			label,
			FormatDate(r.Date),
			finance.FormatCurrency(r.Payment),
			finance.FormatCurrency(r.Principal),
			finance.FormatCurrency(r.Interest),
			finance.FormatCurrency(r.EndingBalance),
		})
	}
	s := p.Schedule
	tbl.Rows = append(tbl.Rows, []string{"Total", "",
		finance.FormatCurrency(s.TotalPayments),
		finance.FormatCurrency(s.TotalPrincipal),
		finance.FormatCurrency(s.TotalInterest),
		""})
	return tbl
}

func (b *Builder) addCovenants(doc *Document, t loan.Terms) {
	if len(t.Covenants) == 0 {
		return
	}
	sec := doc.AddSection(SectionCovenants)
	for i, c := range t.Covenants {
		sec.Add(Paragraph{Text: fmt.Sprintf("%d. %s. %s", i+1, c.Title, c.Text)})
	}
}

func addSignatures(doc *Document, t loan.Terms) {
	doc.AddSection(SectionSignatures,
		Signature{Party: "Borrower", Name: orBlank(t.Borrower)},
		Signature{Party: "Lender", Name: orBlank(t.Lender)},
	)
}

// =============================================================================
// FUND DOCUMENTS
// =============================================================================

// Fund lays out a fund-formation document.
func (b *Builder) Fund(ctx context.Context, p *fund.Presentation, kind FundKind, generatedOn civil.Date) (*Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown fund document kind %q", finance.ErrInvalidWaterfall, kind)
	}
	t := p.Terms
	doc := &Document{
		Title:    kind.Title(),
		Subtitle: fmt.Sprintf("%s, dated %s", orBlank(t.Name), FormatDate(generatedOn)),
		Kind:     string(kind),
		DealID:   t.ID,
	}

	if kind == FundPPMSummary {
		overview, err := b.narrator.Narrate(ctx, NarrationRequest{
			DocumentKind: string(kind),
			Section:      SectionOverview,
			Facts: []Fact{
				{"Fund", orBlank(t.Name)},
				{"Strategy", string(t.Strategy)},
				{"Target raise", finance.FormatCurrency(t.TargetRaise)},
				{"Preferred return", finance.FormatPercent(t.PreferredReturn)},
				{"Carried interest", finance.FormatPercent(t.CarriedInterest)},
			},
		})
		if err != nil {
			return nil, err
		}
		if overview != "" {
			doc.AddSection(SectionOverview, Paragraph{Text: overview})
		}
	}

	items := []Definition{
		{"Fund", orBlank(t.Name)},
		{"General Partner", orBlank(t.GeneralPartner)},
		{"Target Raise", finance.FormatCurrency(t.TargetRaise)},
		{"GP Commitment", finance.FormatCurrency(t.GPCommitment) + " (" + p.CommitmentPercent + ")"},
		{"Preferred Return", finance.FormatPercent(t.PreferredReturn) + " per annum, compounding"},
		{"Carried Interest", finance.FormatPercent(t.CarriedInterest)},
	}
	if t.TermYears > 0 {
		items = append(items, Definition{"Term", fmt.Sprintf("%d years", t.TermYears)})
	}
	terms := doc.AddSection(SectionFundTerms, Definitions{Items: items}, Paragraph{Text: p.CommitmentLine})
	if p.ManagementFeeLine != "" {
		terms.Add(Paragraph{Text: p.ManagementFeeLine})
	}

	wf := Table{
		Headers:    []string{"Tier", "Name", "Description", "GP", "LP"},
		RightAlign: []bool{true, false, false, true, true},
	}
	for _, tl := range p.Tiers {
		wf.Rows = append(wf.Rows, []string{strconv.Itoa(tl.Number), tl.Name, tl.Description, tl.GP, tl.LP})
	}
	doc.AddSection(SectionWaterfall, wf)

	if ill := p.Illustration; ill != nil {
		tbl := Table{
			Caption: fmt.Sprintf("Distribution of %s on %s of contributions held %d years",
				finance.FormatCurrency(ill.Distributable), finance.FormatCurrency(ill.Contributions), ill.Years),
			Headers:    []string{"Tier", "Amount", "To GP", "To LP"},
			RightAlign: []bool{false, true, true, true},
		}
		for _, ta := range ill.Tiers {
			tbl.Rows = append(tbl.Rows, []string{ta.Name,
				finance.FormatCurrency(ta.Amount), finance.FormatCurrency(ta.ToGP), finance.FormatCurrency(ta.ToLP)})
		}
		tbl.Rows = append(tbl.Rows, []string{"Total",
			finance.FormatCurrency(ill.Distributable), finance.FormatCurrency(ill.TotalGP), finance.FormatCurrency(ill.TotalLP)})
		doc.AddSection(SectionIllustration, tbl)
	}

	if kind == FundLPAEconomics {
		doc.AddSection(SectionSignatures, Signature{Party: "General Partner", Name: orBlank(t.GeneralPartner)})
	}
	return doc, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// FormatDate renders a date the way documents state it: "January 15, 2025".
func FormatDate(d civil.Date) string {
	if !d.IsValid() {
		return "________________"
	}
	return d.In(time.UTC).Format("January 2, 2006")
}

func months(n int) string {
	if n == 1 {
		return "1 month"
	}
	return strconv.Itoa(n) + " months"
}

func orBlank(s string) string {
	if s == "" {
		return "________________"
	}
	return s
}
