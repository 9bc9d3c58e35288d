package document_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dealforge/docfin/document"
	"github.com/dealforge/docfin/fund"
	"github.com/dealforge/docfin/loan"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var closing = civil.Date{Year: 2025, Month: time.January, Day: 15}

func balloonPackage(t *testing.T, kind loan.DocumentKind) *loan.Package {
	t.Helper()
	terms := loan.CommercialBalloon("loan-1", dec("500000"), dec("0.07"), closing)
	terms.Borrower = "Acme Holdings LLC"
	terms.Lender = "First Harbor Bank"

	pkg, err := loan.NewCalculator(zap.NewNop(), nil).Build(context.Background(), terms, kind, closing)
	require.NoError(t, err)
	return pkg
}

func headings(doc *document.Document) []string {
	var out []string
	for _, s := range doc.Sections {
		out = append(out, s.Heading)
	}
	return out
}

func TestBuilder_LoanSectionsByKind(t *testing.T) {
	cases := map[loan.DocumentKind][]string{
		loan.KindTermSheet: {
			document.SectionSummary, document.SectionTerms, document.SectionFees,
			document.SectionDisclosure, document.SectionCovenants,
		},
		loan.KindPromissoryNote: {
			document.SectionSummary, document.SectionTerms, document.SectionFees,
			document.SectionSchedule, document.SectionSignatures,
		},
		loan.KindLoanAgreement: {
			document.SectionSummary, document.SectionTerms, document.SectionFees,
			document.SectionSchedule, document.SectionCovenants, document.SectionSignatures,
		},
		loan.KindClosingStatement: {
			document.SectionSummary, document.SectionTerms, document.SectionFees,
			document.SectionDisclosure, document.SectionInterest,
		},
		loan.KindConsumerDisclosure: {
			document.SectionSummary, document.SectionTerms, document.SectionFees,
			document.SectionDisclosure, document.SectionInterest, document.SectionSchedule,
		},
	}

	b := document.NewBuilder(nil, zap.NewNop())
	for kind, want := range cases {
		t.Run(string(kind), func(t *testing.T) {
			doc, err := b.Loan(context.Background(), balloonPackage(t, kind))
			require.NoError(t, err)
			assert.Equal(t, want, headings(doc))
			assert.Equal(t, kind.Title(), doc.Title)
			assert.Equal(t, "loan-1", doc.DealID)
		})
	}
}

func TestBuilder_ScheduleTableFigures(t *testing.T) {
	// GIVEN: A balloon loan agreement
	// WHEN: Laying out the schedule
	// THEN: 60 numbered rows, a balloon row, and a total row

	doc, err := document.NewBuilder(nil, nil).Loan(context.Background(), balloonPackage(t, loan.KindLoanAgreement))
	require.NoError(t, err)

	sec := doc.Section(document.SectionSchedule)
	require.NotNil(t, sec)
	tbl, ok := sec.Blocks[0].(document.Table)
	require.True(t, ok)
	require.Len(t, tbl.Rows, 62)

	assert.Equal(t, []string{"1", "February 1, 2025", "$3,533.90"}, tbl.Rows[0][:3])
	assert.Equal(t, "Balloon", tbl.Rows[60][0])
	assert.Equal(t, "January 15, 2030", tbl.Rows[60][1])
	assert.Equal(t, "$0.00", tbl.Rows[60][5])
	assert.Equal(t, "Total", tbl.Rows[61][0])
	assert.Equal(t, "$500,000.00", tbl.Rows[61][3])
}

func TestBuilder_PrepaidInterestParagraph(t *testing.T) {
	doc, err := document.NewBuilder(nil, nil).Loan(context.Background(), balloonPackage(t, loan.KindClosingStatement))
	require.NoError(t, err)

	p := doc.Section(document.SectionInterest).Blocks[0].(document.Paragraph)
	assert.Equal(t,
		"Interest from January 15, 2025 to February 1, 2025 (17 days) at $97.22 per day, computed on an Actual/360 basis: $1,652.78.",
		p.Text)
}

func TestBuilder_TermsSpellPrincipal(t *testing.T) {
	doc, err := document.NewBuilder(nil, nil).Loan(context.Background(), balloonPackage(t, loan.KindPromissoryNote))
	require.NoError(t, err)

	defs := doc.Section(document.SectionTerms).Blocks[0].(document.Definitions)
	var principal string
	for _, d := range defs.Items {
		if d.Term == "Principal Amount" {
			principal = d.Value
		}
	}
	assert.Equal(t, "$500,000.00 (Five Hundred Thousand and 00/100 Dollars)", principal)
}

type failingNarrator struct{}

func (failingNarrator) Narrate(context.Context, document.NarrationRequest) (string, error) {
	return "", document.ErrNarration
}

func TestBuilder_NarratorFailureStopsLayout(t *testing.T) {
	_, err := document.NewBuilder(failingNarrator{}, nil).Loan(context.Background(), balloonPackage(t, loan.KindTermSheet))
	assert.True(t, errors.Is(err, document.ErrNarration))
}

func TestBuilder_Fund(t *testing.T) {
	// GIVEN: A buyout fund with an illustration
	// WHEN: Laying out both fund documents
	// THEN: Tier percentages and the illustration totals appear

	terms := fund.BuyoutFund("fund-1", "Harbor Capital Partners III", dec("100000000"))
	terms.GeneralPartner = "Harbor GP LLC"
	p, err := fund.Present(terms, &fund.IllustrationInput{
		Distributable: dec("200000000"),
		Contributions: dec("100000000"),
		Years:         1,
	})
	require.NoError(t, err)

	b := document.NewBuilder(nil, nil)
	ppm, err := b.Fund(context.Background(), p, document.FundPPMSummary, closing)
	require.NoError(t, err)
	assert.Equal(t, []string{
		document.SectionOverview, document.SectionFundTerms,
		document.SectionWaterfall, document.SectionIllustration,
	}, headings(ppm))

	wf := ppm.Section(document.SectionWaterfall).Blocks[0].(document.Table)
	require.Len(t, wf.Rows, 4)
	assert.Equal(t, []string{"20%", "80%"}, wf.Rows[3][3:])

	ill := ppm.Section(document.SectionIllustration).Blocks[0].(document.Table)
	assert.Equal(t, "Total", ill.Rows[len(ill.Rows)-1][0])
	assert.Equal(t, "$200,000,000.00", ill.Rows[len(ill.Rows)-1][1])

	lpa, err := b.Fund(context.Background(), p, document.FundLPAEconomics, closing)
	require.NoError(t, err)
	assert.Equal(t, document.SectionSignatures, lpa.Sections[len(lpa.Sections)-1].Heading)
	assert.Nil(t, lpa.Section(document.SectionOverview))

	body, err := document.Render(lpa, document.FormatMarkdown)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "Harbor GP LLC will commit $2,000,000.00, or 2% of the target raise of $100,000,000.00."))

	_, err = b.Fund(context.Background(), p, "side_letter", closing)
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "January 15, 2025", document.FormatDate(closing))
	assert.Equal(t, "________________", document.FormatDate(civil.Date{}))
}
