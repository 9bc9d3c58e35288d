package document_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dealforge/docfin/document"
	"github.com/dealforge/docfin/factory"
	"github.com/dealforge/docfin/finance"
	"github.com/dealforge/docfin/loan"
	"github.com/dealforge/docfin/store/blob"
	"github.com/dealforge/docfin/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// switchNarrator fails while fail is set.
type switchNarrator struct {
	fail atomic.Bool
}

func (n *switchNarrator) Narrate(ctx context.Context, req document.NarrationRequest) (string, error) {
	if n.fail.Load() {
		return "", document.ErrNarration
	}
	return document.StaticNarrator{}.Narrate(ctx, req)
}

type serviceFixture struct {
	svc      *document.Service
	meta     *sqlite.Store
	blobs    *blob.MemoryStore
	narrator *switchNarrator
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	meta, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	f := &serviceFixture{meta: meta, blobs: blob.NewMemoryStore(), narrator: &switchNarrator{}}
	f.svc = document.NewService(
		loan.NewCalculator(zap.NewNop(), nil),
		document.NewBuilder(f.narrator, zap.NewNop()),
		factory.NewTermsFactory(finance.DayClamp28),
		meta, f.blobs, zap.NewNop(),
	)
	f.svc.SetClock(func() time.Time { return time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC) })
	return f
}

func loanTermsJSON() factory.LoanTermsJSON {
	return factory.LoanTermsJSON{
		ID:                 "deal-7",
		Borrower:           "Acme Holdings LLC",
		Lender:             "First Harbor Bank",
		Principal:          json.Number("500000"),
		AnnualRate:         json.Number("0.07"),
		TermMonths:         60,
		AmortizationMonths: 300,
		ClosingDate:        "2025-01-15",
		Fees:               []factory.FeeJSON{{Name: "Origination Fee", Amount: json.Number("5000"), Prepaid: true}},
	}
}

func TestService_CreateLoanDocument(t *testing.T) {
	// GIVEN: Balloon loan terms
	// WHEN: Creating a closing statement
	// THEN: A ready version-1 row and a stored body that carries the figures

	f := newServiceFixture(t)
	ctx := context.Background()

	rec, err := f.svc.CreateLoanDocument(ctx, loanTermsJSON(), loan.KindClosingStatement, document.FormatMarkdown)
	require.NoError(t, err)

	assert.Equal(t, "deal-7", rec.DealID)
	assert.Equal(t, sqlite.StatusReady, rec.Status)
	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, "Closing Statement", rec.Title)
	assert.Equal(t, blob.Key("deal-7", rec.ID, 1, "md"), rec.BlobKey)

	body, contentType, err := f.svc.Content(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "text/markdown; charset=utf-8", contentType)
	assert.Equal(t, int64(len(body)), rec.SizeBytes)
	assert.Contains(t, string(body), "$1,652.78")
	assert.Contains(t, string(body), "$3,533.90")
}

func TestService_CreateRejectsUnknownKindAndFormat(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateLoanDocument(ctx, loanTermsJSON(), "deed_of_trust", document.FormatMarkdown)
	assert.ErrorIs(t, err, document.ErrInvalidRequest)

	_, err = f.svc.CreateLoanDocument(ctx, loanTermsJSON(), loan.KindTermSheet, "docx")
	assert.ErrorIs(t, err, document.ErrInvalidRequest)

	_, err = f.svc.CreateFundDocument(ctx, factory.FundTermsJSON{}, "side_letter", nil, document.FormatText)
	assert.ErrorIs(t, err, document.ErrInvalidRequest)

	bad := loanTermsJSON()
	bad.Principal = json.Number("-1")
	_, err = f.svc.CreateLoanDocument(ctx, bad, loan.KindTermSheet, document.FormatText)
	assert.ErrorIs(t, err, finance.ErrInvalidLoanParameters)
}

func TestService_CreateFundDocument(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	fj := factory.FundTermsJSON{
		ID:              "fund-3",
		Name:            "Harbor Capital Partners III",
		GeneralPartner:  "Harbor GP LLC",
		Strategy:        "buyout",
		TargetRaise:     json.Number("100000000"),
		GPCommitment:    json.Number("2000000"),
		PreferredReturn: json.Number("0.08"),
		CarriedInterest: json.Number("0.2"),
		ManagementFee:   json.Number("0.02"),
	}
	ill := &factory.IllustrationJSON{Distributable: "200", Contributions: "100", Years: 1}

	rec, err := f.svc.CreateFundDocument(ctx, fj, document.FundPPMSummary, ill, document.FormatText)
	require.NoError(t, err)
	assert.Equal(t, "fund-3", rec.DealID)
	assert.True(t, strings.HasSuffix(rec.BlobKey, "-v1.txt"))

	body, contentType, err := f.svc.Content(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", contentType)
	assert.Contains(t, string(body), "Distribution Waterfall\n----------------------")
	assert.Contains(t, string(body), "2% of the target raise")
}

func TestService_Regenerate(t *testing.T) {
	// GIVEN: A stored term sheet
	// WHEN: Regenerating it
	// THEN: Version 2 is stored under a new key; version 1 is still readable

	f := newServiceFixture(t)
	ctx := context.Background()

	rec, err := f.svc.CreateLoanDocument(ctx, loanTermsJSON(), loan.KindTermSheet, document.FormatMarkdown)
	require.NoError(t, err)

	again, err := f.svc.Regenerate(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, again.Version)
	assert.Equal(t, sqlite.StatusReady, again.Status)
	assert.Equal(t, blob.Key("deal-7", rec.ID, 2, "md"), again.BlobKey)

	_, err = f.blobs.Get(ctx, rec.BlobKey)
	assert.NoError(t, err)
}

func TestService_RegenerateRollsBackOnFailure(t *testing.T) {
	// GIVEN: A stored document and a narrator that starts failing
	// WHEN: Regenerating
	// THEN: The error surfaces and the row returns to ready with the cause recorded

	f := newServiceFixture(t)
	ctx := context.Background()

	rec, err := f.svc.CreateLoanDocument(ctx, loanTermsJSON(), loan.KindTermSheet, document.FormatMarkdown)
	require.NoError(t, err)

	f.narrator.fail.Store(true)
	_, err = f.svc.Regenerate(ctx, rec.ID)
	assert.ErrorIs(t, err, document.ErrNarration)

	after, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, sqlite.StatusReady, after.Status)
	assert.Equal(t, 1, after.Version)
	assert.Equal(t, rec.BlobKey, after.BlobKey)
	assert.Contains(t, after.Error, "narration failed")

	f.narrator.fail.Store(false)
	ok, err := f.svc.Regenerate(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ok.Version)
	assert.Empty(t, ok.Error)
}

func TestService_RegenerateGuard(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	rec, err := f.svc.CreateLoanDocument(ctx, loanTermsJSON(), loan.KindTermSheet, document.FormatMarkdown)
	require.NoError(t, err)

	_, err = f.meta.BeginRegeneration(ctx, rec.ID)
	require.NoError(t, err)

	_, err = f.svc.Regenerate(ctx, rec.ID)
	assert.ErrorIs(t, err, sqlite.ErrGenerationInProgress)

	_, err = f.svc.Regenerate(ctx, "missing")
	assert.True(t, sqlite.IsNotFound(err))
}

func TestService_List(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	for _, kind := range []loan.DocumentKind{loan.KindTermSheet, loan.KindPromissoryNote} {
		_, err := f.svc.CreateLoanDocument(ctx, loanTermsJSON(), kind, document.FormatMarkdown)
		require.NoError(t, err)
	}

	docs, err := f.svc.List(ctx, "deal-7", 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	none, err := f.svc.List(ctx, "deal-8", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
