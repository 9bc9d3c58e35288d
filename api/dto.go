/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the finance and loan types from the external API contract.

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *Response: Response types returned to clients
  - *DTO:      Nested response values

MONEY:
  Requests carry money and rates as json.Number, so 500000 and "500000"
  are both accepted. Responses carry money as strings fixed to cents
  ("3533.90") and, where a document would show it, the formatted value.

VALIDATION:
  Struct tags are checked with go-playground/validator before a handler
  touches the body. Domain rules (balloon ordering, catch-up share) are
  checked by the domain packages.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/terms.go: LoanTermsJSON and FundTermsJSON
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/dealforge/docfin/factory"
	"github.com/dealforge/docfin/store/sqlite"
)

// =============================================================================
// LOANS
// =============================================================================

// LoanRequest carries loan terms and, optionally, the document kind whose
// conventions apply.
type LoanRequest struct {
	Terms factory.LoanTermsJSON `json:"terms"`
	Kind  string                `json:"kind,omitempty" validate:"omitempty,oneof=term_sheet promissory_note loan_agreement closing_statement consumer_disclosure"`
}

// RowDTO is one amortization row.
type RowDTO struct {
	Month     int    `json:"month"`
	Date      string `json:"date"`
	Payment   string `json:"payment"`
	Principal string `json:"principal"`
	Interest  string `json:"interest"`
	Balance   string `json:"balance"`
	Balloon   bool   `json:"balloon,omitempty"`
}

// ScheduleResponse is an amortization schedule.
type ScheduleResponse struct {
	LoanID           string   `json:"loan_id"`
	MonthlyPayment   string   `json:"monthly_payment"`
	FirstPaymentDate string   `json:"first_payment_date"`
	MaturityDate     string   `json:"maturity_date"`
	Rows             []RowDTO `json:"rows"`
	Balloon          *RowDTO  `json:"balloon,omitempty"`
	TotalPayments    string   `json:"total_payments"`
	TotalPrincipal   string   `json:"total_principal"`
	TotalInterest    string   `json:"total_interest"`
}

// APRDTO is an APR solve result.
type APRDTO struct {
	Display      string  `json:"display"`
	Percent      string  `json:"percent"`
	PeriodicRate float64 `json:"periodic_rate"`
	Iterations   int     `json:"iterations"`
	Converged    bool    `json:"converged"`
	Degenerate   bool    `json:"degenerate"`
}

// DisclosureResponse is the Truth-in-Lending box plus prepaid interest.
type DisclosureResponse struct {
	LoanID                  string `json:"loan_id"`
	Kind                    string `json:"kind"`
	APR                     APRDTO `json:"apr"`
	FinanceCharge           string `json:"finance_charge"`
	AmountFinanced          string `json:"amount_financed"`
	TotalOfPayments         string `json:"total_of_payments"`
	TotalInterestPercentage string `json:"total_interest_percentage"`
	DayCount                string `json:"day_count"`
	PerDiem                 string `json:"per_diem"`
	PrepaidInterestDays     int    `json:"prepaid_interest_days"`
	PrepaidInterest         string `json:"prepaid_interest"`
}

// PerDiemRequest asks for daily interest under a convention.
type PerDiemRequest struct {
	Principal  json.Number `json:"principal" validate:"required"`
	AnnualRate json.Number `json:"annual_rate" validate:"required"`
	Convention string      `json:"convention" validate:"required,oneof=actual_360 actual_365"`
	Days       int         `json:"days" validate:"gte=0,lte=36600"`
}

// PerDiemResponse is daily interest and, when days were given, the
// prorated total.
type PerDiemResponse struct {
	Convention string `json:"convention"`
	PerDiem    string `json:"per_diem"`
	Days       int    `json:"days"`
	Amount     string `json:"amount"`
}

// ProrationDTO is one document's prorated interest figure.
type ProrationDTO struct {
	Document   string      `json:"document" validate:"required"`
	Convention string      `json:"convention" validate:"required,oneof=actual_360 actual_365"`
	Days       int         `json:"days" validate:"gte=0"`
	Amount     json.Number `json:"amount" validate:"required"`
}

// ConsistencyRequest compares two documents' proration figures.
type ConsistencyRequest struct {
	Principal  json.Number  `json:"principal" validate:"required"`
	AnnualRate json.Number  `json:"annual_rate" validate:"required"`
	A          ProrationDTO `json:"a"`
	B          ProrationDTO `json:"b"`
}

// ConsistencyResponse reports whether the figures agree.
type ConsistencyResponse struct {
	Consistent bool   `json:"consistent"`
	Reason     string `json:"reason,omitempty"`
	Expected   string `json:"expected,omitempty"`
	Actual     string `json:"actual,omitempty"`
}

// =============================================================================
// APR AND DATES
// =============================================================================

// APRRequest solves APR from either a level payment or a finance charge.
type APRRequest struct {
	AmountFinanced json.Number `json:"amount_financed" validate:"required"`
	Payment        json.Number `json:"payment,omitempty" validate:"required_without=FinanceCharge"`
	FinanceCharge  json.Number `json:"finance_charge,omitempty" validate:"required_without=Payment"`
	TermMonths     int         `json:"term_months" validate:"gte=0,lte=600"`
}

// MaturityRequest asks for the maturity of a term starting on a date.
type MaturityRequest struct {
	StartDate  string `json:"start_date" validate:"required"`
	TermMonths int    `json:"term_months" validate:"gte=0,lte=1200"`
}

// MaturityResponse holds the derived dates.
type MaturityResponse struct {
	StartDate        string `json:"start_date"`
	MaturityDate     string `json:"maturity_date"`
	FirstPaymentDate string `json:"first_payment_date"`
	Days             int    `json:"days"`
}

// =============================================================================
// FUNDS
// =============================================================================

// WaterfallRequest carries fund terms and an optional dollar example.
type WaterfallRequest struct {
	Terms        factory.FundTermsJSON     `json:"terms"`
	Illustration *factory.IllustrationJSON `json:"illustration,omitempty"`
}

// TierDTO is one waterfall tier.
type TierDTO struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Description string `json:"description"`
	GPShare     string `json:"gp_share"`
	LPShare     string `json:"lp_share"`
}

// TierAmountDTO is one tier of an illustration.
type TierAmountDTO struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	ToGP   string `json:"to_gp"`
	ToLP   string `json:"to_lp"`
}

// IllustrationDTO is a dollar waterfall example.
type IllustrationDTO struct {
	Distributable string          `json:"distributable"`
	Contributions string          `json:"contributions"`
	Years         int             `json:"years"`
	Tiers         []TierAmountDTO `json:"tiers"`
	TotalGP       string          `json:"total_gp"`
	TotalLP       string          `json:"total_lp"`
}

// WaterfallResponse is the waterfall as documents present it.
type WaterfallResponse struct {
	FundID            string           `json:"fund_id"`
	Tiers             []TierDTO        `json:"tiers"`
	CommitmentPercent string           `json:"commitment_percent"`
	CommitmentLine    string           `json:"commitment_line"`
	ManagementFeeLine string           `json:"management_fee_line,omitempty"`
	Illustration      *IllustrationDTO `json:"illustration,omitempty"`
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// CreateDocumentRequest generates a document from loan or fund terms.
type CreateDocumentRequest struct {
	Kind         string                    `json:"kind" validate:"required"`
	Format       string                    `json:"format,omitempty" validate:"omitempty,oneof=markdown text"`
	Loan         *factory.LoanTermsJSON    `json:"loan,omitempty" validate:"required_without=Fund"`
	Fund         *factory.FundTermsJSON    `json:"fund,omitempty" validate:"required_without=Loan"`
	Illustration *factory.IllustrationJSON `json:"illustration,omitempty"`
}

// DocumentDTO is document metadata.
type DocumentDTO struct {
	ID        string `json:"id"`
	DealID    string `json:"deal_id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Format    string `json:"format"`
	Status    string `json:"status"`
	Version   int    `json:"version"`
	SizeBytes int64  `json:"size_bytes"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toDocumentDTO(d *sqlite.Document) DocumentDTO {
	dto := DocumentDTO{
		ID:        d.ID,
		DealID:    d.DealID,
		Kind:      d.Kind,
		Title:     d.Title,
		Format:    d.Format,
		Status:    string(d.Status),
		Version:   d.Version,
		SizeBytes: d.SizeBytes,
		Error:     d.Error,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
	if !d.UpdatedAt.IsZero() {
		dto.UpdatedAt = d.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
