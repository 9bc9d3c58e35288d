/*
Package factory converts JSON and YAML terms into loan and fund terms.

PURPOSE:
  Deal terms arrive as JSON from the API and as YAML files from the CLI.
  The factory parses both, fills in defaults, and produces loan.Terms or
  fund.Terms that the calculators accept.

  Money and rates are carried as json.Number so that both 500000 and
  "500000" are accepted and no value ever passes through float64.

JSON SCHEMA (loan):
  {
    "id": "loan-42",
    "borrower": "Acme Holdings LLC",
    "lender": "First Harbor Bank",
    "principal": "500000",
    "annual_rate": "0.07",
    "term_months": 60,
    "amortization_months": 300,
    "closing_date": "2025-01-15",
    "fees": [
      {"name": "Origination Fee", "amount": "5000", "prepaid": true}
    ]
  }

DEFAULTS:
  - amortization_months: term_months
  - rate_type:           fixed
  - day_policy:          factory default (PAYMENT_DAY_POLICY), else clamp_28
  - first_payment_date:  first day of the month after closing (left zero)
  - fund catch_up:       100%
  - fund term_years:     10

USAGE:
  f := factory.NewTermsFactory(finance.DayClamp28)
  terms, err := f.ParseLoanJSON(body)
  terms, err := f.ParseLoanFile("deal.yaml")

SEE ALSO:
  - loan/types.go: Terms type definition
  - loan/presets.go: Go-based loan structures
  - fund/types.go: Fund terms
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dealforge/docfin/finance"
	"github.com/dealforge/docfin/fund"
	"github.com/dealforge/docfin/loan"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// LoanTermsJSON is the wire form of loan terms.
type LoanTermsJSON struct {
	ID                 string         `json:"id" yaml:"id"`
	Borrower           string         `json:"borrower,omitempty" yaml:"borrower"`
	Lender             string         `json:"lender,omitempty" yaml:"lender"`
	Principal          json.Number    `json:"principal" yaml:"principal" validate:"required"`
	AnnualRate         json.Number    `json:"annual_rate" yaml:"annual_rate" validate:"required"`
	RateType           string         `json:"rate_type,omitempty" yaml:"rate_type" validate:"omitempty,oneof=fixed indexed"`
	Index              string         `json:"index,omitempty" yaml:"index"`
	Spread             json.Number    `json:"spread,omitempty" yaml:"spread"`
	TermMonths         int            `json:"term_months" yaml:"term_months" validate:"required,gt=0,lte=600"`
	AmortizationMonths int            `json:"amortization_months,omitempty" yaml:"amortization_months" validate:"gte=0,lte=600"`
	InterestOnly       bool           `json:"interest_only,omitempty" yaml:"interest_only"`
	ClosingDate        string         `json:"closing_date" yaml:"closing_date" validate:"required"`
	FirstPaymentDate   string         `json:"first_payment_date,omitempty" yaml:"first_payment_date"`
	MonthlyPayment     json.Number    `json:"monthly_payment,omitempty" yaml:"monthly_payment"`
	DayPolicy          string         `json:"day_policy,omitempty" yaml:"day_policy" validate:"omitempty,oneof=clamp_28 month_end"`
	Fees               []FeeJSON      `json:"fees,omitempty" yaml:"fees" validate:"dive"`
	Covenants          []CovenantJSON `json:"covenants,omitempty" yaml:"covenants" validate:"dive"`
}

// FeeJSON is a one-time fee.
type FeeJSON struct {
	Name        string      `json:"name" yaml:"name" validate:"required"`
	Amount      json.Number `json:"amount" yaml:"amount" validate:"required"`
	Description string      `json:"description,omitempty" yaml:"description"`
	Prepaid     bool        `json:"prepaid,omitempty" yaml:"prepaid"`
}

// CovenantJSON is a covenant or condition.
type CovenantJSON struct {
	Title string `json:"title" yaml:"title" validate:"required"`
	Text  string `json:"text" yaml:"text"`
}

// FundTermsJSON is the wire form of fund terms.
type FundTermsJSON struct {
	ID              string      `json:"id" yaml:"id"`
	Name            string      `json:"name" yaml:"name" validate:"required"`
	GeneralPartner  string      `json:"general_partner,omitempty" yaml:"general_partner"`
	Strategy        string      `json:"strategy,omitempty" yaml:"strategy" validate:"omitempty,oneof=buyout venture real_estate credit"`
	TargetRaise     json.Number `json:"target_raise" yaml:"target_raise" validate:"required"`
	GPCommitment    json.Number `json:"gp_commitment" yaml:"gp_commitment"`
	PreferredReturn json.Number `json:"preferred_return" yaml:"preferred_return"`
	CatchUpGPShare  json.Number `json:"catch_up_gp_share,omitempty" yaml:"catch_up_gp_share"`
	CarriedInterest json.Number `json:"carried_interest" yaml:"carried_interest" validate:"required"`
	ManagementFee   json.Number `json:"management_fee,omitempty" yaml:"management_fee"`
	TermYears       int         `json:"term_years,omitempty" yaml:"term_years" validate:"gte=0"`
}

// IllustrationJSON requests a dollar waterfall example.
type IllustrationJSON struct {
	Distributable json.Number `json:"distributable" yaml:"distributable" validate:"required"`
	Contributions json.Number `json:"contributions" yaml:"contributions" validate:"required"`
	Years         int         `json:"years" yaml:"years" validate:"gte=0,lte=50"`
}

// =============================================================================
// TERMS FACTORY
// =============================================================================

// TermsFactory converts wire terms to domain terms.
type TermsFactory struct {
	defaultPolicy finance.DayPolicy
}

// NewTermsFactory creates a factory. defaultPolicy applies when a loan does
// not name its own day policy.
func NewTermsFactory(defaultPolicy finance.DayPolicy) *TermsFactory {
	if defaultPolicy == "" {
		defaultPolicy = finance.DayClamp28
	}
	return &TermsFactory{defaultPolicy: defaultPolicy}
}

// ParseLoanJSON parses JSON loan terms.
func (f *TermsFactory) ParseLoanJSON(data []byte) (loan.Terms, error) {
	var tj LoanTermsJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return loan.Terms{}, fmt.Errorf("%w: loan JSON: %v", ErrMalformedTerms, err)
	}
	return f.LoanFromJSON(tj)
}

// ParseLoanYAML parses YAML loan terms.
func (f *TermsFactory) ParseLoanYAML(data []byte) (loan.Terms, error) {
	var tj LoanTermsJSON
	if err := yaml.Unmarshal(data, &tj); err != nil {
		return loan.Terms{}, fmt.Errorf("%w: loan YAML: %v", ErrMalformedTerms, err)
	}
	return f.LoanFromJSON(tj)
}

// ParseLoanFile reads terms from a .json, .yaml or .yml file.
func (f *TermsFactory) ParseLoanFile(path string) (loan.Terms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return loan.Terms{}, fmt.Errorf("read terms file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return f.ParseLoanJSON(data)
	case ".yaml", ".yml":
		return f.ParseLoanYAML(data)
	default:
		return loan.Terms{}, fmt.Errorf("unsupported terms file extension %q", filepath.Ext(path))
	}
}

// LoanFromJSON converts wire terms to loan.Terms with defaults applied.
func (f *TermsFactory) LoanFromJSON(tj LoanTermsJSON) (loan.Terms, error) {
	var err error
	t := loan.Terms{
		ID:                 tj.ID,
		Borrower:           tj.Borrower,
		Lender:             tj.Lender,
		RateType:           loan.RateType(tj.RateType),
		Index:              tj.Index,
		TermMonths:         tj.TermMonths,
		AmortizationMonths: tj.AmortizationMonths,
		InterestOnly:       tj.InterestOnly,
		DayPolicy:          finance.DayPolicy(tj.DayPolicy),
	}

	if t.Principal, err = parseAmount("principal", tj.Principal, true); err != nil {
		return loan.Terms{}, err
	}
	if t.AnnualRate, err = parseAmount("annual_rate", tj.AnnualRate, true); err != nil {
		return loan.Terms{}, err
	}
	if t.Spread, err = parseAmount("spread", tj.Spread, false); err != nil {
		return loan.Terms{}, err
	}
	if t.MonthlyPayment, err = parseAmount("monthly_payment", tj.MonthlyPayment, false); err != nil {
		return loan.Terms{}, err
	}
	if t.ClosingDate, err = parseDate("closing_date", tj.ClosingDate, true); err != nil {
		return loan.Terms{}, err
	}
	if t.FirstPaymentDate, err = parseDate("first_payment_date", tj.FirstPaymentDate, false); err != nil {
		return loan.Terms{}, err
	}

	if t.AmortizationMonths == 0 {
		t.AmortizationMonths = t.TermMonths
	}
	if t.RateType == "" {
		t.RateType = loan.RateFixed
	}
	if t.DayPolicy == "" {
		t.DayPolicy = f.defaultPolicy
	}

	for i, fj := range tj.Fees {
		amount, err := parseAmount(fmt.Sprintf("fees[%d].amount", i), fj.Amount, true)
		if err != nil {
			return loan.Terms{}, err
		}
		t.Fees = append(t.Fees, loan.Fee{
			Name:        fj.Name,
			Amount:      amount,
			Description: fj.Description,
			Prepaid:     fj.Prepaid,
		})
	}
	for _, cj := range tj.Covenants {
		t.Covenants = append(t.Covenants, loan.Covenant{Title: cj.Title, Text: cj.Text})
	}

	if err := t.Validate(); err != nil {
		return loan.Terms{}, err
	}
	return t, nil
}

// LoanToJSON converts loan.Terms back to the wire form.
func (f *TermsFactory) LoanToJSON(t loan.Terms) LoanTermsJSON {
	tj := LoanTermsJSON{
		ID:                 t.ID,
		Borrower:           t.Borrower,
		Lender:             t.Lender,
		Principal:          json.Number(t.Principal.String()),
		AnnualRate:         json.Number(t.AnnualRate.String()),
		RateType:           string(t.RateType),
		Index:              t.Index,
		TermMonths:         t.TermMonths,
		AmortizationMonths: t.AmortizationMonths,
		InterestOnly:       t.InterestOnly,
		ClosingDate:        t.ClosingDate.String(),
		DayPolicy:          string(t.DayPolicy),
	}
	if !t.Spread.IsZero() {
		tj.Spread = json.Number(t.Spread.String())
	}
	if !t.MonthlyPayment.IsZero() {
		tj.MonthlyPayment = json.Number(t.MonthlyPayment.String())
	}
	if t.FirstPaymentDate.IsValid() {
		tj.FirstPaymentDate = t.FirstPaymentDate.String()
	}
	for _, fee := range t.Fees {
		tj.Fees = append(tj.Fees, FeeJSON{
			Name:        fee.Name,
			Amount:      json.Number(fee.Amount.String()),
			Description: fee.Description,
			Prepaid:     fee.Prepaid,
		})
	}
	for _, c := range t.Covenants {
		tj.Covenants = append(tj.Covenants, CovenantJSON{Title: c.Title, Text: c.Text})
	}
	return tj
}

// ParseFundJSON parses JSON fund terms.
func (f *TermsFactory) ParseFundJSON(data []byte) (fund.Terms, error) {
	var fj FundTermsJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return fund.Terms{}, fmt.Errorf("%w: fund JSON: %v", ErrMalformedTerms, err)
	}
	return f.FundFromJSON(fj)
}

// ParseFundYAML parses YAML fund terms.
func (f *TermsFactory) ParseFundYAML(data []byte) (fund.Terms, error) {
	var fj FundTermsJSON
	if err := yaml.Unmarshal(data, &fj); err != nil {
		return fund.Terms{}, fmt.Errorf("%w: fund YAML: %v", ErrMalformedTerms, err)
	}
	return f.FundFromJSON(fj)
}

// FundFromJSON converts wire terms to fund.Terms with defaults applied.
func (f *TermsFactory) FundFromJSON(fj FundTermsJSON) (fund.Terms, error) {
	t := fund.Terms{
		ID:             fj.ID,
		Name:           fj.Name,
		GeneralPartner: fj.GeneralPartner,
		Strategy:       fund.Strategy(fj.Strategy),
		TermYears:      fj.TermYears,
	}

	fields := []struct {
		name     string
		raw      json.Number
		required bool
		dst      *decimal.Decimal
	}{
		{"target_raise", fj.TargetRaise, true, &t.TargetRaise},
		{"gp_commitment", fj.GPCommitment, false, &t.GPCommitment},
		{"preferred_return", fj.PreferredReturn, false, &t.PreferredReturn},
		{"catch_up_gp_share", fj.CatchUpGPShare, false, &t.CatchUpGPShare},
		{"carried_interest", fj.CarriedInterest, true, &t.CarriedInterest},
		{"management_fee", fj.ManagementFee, false, &t.ManagementFee},
	}
	for _, fld := range fields {
		v, err := parseAmount(fld.name, fld.raw, fld.required)
		if err != nil {
			return fund.Terms{}, err
		}
		*fld.dst = v
	}

	if fj.CatchUpGPShare == "" {
		t.CatchUpGPShare = decimal.NewFromInt(1)
	}
	if t.TermYears == 0 {
		t.TermYears = 10
	}

	if err := t.Validate(); err != nil {
		return fund.Terms{}, err
	}
	return t, nil
}

// IllustrationFromJSON converts an illustration request. nil stays nil.
func (f *TermsFactory) IllustrationFromJSON(ij *IllustrationJSON) (*fund.IllustrationInput, error) {
	if ij == nil {
		return nil, nil
	}
	distributable, err := parseAmount("distributable", ij.Distributable, true)
	if err != nil {
		return nil, err
	}
	contributions, err := parseAmount("contributions", ij.Contributions, true)
	if err != nil {
		return nil, err
	}
	return &fund.IllustrationInput{
		Distributable: distributable,
		Contributions: contributions,
		Years:         ij.Years,
	}, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// ErrMalformedTerms is returned for terms that cannot be decoded.
var ErrMalformedTerms = errors.New("malformed terms")

// FieldError reports a malformed field in submitted terms.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrMalformedTerms }

func parseAmount(field string, raw json.Number, required bool) (decimal.Decimal, error) {
	if raw == "" {
		if required {
			return decimal.Zero, &FieldError{Field: field, Reason: "is required"}
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, &FieldError{Field: field, Value: string(raw), Reason: "not a decimal number"}
	}
	return d, nil
}

func parseDate(field, raw string, required bool) (civil.Date, error) {
	if raw == "" {
		if required {
			return civil.Date{}, &FieldError{Field: field, Reason: "is required"}
		}
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, &FieldError{Field: field, Value: raw, Reason: "expected YYYY-MM-DD"}
	}
	return d, nil
}
