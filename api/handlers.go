/*
handlers.go - HTTP API handlers for the deal document engine

PURPOSE:
  Exposes the financial layer and document generation via REST API.
  Handles HTTP request/response, JSON serialization, validation, and
  delegates to the finance, loan, fund and document packages.

ENDPOINTS:
  Calculations:
    POST   /api/loans/schedule         Amortization schedule for terms
    POST   /api/loans/disclosure       APR, finance charge, prepaid interest
    POST   /api/loans/per-diem         Daily interest under a convention
    POST   /api/loans/consistency      Cross-document proration check
    POST   /api/apr                    Raw APR solve
    POST   /api/dates/maturity         Maturity and first payment date
    POST   /api/funds/waterfall        Waterfall tiers and illustration

  Documents:
    POST   /api/documents              Generate and store a document
    GET    /api/documents              List documents (?deal_id=&limit=)
    GET    /api/documents/{id}         Document metadata
    DELETE /api/documents/{id}         Delete document metadata
    GET    /api/documents/{id}/content Rendered body
    POST   /api/documents/{id}/regenerate  Guarded regeneration

  Health:
    GET    /healthz

REQUEST FLOW:
  1. Decode JSON body
  2. Validate struct tags
  3. Convert wire terms with the factory
  4. Call domain logic
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON; statusFor maps them:
  - 400: Validation errors, malformed terms, invalid loan/fund parameters
  - 404: Document or body not found
  - 409: Regeneration already in progress
  - 422: Proration figures disagree
  - 502: Prose service failure
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Deploy behind the gateway that fronts the main app.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dealforge/docfin/document"
	"github.com/dealforge/docfin/factory"
	"github.com/dealforge/docfin/finance"
	"github.com/dealforge/docfin/fund"
	"github.com/dealforge/docfin/loan"
	"github.com/dealforge/docfin/store/blob"
	"github.com/dealforge/docfin/store/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// timeNow dates loan packages built for disclosure responses.
var timeNow = time.Now

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// HealthCheck is one dependency checked by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Docs  *document.Service
	Calc  *loan.Calculator
	Terms *factory.TermsFactory

	checks   []HealthCheck
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a handler.
func NewHandler(docs *document.Service, calc *loan.Calculator, terms *factory.TermsFactory, logger *zap.Logger, checks ...HealthCheck) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Docs:     docs,
		Calc:     calc,
		Terms:    terms,
		checks:   checks,
		validate: validator.New(),
		logger:   logger,
	}
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// Schedule returns the amortization schedule for loan terms.
// POST /api/loans/schedule
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req LoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	terms, err := h.Terms.LoanFromJSON(req.Terms)
	if err != nil {
		h.fail(w, r, "Invalid loan terms", err)
		return
	}
	in, err := loan.ScheduleInputFor(terms)
	if err != nil {
		h.fail(w, r, "Invalid loan terms", err)
		return
	}
	sched, err := h.Calc.Schedule(r.Context(), in)
	if err != nil {
		h.fail(w, r, "Failed to build schedule", err)
		return
	}

	resp := ScheduleResponse{
		LoanID:           terms.ID,
		MonthlyPayment:   money(in.MonthlyPayment),
		FirstPaymentDate: in.FirstPaymentDate.String(),
		MaturityDate:     in.MaturityDate.String(),
		Rows:             make([]RowDTO, 0, len(sched.Rows)),
		TotalPayments:    money(sched.TotalPayments),
		TotalPrincipal:   money(sched.TotalPrincipal),
		TotalInterest:    money(sched.TotalInterest),
	}
	for _, row := range sched.Rows {
		dto := RowDTO{
			Month:     row.Month,
			Date:      row.Date.String(),
			Payment:   money(row.Payment),
			Principal: money(row.Principal),
			Interest:  money(row.Interest),
			Balance:   money(row.EndingBalance),
			Balloon:   row.Balloon,
		}
		resp.Rows = append(resp.Rows, dto)
		if row.Balloon {
			b := dto
			resp.Balloon = &b
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Disclosure returns the Truth-in-Lending figures and prepaid interest.
// POST /api/loans/disclosure
func (h *Handler) Disclosure(w http.ResponseWriter, r *http.Request) {
	var req LoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	kind := loan.DocumentKind(req.Kind)
	if kind == "" {
		kind = loan.KindConsumerDisclosure
	}

	terms, err := h.Terms.LoanFromJSON(req.Terms)
	if err != nil {
		h.fail(w, r, "Invalid loan terms", err)
		return
	}
	pkg, err := h.Calc.Build(r.Context(), terms, kind, civil.DateOf(timeNow()))
	if err != nil {
		h.fail(w, r, "Failed to compute disclosure", err)
		return
	}

	d := pkg.Disclosure
	writeJSON(w, http.StatusOK, DisclosureResponse{
		LoanID:                  terms.ID,
		Kind:                    string(kind),
		APR:                     toAPRDTO(d.APR),
		FinanceCharge:           money(d.FinanceCharge),
		AmountFinanced:          money(d.AmountFinanced),
		TotalOfPayments:         money(d.TotalOfPayments),
		TotalInterestPercentage: d.TotalInterestPercentage.StringFixed(3),
		DayCount:                string(pkg.DayCount),
		PerDiem:                 money(pkg.PerDiem),
		PrepaidInterestDays:     pkg.PrepaidInterestDays,
		PrepaidInterest:         money(pkg.PrepaidInterest),
	})
}

// PerDiem returns daily interest and prorated interest for a period.
// POST /api/loans/per-diem
func (h *Handler) PerDiem(w http.ResponseWriter, r *http.Request) {
	var req PerDiemRequest
	if !h.decode(w, r, &req) {
		return
	}
	principal, rate, err := principalAndRate(req.Principal, req.AnnualRate)
	if err != nil {
		h.fail(w, r, "Invalid amount", err)
		return
	}

	conv := finance.DayCount(req.Convention)
	perDiem, err := finance.PerDiem(principal, rate, conv)
	if err != nil {
		h.fail(w, r, "Invalid per-diem request", err)
		return
	}
	amount, err := finance.ProratedInterest(principal, rate, req.Days, conv)
	if err != nil {
		h.fail(w, r, "Invalid per-diem request", err)
		return
	}

	writeJSON(w, http.StatusOK, PerDiemResponse{
		Convention: req.Convention,
		PerDiem:    money(perDiem),
		Days:       req.Days,
		Amount:     money(amount),
	})
}

// Consistency checks two documents' prorated interest figures.
// POST /api/loans/consistency
func (h *Handler) Consistency(w http.ResponseWriter, r *http.Request) {
	var req ConsistencyRequest
	if !h.decode(w, r, &req) {
		return
	}
	principal, rate, err := principalAndRate(req.Principal, req.AnnualRate)
	if err != nil {
		h.fail(w, r, "Invalid amount", err)
		return
	}
	a, err := toProration(req.A)
	if err != nil {
		h.fail(w, r, "Invalid figure", err)
		return
	}
	b, err := toProration(req.B)
	if err != nil {
		h.fail(w, r, "Invalid figure", err)
		return
	}

	err = loan.CheckProrationConsistency(principal, rate, a, b)
	var mismatch *loan.ConsistencyError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ConsistencyResponse{Consistent: true})
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusUnprocessableEntity, ConsistencyResponse{
			Reason:   mismatch.Reason,
			Expected: money(mismatch.Expected),
			Actual:   money(mismatch.Actual),
		})
	default:
		h.fail(w, r, "Invalid figures", err)
	}
}

// =============================================================================
// APR AND DATE HANDLERS
// =============================================================================

// APR solves the annual percentage rate.
// POST /api/apr
func (h *Handler) APR(w http.ResponseWriter, r *http.Request) {
	var req APRRequest
	if !h.decode(w, r, &req) {
		return
	}
	financed, err := decimalField("amount_financed", req.AmountFinanced)
	if err != nil {
		h.fail(w, r, "Invalid amount", err)
		return
	}

	var res finance.APRResult
	if req.Payment != "" {
		payment, err := decimalField("payment", req.Payment)
		if err != nil {
			h.fail(w, r, "Invalid amount", err)
			return
		}
		res = finance.SolveAPR(financed, payment, req.TermMonths)
	} else {
		charge, err := decimalField("finance_charge", req.FinanceCharge)
		if err != nil {
			h.fail(w, r, "Invalid amount", err)
			return
		}
		res = finance.SolveAPRFromFinanceCharge(financed, charge, req.TermMonths)
	}

	writeJSON(w, http.StatusOK, toAPRDTO(res))
}

// Maturity returns the maturity and first payment date for a term.
// POST /api/dates/maturity
func (h *Handler) Maturity(w http.ResponseWriter, r *http.Request) {
	var req MaturityRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, err := civil.ParseDate(req.StartDate)
	if err != nil {
		h.fail(w, r, "Invalid start date", fmt.Errorf("%w: %v", finance.ErrInvalidDate, err))
		return
	}

	maturity := finance.MaturityDate(start, req.TermMonths)
	writeJSON(w, http.StatusOK, MaturityResponse{
		StartDate:        start.String(),
		MaturityDate:     maturity.String(),
		FirstPaymentDate: finance.FirstPaymentDate(start).String(),
		Days:             finance.DaysBetweenDates(start, maturity),
	})
}

// =============================================================================
// FUND HANDLERS
// =============================================================================

// Waterfall returns the distribution waterfall for fund terms.
// POST /api/funds/waterfall
func (h *Handler) Waterfall(w http.ResponseWriter, r *http.Request) {
	var req WaterfallRequest
	if !h.decode(w, r, &req) {
		return
	}

	terms, err := h.Terms.FundFromJSON(req.Terms)
	if err != nil {
		h.fail(w, r, "Invalid fund terms", err)
		return
	}
	ill, err := h.Terms.IllustrationFromJSON(req.Illustration)
	if err != nil {
		h.fail(w, r, "Invalid illustration", err)
		return
	}
	p, err := fund.Present(terms, ill)
	if err != nil {
		h.fail(w, r, "Invalid fund terms", err)
		return
	}

	resp := WaterfallResponse{
		FundID:            terms.ID,
		CommitmentPercent: p.CommitmentPercent,
		CommitmentLine:    p.CommitmentLine,
		ManagementFeeLine: p.ManagementFeeLine,
	}
	for _, tl := range p.Tiers {
		resp.Tiers = append(resp.Tiers, TierDTO{
			Number:      tl.Number,
			Name:        tl.Name,
			Description: tl.Description,
			GPShare:     tl.GP,
			LPShare:     tl.LP,
		})
	}
	if i := p.Illustration; i != nil {
		dto := &IllustrationDTO{
			Distributable: money(i.Distributable),
			Contributions: money(i.Contributions),
			Years:         i.Years,
			TotalGP:       money(i.TotalGP),
			TotalLP:       money(i.TotalLP),
		}
		for _, ta := range i.Tiers {
			dto.Tiers = append(dto.Tiers, TierAmountDTO{
				Name:   ta.Name,
				Amount: money(ta.Amount),
				ToGP:   money(ta.ToGP),
				ToLP:   money(ta.ToLP),
			})
		}
		resp.Illustration = dto
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// CreateDocument generates, renders and stores a document.
// POST /api/documents
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !h.decode(w, r, &req) {
		return
	}
	format := document.Format(req.Format)

	var (
		rec *sqlite.Document
		err error
	)
	if req.Loan != nil {
		rec, err = h.Docs.CreateLoanDocument(r.Context(), *req.Loan, loan.DocumentKind(req.Kind), format)
	} else {
		rec, err = h.Docs.CreateFundDocument(r.Context(), *req.Fund, document.FundKind(req.Kind), req.Illustration, format)
	}
	if err != nil {
		h.fail(w, r, "Failed to generate document", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentDTO(rec))
}

// ListDocuments returns document metadata, newest first.
// GET /api/documents?deal_id=&limit=
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	docs, err := h.Docs.List(r.Context(), r.URL.Query().Get("deal_id"), limit)
	if err != nil {
		h.fail(w, r, "Failed to list documents", err)
		return
	}

	dtos := make([]DocumentDTO, len(docs))
	for i := range docs {
		dtos[i] = toDocumentDTO(&docs[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": dtos})
}

// GetDocument returns document metadata.
// GET /api/documents/{id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(rec))
}

// DeleteDocument removes document metadata.
// DELETE /api/documents/{id}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.Docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DocumentContent streams the rendered body.
// GET /api/documents/{id}/content
func (h *Handler) DocumentContent(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.Docs.Content(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to read document", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// RegenerateDocument rebuilds a document from its stored terms.
// POST /api/documents/{id}/regenerate
func (h *Handler) RegenerateDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Docs.Regenerate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to regenerate document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(rec))
}

// Health reports liveness of each dependency.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	result := map[string]string{}
	for _, c := range h.checks {
		if err := c.Check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			result[c.Name] = err.Error()
			continue
		}
		result[c.Name] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": result})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// fail writes err with the status statusFor picks; server errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr),
		errors.Is(err, factory.ErrMalformedTerms),
		errors.Is(err, document.ErrInvalidRequest),
		finance.IsClientError(err):
		return http.StatusBadRequest
	case sqlite.IsNotFound(err), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrGenerationInProgress):
		return http.StatusConflict
	case errors.Is(err, loan.ErrProrationMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, document.ErrNarration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func money(d decimal.Decimal) string {
	return finance.RoundCents(d).StringFixed(2)
}

func toAPRDTO(r finance.APRResult) APRDTO {
	return APRDTO{
		Display:      finance.FormatAPR(r),
		Percent:      r.APR.StringFixed(4),
		PeriodicRate: r.PeriodicRate,
		Iterations:   r.Iterations,
		Converged:    r.Converged,
		Degenerate:   r.Degenerate,
	}
}

func decimalField(field string, raw json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, &factory.FieldError{Field: field, Value: string(raw), Reason: "not a decimal number"}
	}
	return d, nil
}

func principalAndRate(p, r json.Number) (decimal.Decimal, decimal.Decimal, error) {
	principal, err := decimalField("principal", p)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	rate, err := decimalField("annual_rate", r)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return principal, rate, nil
}

func toProration(p ProrationDTO) (loan.ProrationFigure, error) {
	amount, err := decimalField(p.Document+".amount", p.Amount)
	if err != nil {
		return loan.ProrationFigure{}, err
	}
	return loan.ProrationFigure{
		Document:   p.Document,
		Convention: finance.DayCount(p.Convention),
		Days:       p.Days,
		Amount:     amount,
	}, nil
}
