/*
package.go - Financial package assembly

PURPOSE:
  A Package is everything a loan document needs from the financial layer,
  computed once from a Terms snapshot: the payment, the schedule, the
  regulatory disclosure and the per-diem figures under the convention
  that document kind uses.

KEY CONCEPTS:
  Calculator:  Stateless apart from its logger and optional schedule cache
  Prepaid interest: Interest from closing to the first day of the next
                    month, collected at closing

EXAMPLE:
  calc := loan.NewCalculator(logger, cache.NewMemoryCache())
  pkg, err := calc.Build(ctx, terms, loan.KindClosingStatement, today)

SEE ALSO:
  - finance/amortization.go: Schedule generation
  - finance/disclosure.go: Finance charge, amount financed, APR
  - consistency.go: Cross-document proration check
*/
package loan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dealforge/docfin/cache"
	"github.com/dealforge/docfin/finance"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Package holds the computed figures for one loan document.
type Package struct {
	Terms       Terms
	Kind        DocumentKind
	GeneratedOn civil.Date

	MonthlyPayment decimal.Decimal
	FirstPayment   civil.Date
	Maturity       civil.Date

	Schedule   *finance.Schedule
	Disclosure finance.Disclosure

	DayCount            finance.DayCount
	PerDiem             decimal.Decimal
	PrepaidInterestDays int
	PrepaidInterest     decimal.Decimal
}

// Proration returns the per-diem figure this document states.
func (p *Package) Proration() ProrationFigure {
	return ProrationFigure{
		Document:   string(p.Kind),
		Convention: p.DayCount,
		Days:       p.PrepaidInterestDays,
		Amount:     p.PrepaidInterest,
	}
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator builds packages. The cache may be nil.
type Calculator struct {
	logger *zap.Logger
	cache  cache.Cache
}

// NewCalculator creates a calculator.
func NewCalculator(logger *zap.Logger, c cache.Cache) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{logger: logger, cache: c}
}

// Build computes the package for a document of the given kind.
func (c *Calculator) Build(ctx context.Context, t Terms, kind DocumentKind, generatedOn civil.Date) (*Package, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown document kind %q", finance.ErrInvalidLoanParameters, kind)
	}

	in, err := ScheduleInputFor(t)
	if err != nil {
		return nil, err
	}

	sched, err := c.Schedule(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("loan %s: %w", t.ID, err)
	}

	conv := kind.DayCount()
	perDiem, err := finance.PerDiem(t.Principal, t.AnnualRate, conv)
	if err != nil {
		return nil, err
	}

	days := finance.DaysBetweenDates(t.ClosingDate, finance.FirstPaymentDate(t.ClosingDate))
	prepaidInterest, err := finance.ProratedInterest(t.Principal, t.AnnualRate, days, conv)
	if err != nil {
		return nil, err
	}
	prepaidInterest = finance.RoundCents(prepaidInterest)

	// Interest collected at closing is a prepaid finance charge alongside
	// the fees flagged prepaid.
	prepaidCharges := t.PrepaidFinanceCharges().Add(prepaidInterest)
	disclosure, err := finance.Disclose(t.Principal, prepaidCharges, sched)
	if err != nil {
		return nil, fmt.Errorf("loan %s: %w", t.ID, err)
	}
	if !disclosure.APR.Converged {
		c.logger.Warn("apr did not converge",
			zap.String("op", "loan.Build"),
			zap.String("loan_id", t.ID),
			zap.Int("iterations", disclosure.APR.Iterations),
		)
	}

	c.logger.Debug("loan package built",
		zap.String("op", "loan.Build"),
		zap.String("loan_id", t.ID),
		zap.String("kind", string(kind)),
		zap.Int("rows", len(sched.Rows)),
	)

	return &Package{
		Terms:               t,
		Kind:                kind,
		GeneratedOn:         generatedOn,
		MonthlyPayment:      in.MonthlyPayment,
		FirstPayment:        in.FirstPaymentDate,
		Maturity:            in.MaturityDate,
		Schedule:            sched,
		Disclosure:          disclosure,
		DayCount:            conv,
		PerDiem:             finance.RoundCents(perDiem),
		PrepaidInterestDays: days,
		PrepaidInterest:     prepaidInterest,
	}, nil
}

// Schedule amortizes in, consulting the cache first.
func (c *Calculator) Schedule(ctx context.Context, in finance.ScheduleInput) (*finance.Schedule, error) {
	key := ScheduleKey(in)

	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, key); ok {
			var sched finance.Schedule
			if err := json.Unmarshal([]byte(raw), &sched); err == nil {
				return &sched, nil
			}
			c.logger.Warn("discarding unreadable cached schedule",
				zap.String("op", "loan.Schedule"), zap.String("key", key))
		}
	}

	sched, err := finance.Amortize(in)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		raw, err := json.Marshal(sched)
		if err == nil {
			err = c.cache.Set(ctx, key, string(raw))
		}
		if err != nil {
			c.logger.Warn("schedule cache write failed",
				zap.String("op", "loan.Schedule"), zap.String("key", key), zap.Error(err))
		}
	}

	return sched, nil
}

// =============================================================================
// INPUTS
// =============================================================================

// Payment returns the monthly payment stated in the terms, or derives it.
func Payment(t Terms) (decimal.Decimal, error) {
	if t.MonthlyPayment.IsPositive() {
		return t.MonthlyPayment, nil
	}
	if t.InterestOnly {
		return finance.InterestOnlyPayment(t.Principal, t.AnnualRate), nil
	}
	return finance.LevelPayment(t.Principal, t.AnnualRate, t.AmortizationMonths)
}

// ScheduleInputFor validates t and maps it onto the amortization input.
func ScheduleInputFor(t Terms) (finance.ScheduleInput, error) {
	if err := t.Validate(); err != nil {
		return finance.ScheduleInput{}, fmt.Errorf("loan %s: %w", t.ID, err)
	}
	payment, err := Payment(t)
	if err != nil {
		return finance.ScheduleInput{}, fmt.Errorf("loan %s: %w", t.ID, err)
	}
	return finance.ScheduleInput{
		Principal:          t.Principal,
		AnnualRate:         t.AnnualRate,
		TermMonths:         t.TermMonths,
		AmortizationMonths: t.AmortizationMonths,
		MonthlyPayment:     payment,
		InterestOnly:       t.InterestOnly,
		FirstPaymentDate:   t.FirstPayment(),
		MaturityDate:       t.Maturity(),
		DayPolicy:          t.DayPolicy,
	}, nil
}

// ScheduleKey is the memoization key for an amortization input.
func ScheduleKey(in finance.ScheduleInput) string {
	policy := in.DayPolicy
	if policy == "" {
		policy = finance.DayClamp28
	}
	return strings.Join([]string{
		"schedule",
		in.Principal.String(),
		in.AnnualRate.String(),
		fmt.Sprint(in.TermMonths),
		fmt.Sprint(in.AmortizationMonths),
		in.MonthlyPayment.String(),
		fmt.Sprint(in.InterestOnly),
		in.FirstPaymentDate.String(),
		in.MaturityDate.String(),
		string(policy),
	}, ":")
}
