package finance_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dealforge/docfin/finance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) civil.Date {
	return civil.Date{Year: year, Month: month, Day: day}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sumPrincipal(s *finance.Schedule) decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.Rows {
		total = total.Add(r.Principal)
	}
	return total
}

func fullyAmortizing(t *testing.T, principal, rate string, months int) finance.ScheduleInput {
	t.Helper()
	payment, err := finance.LevelPayment(dec(principal), dec(rate), months)
	require.NoError(t, err)
	return finance.ScheduleInput{
		Principal:          dec(principal),
		AnnualRate:         dec(rate),
		TermMonths:         months,
		AmortizationMonths: months,
		MonthlyPayment:     payment,
		FirstPaymentDate:   date(2025, time.February, 1),
	}
}

// =============================================================================
// COMPLETENESS
// =============================================================================

func TestAmortize_FullyAmortizing_PrincipalSumsToLoanAmount(t *testing.T) {
	// GIVEN: 250,000 at 6.5% amortized over its 120 month term
	// WHEN: Generating the schedule
	// THEN: Principal portions sum to the loan amount and the balance ends at zero

	cases := []struct {
		principal string
		rate      string
		months    int
	}{
		{"250000", "0.065", 120},
		{"175000", "0.045", 360},
		{"10000", "0.1299", 36},
		{"5000", "0", 12},
		{"1", "0.05", 1},
	}

	for _, tc := range cases {
		sched, err := finance.Amortize(fullyAmortizing(t, tc.principal, tc.rate, tc.months))
		require.NoError(t, err)

		assert.Len(t, sched.Rows, tc.months)
		assert.True(t, finance.WithinEpsilon(sumPrincipal(sched), dec(tc.principal)),
			"principal sum %s != %s", sumPrincipal(sched), tc.principal)
		assert.True(t, sched.TotalPrincipal.Equal(sumPrincipal(sched)))

		last := sched.Rows[len(sched.Rows)-1]
		assert.True(t, last.EndingBalance.IsZero(), "final balance %s", last.EndingBalance)
		_, hasBalloon := sched.Balloon()
		assert.False(t, hasBalloon)
	}
}

func TestAmortize_BalanceIsMonotonicallyNonIncreasing(t *testing.T) {
	sched, err := finance.Amortize(fullyAmortizing(t, "400000", "0.0725", 240))
	require.NoError(t, err)

	prev := dec("400000")
	for _, r := range sched.Rows {
		assert.True(t, r.EndingBalance.LessThanOrEqual(prev), "month %d: %s > %s", r.Month, r.EndingBalance, prev)
		assert.False(t, r.EndingBalance.IsNegative())
		assert.True(t, r.Payment.Equal(r.Principal.Add(r.Interest)), "month %d", r.Month)
		prev = r.EndingBalance
	}
}

func TestAmortize_ThirtyYearScheduleKeepsBoundedScale(t *testing.T) {
	// GIVEN: A 30 year mortgage at a rate whose monthly rate does not terminate
	// WHEN: Generating all 360 rows
	// THEN: No row carries more than WorkingScale decimal places

	in := fullyAmortizing(t, "300000", "0.065", 360)
	sched, err := finance.Amortize(in)
	require.NoError(t, err)
	require.Len(t, sched.Rows, 360)

	for _, r := range sched.Rows {
		for _, v := range []decimal.Decimal{r.Interest, r.Principal, r.Payment, r.EndingBalance} {
			assert.LessOrEqual(t, -v.Exponent(), finance.WorkingScale, "month %d: %s", r.Month, v)
			assert.LessOrEqual(t, len(v.String()), 24, "month %d", r.Month)
		}
	}
	assert.True(t, sumPrincipal(sched).Equal(dec("300000")))
}

func TestAmortize_OverpaymentStopsEarly(t *testing.T) {
	// GIVEN: A payment far larger than needed
	// WHEN: Generating a 12 month schedule
	// THEN: The schedule stops once the balance is paid, the last payment is clamped

	in := finance.ScheduleInput{
		Principal:          dec("100000"),
		AnnualRate:         dec("0.06"),
		TermMonths:         12,
		AmortizationMonths: 12,
		MonthlyPayment:     dec("30000"),
		FirstPaymentDate:   date(2025, time.January, 1),
	}

	sched, err := finance.Amortize(in)
	require.NoError(t, err)

	assert.Len(t, sched.Rows, 4)
	last := sched.Rows[len(sched.Rows)-1]
	assert.True(t, last.EndingBalance.IsZero())
	assert.True(t, last.Payment.LessThan(dec("30000")))
	assert.True(t, sumPrincipal(sched).Equal(dec("100000")))
}

// =============================================================================
// BALLOON
// =============================================================================

func TestAmortize_BalloonScenario(t *testing.T) {
	// GIVEN: 500,000 at 7% for 60 months on a 300 month amortization
	// WHEN: Generating the schedule with the given 3,322.72 payment
	// THEN: 60 regular rows, then one balloon row equal to the remaining balance

	in := finance.ScheduleInput{
		Principal:          dec("500000"),
		AnnualRate:         dec("0.07"),
		TermMonths:         60,
		AmortizationMonths: 300,
		MonthlyPayment:     dec("3322.72"),
		FirstPaymentDate:   date(2025, time.February, 1),
		MaturityDate:       date(2030, time.January, 15),
	}

	sched, err := finance.Amortize(in)
	require.NoError(t, err)
	require.Len(t, sched.Rows, 61)

	regular := sched.RegularRows()
	require.Len(t, regular, 60)
	for _, r := range regular {
		assert.False(t, r.Balloon)
		assert.True(t, r.Payment.Equal(dec("3322.72")), "month %d paid %s", r.Month, r.Payment)
	}

	balloon, ok := sched.Balloon()
	require.True(t, ok)
	assert.Equal(t, 61, balloon.Month)
	assert.Equal(t, date(2030, time.January, 15), balloon.Date)
	assert.True(t, balloon.Payment.Equal(regular[59].EndingBalance))
	assert.True(t, balloon.Principal.Equal(balloon.Payment))
	assert.True(t, balloon.Interest.IsZero())
	assert.True(t, balloon.EndingBalance.IsZero())
	assert.True(t, balloon.Payment.GreaterThan(dec("400000")) && balloon.Payment.LessThan(dec("500000")))

	balloons := 0
	interest := decimal.Zero
	for _, r := range sched.Rows {
		if r.Balloon {
			balloons++
		}
		interest = interest.Add(r.Interest)
	}
	assert.Equal(t, 1, balloons)
	assert.True(t, sched.TotalInterest.Equal(interest))
	assert.True(t, finance.WithinEpsilon(sched.TotalPrincipal, dec("500000")))
}

func TestAmortize_BalloonDefaultsToLastPaymentDate(t *testing.T) {
	in := finance.ScheduleInput{
		Principal:          dec("100000"),
		AnnualRate:         dec("0.05"),
		TermMonths:         12,
		AmortizationMonths: 360,
		MonthlyPayment:     dec("536.82"),
		FirstPaymentDate:   date(2025, time.March, 1),
	}

	sched, err := finance.Amortize(in)
	require.NoError(t, err)

	balloon, ok := sched.Balloon()
	require.True(t, ok)
	assert.Equal(t, date(2026, time.February, 1), balloon.Date)
}

func TestAmortize_CashFlowsFoldBalloonIntoFinalPeriod(t *testing.T) {
	in := finance.ScheduleInput{
		Principal:          dec("100000"),
		AnnualRate:         dec("0.05"),
		TermMonths:         12,
		AmortizationMonths: 360,
		MonthlyPayment:     dec("536.82"),
		FirstPaymentDate:   date(2025, time.March, 1),
	}
	sched, err := finance.Amortize(in)
	require.NoError(t, err)

	flows := sched.CashFlows()
	require.Len(t, flows, 12)
	balloon, _ := sched.Balloon()
	assert.True(t, flows[11].Equal(dec("536.82").Add(balloon.Payment)))

	total := decimal.Zero
	for _, f := range flows {
		total = total.Add(f)
	}
	assert.True(t, total.Equal(sched.TotalPayments))
}

// =============================================================================
// INTEREST ONLY
// =============================================================================

func TestAmortize_InterestOnly(t *testing.T) {
	// GIVEN: An interest-only loan of 1,000,000 at 8% for 24 months
	// WHEN: Generating the schedule
	// THEN: No principal amortizes, payment is P × r/12, balance is unchanged

	in := finance.ScheduleInput{
		Principal:          dec("1000000"),
		AnnualRate:         dec("0.08"),
		TermMonths:         24,
		AmortizationMonths: 24,
		InterestOnly:       true,
		FirstPaymentDate:   date(2025, time.June, 1),
	}

	sched, err := finance.Amortize(in)
	require.NoError(t, err)

	regular := sched.RegularRows()
	require.Len(t, regular, 24)
	expected := finance.InterestOnlyPayment(dec("1000000"), dec("0.08"))
	for _, r := range regular {
		assert.True(t, r.Principal.IsZero())
		assert.True(t, r.EndingBalance.Equal(dec("1000000")))
		assert.True(t, r.Payment.Equal(expected))
	}

	balloon, ok := sched.Balloon()
	require.True(t, ok)
	assert.True(t, balloon.Payment.Equal(dec("1000000")))
}

// =============================================================================
// PAYMENT DATES
// =============================================================================

func TestAmortize_PaymentDatesFollowDayPolicy(t *testing.T) {
	in := fullyAmortizing(t, "12000", "0.05", 4)
	in.FirstPaymentDate = date(2025, time.January, 31)

	in.DayPolicy = finance.DayClamp28
	clamped, err := finance.Amortize(in)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 28), clamped.Rows[0].Date)
	assert.Equal(t, date(2025, time.February, 28), clamped.Rows[1].Date)
	assert.Equal(t, date(2025, time.March, 28), clamped.Rows[2].Date)

	in.DayPolicy = finance.DayClampMonthEnd
	monthEnd, err := finance.Amortize(in)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 31), monthEnd.Rows[0].Date)
	assert.Equal(t, date(2025, time.February, 28), monthEnd.Rows[1].Date)
	assert.Equal(t, date(2025, time.March, 31), monthEnd.Rows[2].Date)
	assert.Equal(t, date(2025, time.April, 30), monthEnd.Rows[3].Date)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestAmortize_RejectsInvalidParameters(t *testing.T) {
	valid := fullyAmortizing(t, "10000", "0.05", 12)

	cases := map[string]func(in *finance.ScheduleInput){
		"zero principal":     func(in *finance.ScheduleInput) { in.Principal = decimal.Zero },
		"negative principal": func(in *finance.ScheduleInput) { in.Principal = dec("-1") },
		"negative rate":      func(in *finance.ScheduleInput) { in.AnnualRate = dec("-0.01") },
		"zero term":          func(in *finance.ScheduleInput) { in.TermMonths = 0 },
		"zero amortization":  func(in *finance.ScheduleInput) { in.AmortizationMonths = 0 },
		"zero payment":       func(in *finance.ScheduleInput) { in.MonthlyPayment = decimal.Zero },
		"negative amortization payment": func(in *finance.ScheduleInput) {
			in.MonthlyPayment = dec("10")
		},
		"unknown day policy": func(in *finance.ScheduleInput) { in.DayPolicy = "weekly" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			sched, err := finance.Amortize(in)
			assert.Nil(t, sched)
			assert.ErrorIs(t, err, finance.ErrInvalidLoanParameters)
			assert.True(t, finance.IsClientError(err))

			var paramErr *finance.InvalidParameterError
			assert.ErrorAs(t, err, &paramErr)
		})
	}
}

func TestAmortize_RejectsMissingFirstPaymentDate(t *testing.T) {
	in := fullyAmortizing(t, "10000", "0.05", 12)
	in.FirstPaymentDate = civil.Date{}

	_, err := finance.Amortize(in)
	assert.ErrorIs(t, err, finance.ErrInvalidDate)
}

func TestLevelPayment(t *testing.T) {
	payment, err := finance.LevelPayment(dec("175000"), dec("0.045"), 360)
	require.NoError(t, err)
	assert.Equal(t, "886.70", payment.StringFixed(2))

	payment, err = finance.LevelPayment(dec("1200"), decimal.Zero, 12)
	require.NoError(t, err)
	assert.True(t, payment.Equal(dec("100")))

	_, err = finance.LevelPayment(decimal.Zero, dec("0.05"), 12)
	assert.ErrorIs(t, err, finance.ErrInvalidLoanParameters)
}
