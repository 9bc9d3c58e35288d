package finance_test

import (
	"testing"
	"time"

	"github.com/dealforge/docfin/finance"
	"github.com/stretchr/testify/assert"
)

func TestMaturityDate_MonthEnd(t *testing.T) {
	// GIVEN: Loans starting on the last day of January
	// WHEN: Adding one month
	// THEN: The result is the last day of February, leap years included

	assert.Equal(t, date(2024, time.February, 29), finance.MaturityDate(date(2024, time.January, 31), 1))
	assert.Equal(t, date(2023, time.February, 28), finance.MaturityDate(date(2023, time.January, 31), 1))
	assert.Equal(t, date(2025, time.April, 30), finance.MaturityDate(date(2025, time.March, 31), 1))
}

func TestMaturityDate_YearCarry(t *testing.T) {
	assert.Equal(t, date(2025, time.February, 15), finance.MaturityDate(date(2024, time.December, 15), 2))
	assert.Equal(t, date(2030, time.January, 31), finance.MaturityDate(date(2025, time.January, 31), 60))
	assert.Equal(t, date(2054, time.August, 31), finance.MaturityDate(date(2024, time.August, 31), 360))
	assert.Equal(t, date(2024, time.May, 31), finance.MaturityDate(date(2024, time.May, 31), 0))
}

func TestMaturityDate_DayNeverExceedsTargetMonth(t *testing.T) {
	for day := 1; day <= 31; day++ {
		start := date(2023, time.January, day)
		for months := 0; months <= 48; months++ {
			got := finance.MaturityDate(start, months)

			wantMonth := time.Month((int(time.January)-1+months)%12 + 1)
			wantYear := 2023 + months/12
			assert.Equal(t, wantMonth, got.Month, "start day %d + %d", day, months)
			assert.Equal(t, wantYear, got.Year, "start day %d + %d", day, months)
			assert.LessOrEqual(t, got.Day, finance.DaysInMonth(got.Year, got.Month))
			assert.True(t, got.IsValid())
		}
	}
}

func TestFirstPaymentDate(t *testing.T) {
	assert.Equal(t, date(2025, time.January, 1), finance.FirstPaymentDate(date(2024, time.December, 15)))
	assert.Equal(t, date(2024, time.March, 1), finance.FirstPaymentDate(date(2024, time.February, 29)))
	assert.Equal(t, date(2025, time.July, 1), finance.FirstPaymentDate(date(2025, time.June, 1)))
}

func TestPaymentDate(t *testing.T) {
	first := date(2025, time.January, 30)

	assert.Equal(t, date(2025, time.January, 28), finance.PaymentDate(first, 1, finance.DayClamp28))
	assert.Equal(t, date(2025, time.February, 28), finance.PaymentDate(first, 2, ""))
	assert.Equal(t, date(2026, time.January, 28), finance.PaymentDate(first, 13, finance.DayClamp28))

	assert.Equal(t, date(2025, time.January, 30), finance.PaymentDate(first, 1, finance.DayClampMonthEnd))
	assert.Equal(t, date(2025, time.February, 28), finance.PaymentDate(first, 2, finance.DayClampMonthEnd))
	assert.Equal(t, date(2025, time.March, 30), finance.PaymentDate(first, 3, finance.DayClampMonthEnd))
}

func TestDaysBetween_IgnoresTimeOfDayAndZone(t *testing.T) {
	east := time.FixedZone("UTC+2", 2*60*60)
	west := time.FixedZone("UTC-5", -5*60*60)

	a := time.Date(2025, time.March, 1, 23, 0, 0, 0, west)
	b := time.Date(2025, time.March, 3, 1, 0, 0, 0, east)

	assert.Equal(t, 2, finance.DaysBetween(a, b))
	assert.Equal(t, -2, finance.DaysBetween(b, a))
	assert.Equal(t, 0, finance.DaysBetween(a, a.Add(30*time.Minute)))
	assert.Equal(t, 366, finance.DaysBetween(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
}

func TestDaysBetweenDates(t *testing.T) {
	assert.Equal(t, 29, finance.DaysBetweenDates(date(2024, time.February, 1), date(2024, time.March, 1)))
	assert.Equal(t, 28, finance.DaysBetweenDates(date(2023, time.February, 1), date(2023, time.March, 1)))
}
