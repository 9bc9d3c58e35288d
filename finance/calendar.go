package finance

import (
	"math"
	"time"

	"cloud.google.com/go/civil"
)

// =============================================================================
// CALENDAR ARITHMETIC - Month-end safe date math
// =============================================================================

// DayPolicy controls how payment dates handle months shorter than the
// first payment's day-of-month.
type DayPolicy string

const (
	// DayClamp28 clamps every payment day to 28 or earlier.
	DayClamp28 DayPolicy = "clamp_28"
	// DayClampMonthEnd keeps the first payment's day, clamped to month length.
	DayClampMonthEnd DayPolicy = "month_end"
)

// Valid reports whether p is a known policy. The zero value is valid and
// behaves as DayClamp28.
func (p DayPolicy) Valid() bool {
	return p == "" || p == DayClamp28 || p == DayClampMonthEnd
}

const clampDay = 28

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped adds n calendar months to d. When d's day does not exist
// in the target month the result is the target month's last day.
func AddMonthsClamped(d civil.Date, n int) civil.Date {
	first := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: day}
}

// MaturityDate adds termMonths calendar months to start, rolling back to
// the last day of the target month on overflow (Jan 31 + 1 = Feb 28/29).
func MaturityDate(start civil.Date, termMonths int) civil.Date {
	return AddMonthsClamped(start, termMonths)
}

// FirstPaymentDate returns the first day of the month after closing.
func FirstPaymentDate(closing civil.Date) civil.Date {
	next := time.Date(closing.Year, closing.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return civil.DateOf(next)
}

// PaymentDate returns the due date of the k-th (1-based) scheduled payment.
func PaymentDate(first civil.Date, k int, policy DayPolicy) civil.Date {
	if policy == DayClampMonthEnd {
		return AddMonthsClamped(first, k-1)
	}
	anchor := first
	if anchor.Day > clampDay {
		anchor.Day = clampDay
	}
	return AddMonthsClamped(anchor, k-1)
}

// DaysBetween counts the days from a to b using only their calendar dates,
// measured between UTC midnights and rounded up.
func DaysBetween(a, b time.Time) int {
	from := utcMidnight(a)
	to := utcMidnight(b)
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}

// DaysBetweenDates counts the days from a to b.
func DaysBetweenDates(a, b civil.Date) int { return b.DaysSince(a) }

func utcMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
