package finance_test

import (
	"testing"

	"github.com/dealforge/docfin/finance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerDiem_Conventions(t *testing.T) {
	p360, err := finance.PerDiem(dec("100000"), dec("0.072"), finance.Actual360)
	require.NoError(t, err)
	assert.True(t, p360.Equal(dec("20")))

	p365, err := finance.PerDiem(dec("100000"), dec("0.073"), finance.Actual365)
	require.NoError(t, err)
	assert.True(t, p365.Equal(dec("20")))
}

func TestPerDiem_Actual360NeverBelowActual365(t *testing.T) {
	// GIVEN: The same principal and rate
	// WHEN: Computing per-diem under both conventions
	// THEN: Actual/360 >= Actual/365

	for _, principal := range []string{"0", "1", "2500.50", "100000", "12345678.90"} {
		for _, rate := range []string{"0", "0.01", "0.0575", "0.125", "0.3"} {
			a360, err := finance.PerDiem(dec(principal), dec(rate), finance.Actual360)
			require.NoError(t, err)
			a365, err := finance.PerDiem(dec(principal), dec(rate), finance.Actual365)
			require.NoError(t, err)
			assert.True(t, a360.GreaterThanOrEqual(a365), "%s @ %s", principal, rate)
		}
	}
}

func TestProratedInterest(t *testing.T) {
	got, err := finance.ProratedInterest(dec("100000"), dec("0.072"), 15, finance.Actual360)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("300")))

	got, err = finance.ProratedInterest(dec("100000"), dec("0.072"), 0, finance.Actual365)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = finance.ProratedInterest(dec("100000"), dec("0.072"), -1, finance.Actual360)
	assert.ErrorIs(t, err, finance.ErrInvalidLoanParameters)
}

func TestPerDiem_UnknownConvention(t *testing.T) {
	_, err := finance.PerDiem(dec("100"), dec("0.05"), "30_360")
	assert.ErrorIs(t, err, finance.ErrInvalidLoanParameters)
}
