package finance_test

import (
	"testing"

	"github.com/dealforge/docfin/finance"
	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$1,234.50", finance.FormatCurrency(dec("1234.5")))
	assert.Equal(t, "$500,000.00", finance.FormatCurrency(dec("500000")))
	assert.Equal(t, "$0.01", finance.FormatCurrency(dec("0.005")))
	assert.Equal(t, "-$12.35", finance.FormatCurrency(dec("-12.345")))
}

func TestFormatPercentAndRate(t *testing.T) {
	assert.Equal(t, "7.25%", finance.FormatPercent(dec("0.0725")))
	assert.Equal(t, "20%", finance.FormatPercent(dec("0.2")))
	assert.Equal(t, "7.000%", finance.FormatRate(dec("0.07"), 3))
	assert.Equal(t, "7.125%", finance.FormatRate(dec("0.07125"), 3))
}

func TestNumberToWords(t *testing.T) {
	cases := map[int64]string{
		0:          "Zero",
		7:          "Seven",
		19:         "Nineteen",
		40:         "Forty",
		99:         "Ninety-Nine",
		100:        "One Hundred",
		1234:       "One Thousand Two Hundred Thirty-Four",
		500000:     "Five Hundred Thousand",
		1000001:    "One Million One",
		2000000000: "Two Billion",
		-15:        "Negative Fifteen",
	}
	for n, want := range cases {
		assert.Equal(t, want, finance.NumberToWords(n), "n=%d", n)
	}
}

func TestAmountInWords(t *testing.T) {
	assert.Equal(t, "Five Hundred Thousand and 00/100 Dollars", finance.AmountInWords(dec("500000")))
	assert.Equal(t, "One Thousand Two Hundred Thirty-Four and 56/100 Dollars", finance.AmountInWords(dec("1234.56")))
	assert.Equal(t, "Three and 05/100 Dollars", finance.AmountInWords(dec("3.049")))
}
