package finance

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// =============================================================================
// DISPLAY FORMATTING - Rounding happens here and nowhere earlier
// =============================================================================

// FormatCurrency renders a money amount as "$1,234.56".
func FormatCurrency(d decimal.Decimal) string {
	rounded := RoundCents(d)
	if rounded.IsNegative() {
		return "-$" + humanize.FormatFloat("#,###.##", rounded.Neg().InexactFloat64())
	}
	return "$" + humanize.FormatFloat("#,###.##", rounded.InexactFloat64())
}

// FormatPercent renders a fraction as a percentage with at most two
// decimals and no trailing zeros: 0.2 => "20%", 0.0725 => "7.25%", 0 => "0%".
func FormatPercent(fraction decimal.Decimal) string {
	return fraction.Mul(hundred).Round(2).String() + "%"
}

// FormatRate renders a fraction as a percentage with exactly places
// decimals, the way note rates are stated: FormatRate(0.07, 3) => "7.000%".
func FormatRate(fraction decimal.Decimal, places int32) string {
	return fraction.Mul(hundred).StringFixed(places) + "%"
}

// FormatAPR renders an APR (already a percentage) with three decimals,
// the precision regulatory disclosures print.
func FormatAPR(r APRResult) string {
	return r.APR.StringFixed(3) + "%"
}

// AmountInWords renders the legal form of an amount:
// 500000 => "Five Hundred Thousand and 00/100 Dollars".
func AmountInWords(d decimal.Decimal) string {
	rounded := RoundCents(d.Abs())
	whole := rounded.IntPart()
	cents := rounded.Sub(decimal.NewFromInt(whole)).Mul(hundred).IntPart()

	var b strings.Builder
	if d.IsNegative() && !rounded.IsZero() {
		b.WriteString("Negative ")
	}
	b.WriteString(NumberToWords(whole))
	b.WriteString(" and ")
	if cents < 10 {
		b.WriteString("0")
	}
	b.WriteString(humanize.Comma(cents))
	b.WriteString("/100 Dollars")
	return b.String()
}
