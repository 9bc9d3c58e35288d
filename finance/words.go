package finance

import "strings"

var (
	smallNumbers = []string{
		"Zero", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen",
	}
	tens = []string{
		"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
	}
	scales = []string{"", "Thousand", "Million", "Billion", "Trillion", "Quadrillion", "Quintillion"}
)

// NumberToWords spells n in title case, the way amounts are written out in
// notes: 1234 => "One Thousand Two Hundred Thirty-Four".
func NumberToWords(n int64) string {
	if n == 0 {
		return smallNumbers[0]
	}
	if n < 0 {
		// -n overflows for MinInt64; spell through uint64
		return "Negative " + spellUnsigned(uint64(-(n + 1))+1)
	}
	return spellUnsigned(uint64(n))
}

func spellUnsigned(n uint64) string {
	var groups []string
	for scale := 0; n > 0; scale++ {
		chunk := n % 1000
		n /= 1000
		if chunk == 0 {
			continue
		}
		words := spellHundreds(int(chunk))
		if scales[scale] != "" {
			words += " " + scales[scale]
		}
		groups = append([]string{words}, groups...)
	}
	return strings.Join(groups, " ")
}

func spellHundreds(n int) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, smallNumbers[n/100]+" Hundred")
		n %= 100
	}
	switch {
	case n == 0:
	case n < 20:
		parts = append(parts, smallNumbers[n])
	case n%10 == 0:
		parts = append(parts, tens[n/10])
	default:
		parts = append(parts, tens[n/10]+"-"+smallNumbers[n%10])
	}
	return strings.Join(parts, " ")
}
