package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatWithCommas formats an integer with comma separators
func FormatWithCommas(n int) string {
	if n < 0 {
		return "-" + FormatWithCommas(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// FormatFloat renders f with the given precision, or "n/a" for NaN and infinities.
func FormatFloat(f float64, prec int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, f)
}

// FormatPercent renders a [0, 1] fraction as a percentage.
func FormatPercent(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", f*100)
}
