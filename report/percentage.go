// Package report accumulates benchmark figures and renders them as
// markdown tables, console rows and JSON.
package report

import (
	"math"
	"strconv"
	"strings"
)

// NotApplicable marks a percentage that cannot be computed.
const NotApplicable = "N/A"

// Percentage returns numerator*100/denominator with one decimal place. Both
// operands are table cells; an empty or non-numeric cell, or a zero
// denominator, yields NotApplicable.
func Percentage(numerator, denominator string) string {
	num, err := strconv.ParseFloat(strings.TrimSpace(numerator), 64)
	if err != nil {
		return NotApplicable
	}

	den, err := strconv.ParseFloat(strings.TrimSpace(denominator), 64)
	if err != nil || den == 0 {
		return NotApplicable
	}

	pct := num * 100 / den
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return NotApplicable
	}

	return strconv.FormatFloat(math.Round(pct*10)/10, 'f', 1, 64)
}
