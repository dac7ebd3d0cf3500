package common

import "fmt"

// FormatPrice formats a fund price with 4 decimal places (TEFAS unit prices
// are small).
func FormatPrice(v float64) string {
	return fmt.Sprintf("%.4f TL", v)
}

// FormatPct formats a fractional value as a percentage.
func FormatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatSignedPct formats a fractional value as a signed percentage.
func FormatSignedPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

// FormatRatio formats a dimensionless ratio (Sharpe, Beta, IR).
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
