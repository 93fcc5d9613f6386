package services

import (
	"fmt"
	"math"
)

// FormatDuration renders seconds as "Xh Ym Zs", dropping leading zero units.
// Input must be finite and non-negative.
func FormatDuration(seconds float64) string {
	secs := int64(math.Round(seconds))
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
