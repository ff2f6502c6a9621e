package textutil

import (
	"fmt"
	"math"
)

// InvalidClock is rendered for negative, NaN, or infinite times.
const InvalidClock = "--:--"

// FormatClock renders seconds as M:SS, or H:MM:SS from one hour up.
// Fractional seconds are truncated.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return InvalidClock
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatSeconds renders seconds with millisecond precision, e.g. "12.345s".
func FormatSeconds(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return InvalidClock
	}
	return fmt.Sprintf("%.3fs", seconds)
}
