package textutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseClock reads a time given as plain seconds ("83.5"), M:SS ("1:23.5")
// or H:MM:SS ("1:02:03"). Minutes and seconds after the first field must be
// below 60.
func ParseClock(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty time")
	}
	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	var total float64
	for i, part := range parts {
		last := i == len(parts)-1
		var (
			n   float64
			err error
		)
		if last {
			n, err = strconv.ParseFloat(part, 64)
		} else {
			var whole int
			whole, err = strconv.Atoi(part)
			n = float64(whole)
		}
		if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("invalid time %q", value)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("invalid time %q: field %q out of range", value, part)
		}
		total = total*60 + n
	}
	return total, nil
}

// ParseRange reads "START-END" or "START..END" where each side is accepted
// by ParseClock.
func ParseRange(value string) (float64, float64, error) {
	value = strings.TrimSpace(value)
	sep := ".."
	if !strings.Contains(value, sep) {
		sep = "-"
	}
	left, right, ok := strings.Cut(value, sep)
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q (want START-END)", value)
	}
	start, err := ParseClock(left)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(right)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
