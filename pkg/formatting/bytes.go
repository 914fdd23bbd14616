// Package formatting provides text and byte-size helpers for model output
// and human-readable sizes.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const unitBase = 1024

var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes renders n with base-1024 units, e.g. FormatBytes(1536, 1) is
// "1.5 KB". Negative precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)
	if n < unitBase && n > -unitBase {
		return strconv.FormatInt(n, 10) + " B"
	}

	size := float64(n)
	i := 0
	for (size >= unitBase || size <= -unitBase) && i < len(units)-1 {
		size /= unitBase
		i++
	}
	return strconv.FormatFloat(size, 'f', precision, 64) + " " + units[i]
}

// ParseBytes parses sizes like "512", "64KB" or "1.5 mb". A missing unit
// means bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	num, unit := s, ""
	if split >= 0 {
		num, unit = s[:split], strings.ToUpper(strings.TrimSpace(s[split:]))
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	if unit == "" {
		return int64(value), nil
	}

	mult := float64(1)
	for _, u := range units {
		if u == unit {
			return int64(value * mult), nil
		}
		mult *= unitBase
	}
	return 0, fmt.Errorf("unknown byte size unit %q", unit)
}
