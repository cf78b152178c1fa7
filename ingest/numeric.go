package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMeters reads a cable length out of a spreadsheet cell. Yard files mix
// locales freely, so both "1.234,56" and "1234.56" must land on the same
// value. Accepts common noise like unit suffixes ("120 m", "120ml") and
// non-breaking spaces.
//
// ParseMeters never fails: anything unreadable, including negative values,
// parses to zero. A missing length is a normal state for a cable that has
// not been measured yet.
func ParseMeters(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	// Drop spaces used as thousands separators (including U+00A0).
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	neg := strings.HasPrefix(s, "-")

	if strings.Contains(s, ",") {
		// Comma-decimal locale: dots are thousands separators.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	// Keep digits and the first '.' only; everything else is noise.
	var b strings.Builder
	b.Grow(len(s))
	dotSeen := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dotSeen:
			dotSeen = true
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" || clean == "." {
		return decimal.Zero
	}

	val, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	if neg {
		return decimal.Zero
	}
	return val
}
