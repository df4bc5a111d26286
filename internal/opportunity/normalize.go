package opportunity

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts is the whitelisted set of formats a raw CSV/attachment date
// might arrive in, tried in order before the ISO8601-with-offset path.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate tries the whitelisted layouts, then full ISO8601 with a numeric
// offset, normalizing everything to UTC. Returns (zero, false) if no layout
// matches.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// ParseCurrency strips a leading "$" and thousands commas, coercing the
// result to a decimal. An unparseable value yields 0, not an error, since
// malformed currency fields must not abort ingestion of the whole row.
func ParseCurrency(raw string) float64 {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// ParseBool accepts the common truthy/falsy spellings seen in government
// CSV exports, lower-cased before comparison.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1":
		return true
	default:
		return false
	}
}

// TrimStrings trims surrounding whitespace from each string that values
// point to, in place.
func TrimStrings(values ...*string) {
	for _, v := range values {
		*v = strings.TrimSpace(*v)
	}
}

// ParseInt parses a whitespace-trimmed integer, returning 0 on failure.
func ParseInt(raw string) int {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
