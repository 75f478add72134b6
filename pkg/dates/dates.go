// Package dates is the single date-parsing utility shared by the pipeline
// stages. Extracted documents carry dates in whatever format the issuer used,
// so parsing runs through an ordered list of accepted layouts instead of one
// canonical format.
package dates

import (
	"strings"
	"time"
)

// layouts is tried in order; day-first formats take precedence because the
// majority of ingested documents use them.
var layouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Parse attempts to parse a date literal against the accepted layouts.
// Trailing time components and stray commas are tolerated. A literal that
// matches no layout returns ok=false; parsing never returns an error.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "N/A") {
		return time.Time{}, false
	}

	candidates := []string{s}
	if fields := strings.Fields(strings.ReplaceAll(s, ",", "")); len(fields) > 0 {
		candidates = append(candidates, fields[0])
	}

	for _, c := range candidates {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, c); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// DaysBetween returns the whole number of days from a to b. Negative when b
// precedes a.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
