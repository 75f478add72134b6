package service

import (
	"strconv"
	"strings"
)

// parseAmount converts an extracted monetary string to a float. Currency
// symbols, grouping commas and whitespace are tolerated; anything else
// fails the parse. Malformed amounts are dropped by callers, not errored.
func parseAmount(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r == ',', r == ' ', r == '$', r == '₹', r == '£', r == '€':
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(s))

	if cleaned == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
