package models

import "strings"

// NormalizeSymbol maps raw ticker spellings such as " $btc " onto one cache key.
// Unusual input normalizes to a possibly empty key rather than failing.
func NormalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$")
	s = strings.TrimSpace(s)
	return strings.ToUpper(s)
}
