package titles

import (
	"regexp"
	"strings"
)

var (
	articlePattern = regexp.MustCompile(`(?i)^(the|a|an)\s+`)
	alnumPattern   = regexp.MustCompile(`[^a-z0-9]+`)
	yearPattern    = regexp.MustCompile(`\d{4}`)
)

// SortTitle strips a leading English article so "The Grinch" sorts as "Grinch".
func SortTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	return strings.TrimSpace(articlePattern.ReplaceAllString(trimmed, ""))
}

// Normalize lowercases, removes the leading article, and collapses everything
// that is not a letter or digit into single spaces. Used for search keywords
// and catalogue ordering.
func Normalize(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	lowered = articlePattern.ReplaceAllString(lowered, "")
	return strings.TrimSpace(alnumPattern.ReplaceAllString(lowered, " "))
}

// Tokens splits a title into lowercase whitespace-delimited tokens for
// overlap scoring.
func Tokens(title string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(title)))
}

// Year extracts the first 4-digit run from a date-ish string, so "2003",
// "2003-11-07", and "Nov 2003" all yield "2003". Returns "" when no year is
// present.
func Year(s string) string {
	return yearPattern.FindString(s)
}
