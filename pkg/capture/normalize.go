package capture

import "strings"

// NormalizeEventName converts a route parameter into the stored event-name
// form: hyphens become spaces ("event-photos" -> "event photos").
func NormalizeEventName(s string) string {
	return strings.ReplaceAll(s, "-", " ")
}

// MatchesEventName reports whether the stored name matches the (already
// normalized) query as a case-insensitive substring.
func MatchesEventName(stored, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(stored), strings.ToLower(query))
}
