package domain

import "strings"

// Normalize canonicalizes a raw query for use as a cache key: lower-cased,
// trimmed, with internal whitespace runs collapsed to single spaces.
// Idempotent, so equal semantic queries map to the same key regardless of
// case or spacing. Returns "" for empty or whitespace-only input.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}
