// Package slug derives URL-safe identifiers from display titles.
package slug

import "strings"

// Fallback is returned when the input contains no usable characters.
const Fallback = "untitled"

// Make lowercases the input, collapses whitespace runs into single hyphens,
// strips everything outside [a-z0-9-], collapses repeated hyphens and trims
// hyphens from both ends. It is total: any input yields a non-empty slug,
// with Fallback covering empty or all-punctuation titles.
func Make(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		// Anything else is dropped without emitting a separator.
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return Fallback
	}
	return out
}
