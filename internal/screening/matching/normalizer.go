// Package matching implements the approximate name matching used by the
// sanctions and PEP screeners: normalization, Levenshtein similarity,
// phonetic encoding, and token overlap.
package matching

import (
	"strings"
	"unicode"
)

// NormalizeName canonicalizes a raw name for comparison: lower-case, strip
// every rune that is not a Unicode letter, digit, or space, and collapse
// repeated whitespace to single spaces. Deterministic and side-effect free.
// No transliteration is performed; non-Latin input relies on the repository's
// own indexing.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
