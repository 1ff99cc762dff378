package report

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug derives a URL-safe identity from a scenario or feature name: accents
// are stripped, letters lowercased and every run of other characters becomes
// a single "-". Distinct names may produce the same slug.
func Slug(name string) string {
	// Transformers carry state, so each call builds its own chain.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	separate := false
	for _, r := range strings.ToLower(folded) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			separate = true
			continue
		}
		if separate && b.Len() > 0 {
			b.WriteByte('-')
		}
		separate = false
		b.WriteRune(r)
	}
	return b.String()
}
