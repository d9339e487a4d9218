package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize strips diacritics from a string: decompose, drop combining
// marks, recompose. Case is preserved; callers lower-case as needed.
func Normalize(s string) string {
	out, _, err := transform.String(stripper, s)
	if err != nil {
		return s
	}
	return out
}

// normalizeLower is the matcher's working form: diacritic-stripped and
// lower-cased.
func normalizeLower(s string) string {
	return strings.ToLower(Normalize(s))
}
