// Package normalize canonicalizes free-text region names so that lookups are
// a pure equality match on the resulting keys.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'", "´", "'")

// Key returns the lookup key for a region name: diacritics folded, lower-cased,
// trimmed, with inner whitespace runs collapsed to a single space.
// "  Béjaïa " and "BEJAIA" produce the same key.
func Key(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.Join(strings.Fields(strings.ToLower(apostrophes.Replace(fold(name)))), " ")
}

// fold strips combining marks. Transformers keep state, so a fresh chain is
// built per call.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
