package memory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold pasa a minúsculas y quita tildes para búsquedas de texto libre ("acetaminofén" == "ACETAMINOFEN").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

func containsFolded(haystack, needle string) bool {
	return strings.Contains(fold(haystack), fold(needle))
}
