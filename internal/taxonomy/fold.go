package taxonomy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text and strips diacritics (č→c, ř→r, ž→z) so keyword
// matching survives the usual mix of accented and plain spellings.
func Normalize(text string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return folded
}
