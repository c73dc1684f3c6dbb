package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s after NFKC normalisation, keeps letters, numbers and
// underscores of any script, and joins the remaining words with single
// hyphens. Leading and trailing hyphens and underscores are stripped.
func Slugify(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))

	var b strings.Builder
	sep := false
	for _, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r):
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			sep = true
		}
	}
	return strings.Trim(b.String(), "-_")
}
