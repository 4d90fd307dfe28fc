package batch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxNameLen       = 70
	maxRemittanceLen = 140
)

var germanReplacer = strings.NewReplacer(
	"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
	"ä", "ae", "ö", "oe", "ü", "ue",
	"ß", "ss",
)

// Transliterate maps s onto the SEPA Latin character set. German umlauts
// are spelled out, other diacritics are dropped and anything else outside
// the set becomes a space.
func Transliterate(s string) string {
	s = norm.NFC.String(s)
	s = germanReplacer.Replace(s)

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = stripped
	}

	return strings.Map(func(r rune) rune {
		if sepaAllowed(r) {
			return r
		}
		return ' '
	}, s)
}

func sepaAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("/-?:().,'+ ", r)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
