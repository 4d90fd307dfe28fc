package batch

import (
	"strings"
	"unicode"

	bankiban "github.com/jbub/banking/iban"
)

// NormalizeIBAN uppercases an IBAN and removes all whitespace.
func NormalizeIBAN(iban string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, iban)
}

// ValidIBAN checks a normalized IBAN against its country's length and
// BBAN format and runs the mod-97 check.
func ValidIBAN(iban string) bool {
	return bankiban.Validate(iban) == nil
}
