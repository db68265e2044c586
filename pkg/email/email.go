// Package email holds helpers for the email addresses users sign in with.
package email

import (
	"strings"
	"unicode"
)

// Normalize trims surrounding whitespace. Case is kept: the backend decides
// whether local parts are case-sensitive.
func Normalize(address string) string {
	return strings.TrimSpace(address)
}

// DeriveName guesses a first and last name from the local part, splitting on
// dots, underscores, dashes and plus signs. "ama.k.mensah@x" yields "Ama",
// "Mensah". last is empty when the local part has one segment.
func DeriveName(address string) (first, last string) {
	localPart := Normalize(address)
	if at := strings.IndexByte(localPart, '@'); at >= 0 {
		localPart = localPart[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User", ""
	}

	first = capitalize(parts[0])
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
