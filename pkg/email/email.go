// Package email derives human-readable names from reporter email addresses
// for use in notification bodies when a report carries no display name.
package email

import (
	"strings"
	"unicode"
)

// DeriveDisplayName extracts a presentable name from the local part of an
// email address. "ali.raza@example.com" becomes "Ali Raza". Falls back to
// "Reporter" when nothing usable remains.
func DeriveDisplayName(email string) string {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "Reporter"
	}

	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
