// Package email holds the small address helpers the verification steps share.
package email

import (
	"net/mail"
	"strings"
	"unicode"
)

// Normalize trims surrounding whitespace and lowercases the address so the
// same mailbox always binds to the same one-time code.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValid reports whether address parses as a bare RFC 5322 address.
func IsValid(address string) bool {
	if address == "" || strings.ContainsAny(address, " <>") {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return false
	}
	return parsed.Address == address
}

// HasDomainSuffix reports whether the address domain ends with suffix,
// case-insensitively. A leading "@" or "." on suffix is ignored.
func HasDomainSuffix(address, suffix string) bool {
	suffix = strings.ToLower(strings.TrimLeft(strings.TrimSpace(suffix), "@."))
	if suffix == "" {
		return true
	}
	at := strings.LastIndexByte(address, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(address[at+1:])
	return domain == suffix || strings.HasSuffix(domain, "."+suffix)
}

// DeriveNameFromEmail guesses a display name from the local part, used when
// no registry name is available (Gaza clinicians).
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
