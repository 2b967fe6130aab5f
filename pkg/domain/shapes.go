package domain

import (
	dErrors "medbridge/pkg/domain-errors"
)

const (
	licenseNumberLength = 7
	oneTimeCodeLength   = 6
)

// LicenseNumber is a professional-registry reference: exactly seven ASCII digits.
type LicenseNumber string

// OneTimeCode is an email confirmation code: exactly six ASCII digits.
type OneTimeCode string

// ParseLicenseNumber enforces ^\d{7}$ before any registry round trip.
func ParseLicenseNumber(s string) (LicenseNumber, error) {
	if !allDigits(s, licenseNumberLength) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "license number must be exactly 7 digits")
	}
	return LicenseNumber(s), nil
}

// ParseOneTimeCode enforces ^\d{6}$.
func ParseOneTimeCode(s string) (OneTimeCode, error) {
	if !allDigits(s, oneTimeCodeLength) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "verification code must be exactly 6 digits")
	}
	return OneTimeCode(s), nil
}

func (l LicenseNumber) String() string { return string(l) }
func (c OneTimeCode) String() string   { return string(c) }

// allDigits checks byte-wise so that non-ASCII digits (e.g. Arabic-Indic) are
// rejected.
func allDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
