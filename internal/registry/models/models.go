package models

import (
	"errors"
	"time"
)

// DefaultSpecialty is recorded when the registry lists no specialty.
const DefaultSpecialty = "Doctor"

// Record is the structured view of one registry profile document.
type Record struct {
	LicenseNumber     string    `json:"license_number"`
	FullName          string    `json:"full_name"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Institution       string    `json:"institution"`
	RegisteredOn      time.Time `json:"registered_on,omitzero"`
	YearsOfExperience int       `json:"years_of_experience"`
	Specialties       []string  `json:"specialties"`
	CheckedAt         time.Time `json:"checked_at"`
}

// NameTokens returns the first and last name for document matching.
func (r *Record) NameTokens() []string {
	var out []string
	if r.FirstName != "" {
		out = append(out, r.FirstName)
	}
	if r.LastName != "" {
		out = append(out, r.LastName)
	}
	return out
}

// Failure kinds carried under the domain error codes.
var (
	// ErrInvalidLicense means the registry does not assert an active licence
	// for the number, including when the number is unknown.
	ErrInvalidLicense = errors.New("licence not active")

	// ErrLookupUnavailable covers transport failures, 5xx responses, unreadable
	// bodies and an open circuit.
	ErrLookupUnavailable = errors.New("registry lookup unavailable")
)
