package models

import (
	"slices"
	"strings"

	accountmodels "medbridge/internal/accounts/models"
	docmodels "medbridge/internal/document/models"
)

// Profile is the registration data accumulated across steps. Registry fields
// are written only by a successful registry lookup.
type Profile struct {
	Role              accountmodels.Role `json:"role,omitempty"`
	LicenseNumber     string             `json:"license_number,omitempty"`
	FirstName         string             `json:"first_name,omitempty"`
	LastName          string             `json:"last_name,omitempty"`
	Institution       string             `json:"institution,omitempty"`
	YearsOfExperience int                `json:"years_of_experience,omitempty"`
	Specialties       []string           `json:"specialties,omitempty"`
	ReferralCode      string             `json:"-"`
	ReferralAccepted  bool               `json:"referral_accepted,omitempty"`
	Email             string             `json:"email,omitempty"`
	EmailVerified     bool               `json:"email_verified,omitempty"`
	PasswordHash      string             `json:"-"`
	Document          *docmodels.Image   `json:"document,omitempty"`
}

// DisplayName is the name used in the verification email.
func (p *Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// HasPassword reports whether a password hash has been recorded.
func (p *Profile) HasPassword() bool {
	return p.PasswordHash != ""
}

func (p Profile) clone() Profile {
	p.Specialties = slices.Clone(p.Specialties)
	if p.Document != nil {
		doc := *p.Document
		p.Document = &doc
	}
	return p
}
