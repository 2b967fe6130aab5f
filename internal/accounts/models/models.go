package models

import (
	"slices"
	"time"

	id "medbridge/pkg/domain"
)

// Role selects the onboarding path and review policy.
type Role string

const (
	RoleUKSpecialist  Role = "uk_specialist"
	RoleGazaClinician Role = "gaza_clinician"
)

func (r Role) IsValid() bool {
	return r == RoleUKSpecialist || r == RoleGazaClinician
}

// Status is the review state an account is created in.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
)

// Account is the only durable artifact of an onboarding attempt.
type Account struct {
	ID                id.AccountID `json:"id"`
	SessionID         id.SessionID `json:"session_id"`
	Role              Role         `json:"role"`
	Email             string       `json:"email"`
	PasswordHash      string       `json:"-"`
	LicenseNumber     string       `json:"license_number,omitempty"`
	FirstName         string       `json:"first_name,omitempty"`
	LastName          string       `json:"last_name,omitempty"`
	Institution       string       `json:"institution,omitempty"`
	YearsOfExperience int          `json:"years_of_experience,omitempty"`
	Specialties       []string     `json:"specialties,omitempty"`
	Status            Status       `json:"status"`
	CreatedAt         time.Time    `json:"created_at"`
}

// IsApproved reports whether the account belongs on the approved list.
func (a *Account) IsApproved() bool {
	return a.Status == StatusVerified
}

// Clone returns a copy that shares no slices with a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Specialties = slices.Clone(a.Specialties)
	return &c
}
