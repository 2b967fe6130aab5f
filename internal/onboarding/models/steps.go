package models

import (
	accountmodels "medbridge/internal/accounts/models"
)

// Step identifies one state of the onboarding pipeline.
type Step string

const (
	StepRoleSelect       Step = "role_select"
	StepRegistryLookup   Step = "registry_lookup"
	StepDocumentMatch    Step = "document_match"
	StepBiometricCapture Step = "biometric_capture"
	StepEmailVerify      Step = "email_verify"
	StepCodeConfirm      Step = "code_confirm"
	StepPasswordSet      Step = "password_set"
	StepReferralCode     Step = "referral_code"
	StepEmailVerifyGaza  Step = "email_verify_gaza"
	StepComplete         Step = "complete"
)

// Status is the verification status of one gate.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerifying Status = "verifying"
	StatusVerified  Status = "verified"
	StatusFailed    Status = "failed"
)

// StepPolicy is the static per-step configuration.
type StepPolicy struct {
	// Skippable allows forcing a pending or failed gate to verified.
	Skippable bool
}

var stepPolicies = map[Step]StepPolicy{
	StepRoleSelect:       {Skippable: false},
	StepRegistryLookup:   {Skippable: false},
	StepDocumentMatch:    {Skippable: true},
	StepBiometricCapture: {Skippable: true},
	StepEmailVerify:      {Skippable: true},
	StepCodeConfirm:      {Skippable: true},
	StepPasswordSet:      {Skippable: false},
	StepReferralCode:     {Skippable: false},
	StepEmailVerifyGaza:  {Skippable: false},
	StepComplete:         {Skippable: false},
}

// PolicyFor returns the policy for step. Unknown steps are not skippable.
func PolicyFor(step Step) StepPolicy {
	return stepPolicies[step]
}

var sequences = map[accountmodels.Role][]Step{
	accountmodels.RoleUKSpecialist: {
		StepRoleSelect,
		StepRegistryLookup,
		StepDocumentMatch,
		StepBiometricCapture,
		StepEmailVerify,
		StepCodeConfirm,
		StepPasswordSet,
		StepComplete,
	},
	accountmodels.RoleGazaClinician: {
		StepRoleSelect,
		StepReferralCode,
		StepEmailVerifyGaza,
		StepComplete,
	},
}

// Sequence returns the ordered steps for role. Before a role is chosen the
// sequence is just role_select.
func Sequence(role accountmodels.Role) []Step {
	if seq, ok := sequences[role]; ok {
		return seq
	}
	return []Step{StepRoleSelect}
}

// IsGate reports whether step carries a verification status.
func IsGate(step Step) bool {
	return step != StepRoleSelect && step != StepComplete
}

// ConfirmsEmail reports whether step proves ownership of the profile email.
func ConfirmsEmail(step Step) bool {
	return step == StepCodeConfirm || step == StepEmailVerifyGaza
}
