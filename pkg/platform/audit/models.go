package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: account
	// materialization and every forced bypass of a verification gate.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers trust-control failures: referral rejections,
	// code mismatches, invalid session handles.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine workflow progress.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key workflow actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// SessionID is the onboarding attempt the event belongs to.
	SessionID string
	// AccountID is set once the account exists.
	AccountID string
	Subject   string
	Action    string
	Step      string
	Decision  string
	Reason    string
	RequestID string
	// Device is a short user-agent derived description ("Chrome on Android").
	Device string
}

type AuditEvent string

const (
	EventOnboardingStarted AuditEvent = "onboarding_started"
	EventOnboardingReset   AuditEvent = "onboarding_reset"
	EventStepAdvanced      AuditEvent = "step_advanced"
	EventGateVerified      AuditEvent = "gate_verified"
	EventGateFailed        AuditEvent = "gate_failed"
	EventGateSkipped       AuditEvent = "gate_skipped"
	EventReferralRejected  AuditEvent = "referral_rejected"
	EventCodeSent          AuditEvent = "verification_code_sent"
	EventCodeMismatch      AuditEvent = "verification_code_mismatch"
	EventAccountCreated    AuditEvent = "account_created"
	EventSessionRejected   AuditEvent = "session_token_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAccountCreated: CategoryCompliance,
	EventGateSkipped:    CategoryCompliance,

	EventReferralRejected: CategorySecurity,
	EventCodeMismatch:     CategorySecurity,
	EventSessionRejected:  CategorySecurity,

	EventOnboardingStarted: CategoryOperations,
	EventOnboardingReset:   CategoryOperations,
	EventStepAdvanced:      CategoryOperations,
	EventGateVerified:      CategoryOperations,
	EventGateFailed:        CategoryOperations,
	EventCodeSent:          CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySession(ctx context.Context, sessionID string) ([]Event, error)
}
