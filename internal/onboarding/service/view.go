package service

import (
	"time"

	"medbridge/internal/onboarding/models"
	dErrors "medbridge/pkg/domain-errors"
)

// View is the client-facing state of a session. Secrets are never part of it.
type View struct {
	SessionID string                      `json:"session_id"`
	Step      models.Step                 `json:"step"`
	Sequence  []models.Step               `json:"sequence"`
	Epoch     uint64                      `json:"epoch"`
	Blocked   bool                        `json:"blocked"`
	CanSkip   bool                        `json:"can_skip"`
	CanGoBack bool                        `json:"can_go_back"`
	Gates     map[models.Step]models.Gate `json:"gates"`
	Profile   models.Profile              `json:"profile"`
	AccountID string                      `json:"account_id,omitempty"`
	ExpiresAt time.Time                   `json:"expires_at"`
}

func newView(session *models.Session, m *models.Machine) *View {
	if m == nil {
		m = session.Snapshot()
	}
	gates := make(map[models.Step]models.Gate)
	for _, step := range m.Sequence() {
		if !models.IsGate(step) {
			continue
		}
		if g, ok := m.Gates[step]; ok {
			gates[step] = *g
		} else {
			gates[step] = models.Gate{Status: models.StatusPending}
		}
	}
	return &View{
		SessionID: session.ID.String(),
		Step:      m.Step,
		Sequence:  m.Sequence(),
		Epoch:     m.Epoch,
		Blocked:   m.Blocked,
		CanSkip:   m.CanSkip() && m.GateStatus(m.Step) != models.StatusVerified,
		CanGoBack: !m.Blocked && m.Step != models.StepRoleSelect && m.AccountID == "",
		Gates:     gates,
		Profile:   m.Profile,
		AccountID: m.AccountID,
		ExpiresAt: session.ExpiresAt(),
	}
}

// Retryable reports whether repeating the request, possibly with new input,
// can succeed.
func Retryable(code dErrors.Code) bool {
	switch code {
	case dErrors.CodePolicyBlocked, dErrors.CodeNotFound, dErrors.CodeUnauthorized, dErrors.CodeInternal:
		return false
	default:
		return true
	}
}

// Skippable reports whether a failure with code may be bypassed by skipping
// the active step of view.
func Skippable(view *View, code dErrors.Code) bool {
	if view == nil || code == dErrors.CodeInvalidInput || code == dErrors.CodePolicyBlocked {
		return false
	}
	return view.CanSkip
}
