package service

import (
	"context"
	"slices"
	"time"

	accountmodels "medbridge/internal/accounts/models"
	"medbridge/internal/onboarding/events"
	"medbridge/internal/onboarding/models"
	id "medbridge/pkg/domain"
	dErrors "medbridge/pkg/domain-errors"
	audit "medbridge/pkg/platform/audit"
	"medbridge/pkg/requestcontext"
)

// Complete materializes the account once the session reached the terminal
// step. Repeated calls return the same account.
func (s *Service) Complete(ctx context.Context, sessionID id.SessionID) (*View, *accountmodels.Account, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	var (
		snapshot *models.Machine
		existing bool
	)
	err = session.Do(func(m *models.Machine) error {
		snapshot = m.Clone()
		if m.Blocked {
			return dErrors.New(dErrors.CodePolicyBlocked, "this onboarding attempt is blocked, restart to try again")
		}
		if m.Step != models.StepComplete {
			return dErrors.New(dErrors.CodeConflict, "onboarding is not finished")
		}
		if !m.EmailConfirmed() {
			return dErrors.New(dErrors.CodeConflict, "confirm your email address before finishing")
		}
		existing = m.AccountID != ""
		return nil
	})
	if err != nil {
		return newView(session, snapshot), nil, err
	}
	if existing {
		account, err := s.accounts.FindBySession(ctx, sessionID)
		if err != nil {
			return newView(session, snapshot), nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
		}
		return newView(session, snapshot), account, nil
	}

	account, err := s.accounts.Create(ctx, buildAccount(sessionID, snapshot, requestcontext.Now(ctx)))
	if err != nil {
		return newView(session, snapshot), nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store account, please retry")
	}

	var first bool
	_ = session.Do(func(m *models.Machine) error {
		first = m.AccountID == ""
		m.MarkComplete(account.ID.String())
		snapshot = m.Clone()
		return nil
	})
	if first {
		s.metrics.IncrementAccountCreated(string(account.Role), string(account.Status))
		s.publish(ctx, session, snapshot, models.StepComplete, models.StepComplete, events.ReasonComplete)
		s.emit(ctx, sessionID, audit.EventAccountCreated, models.StepComplete, string(account.Status), "")
		s.logger.InfoContext(ctx, "onboarding account created",
			"type", "audit",
			"session_id", sessionID.String(),
			"account_id", account.ID.String(),
			"role", string(account.Role),
			"status", string(account.Status),
		)
	}
	return newView(session, snapshot), account, nil
}

func buildAccount(sessionID id.SessionID, m *models.Machine, now time.Time) *accountmodels.Account {
	p := m.Profile
	status := accountmodels.StatusPending
	if p.Role == accountmodels.RoleGazaClinician && p.ReferralAccepted {
		status = accountmodels.StatusVerified
	}
	return &accountmodels.Account{
		ID:                id.NewAccountID(),
		SessionID:         sessionID,
		Role:              p.Role,
		Email:             p.Email,
		PasswordHash:      p.PasswordHash,
		LicenseNumber:     p.LicenseNumber,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Institution:       p.Institution,
		YearsOfExperience: p.YearsOfExperience,
		Specialties:       slices.Clone(p.Specialties),
		Status:            status,
		CreatedAt:         now,
	}
}
