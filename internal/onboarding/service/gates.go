package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	biomodels "medbridge/internal/biometric/models"
	docmodels "medbridge/internal/document/models"
	emailmodels "medbridge/internal/emailverify/models"
	"medbridge/internal/onboarding/events"
	"medbridge/internal/onboarding/models"
	id "medbridge/pkg/domain"
	dErrors "medbridge/pkg/domain-errors"
	"medbridge/pkg/email"
	audit "medbridge/pkg/platform/audit"
	"medbridge/pkg/requestcontext"
	"medbridge/pkg/secrets"
)

const (
	minPasswordLength = 8
	// maxPasswordLength is the bcrypt input limit.
	maxPasswordLength = 72
)

// gateWork runs outside the session lock against a snapshot of the machine.
// On success it returns the profile mutation to apply.
type gateWork func(ctx context.Context, snapshot *models.Machine) (apply func(p *models.Profile), err error)

// gateMode selects how a successful result is applied.
type gateMode int

const (
	// verifyGate marks the gate verified and advances.
	verifyGate gateMode = iota
	// settleGate applies the result without verifying the gate.
	settleGate
)

// runGate begins step under the lock, runs work without it, and applies the
// outcome under the lock unless the session moved on in between.
func (s *Service) runGate(ctx context.Context, sessionID id.SessionID, step models.Step, mode gateMode, work gateWork) (*View, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var (
		ticket models.Ticket
		input  *models.Machine
	)
	err = session.Do(func(m *models.Machine) error {
		var err error
		ticket, err = m.Begin(step)
		input = m.Clone()
		return err
	})
	if err != nil {
		return newView(session, input), err
	}

	ctx, span := s.tracer.Start(ctx, "onboarding.gate",
		trace.WithAttributes(
			attribute.String("onboarding.step", string(step)),
			attribute.Int64("onboarding.epoch", int64(ticket.Epoch)),
		))
	defer span.End()

	apply, workErr := work(ctx, input)
	if workErr != nil {
		span.RecordError(workErr)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(workErr)))
	}

	var snapshot *models.Machine
	applyErr := session.Do(func(m *models.Machine) error {
		defer func() { snapshot = m.Clone() }()
		switch {
		case workErr != nil && dErrors.HasCode(workErr, dErrors.CodeRateLimited):
			return m.Settle(ticket, nil)
		case workErr != nil:
			return m.Fail(ticket, workErr)
		case mode == settleGate:
			return m.Settle(ticket, apply)
		default:
			return m.Succeed(ticket, apply)
		}
	})
	view := newView(session, snapshot)

	if errors.Is(applyErr, models.ErrStale) {
		s.metrics.IncrementStaleResult()
		s.logger.InfoContext(ctx, "discarded stale gate result",
			"session_id", session.ID.String(),
			"step", string(step),
			"epoch", ticket.Epoch,
		)
		return view, dErrors.New(dErrors.CodeConflict, "the session moved on before this step finished")
	}
	if applyErr != nil {
		return view, applyErr
	}

	switch {
	case workErr != nil && dErrors.HasCode(workErr, dErrors.CodeRateLimited):
	case workErr != nil:
		s.publishGate(ctx, session, snapshot, step, models.StatusFailed, events.ReasonFailed)
		s.emit(ctx, session.ID, audit.EventGateFailed, step, "failed", string(dErrors.CodeOf(workErr)))
	case mode == verifyGate:
		s.publishGate(ctx, session, snapshot, step, models.StatusVerified, events.ReasonVerified)
		s.emit(ctx, session.ID, audit.EventGateVerified, step, "verified", "")
	}
	return view, workErr
}

// activeStep reads the current step of the session.
func (s *Service) activeStep(ctx context.Context, sessionID id.SessionID) (*models.Session, *models.Machine, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, session.Snapshot(), nil
}

// LookupLicense runs the registry gate. A malformed number is rejected before
// the gate starts.
func (s *Service) LookupLicense(ctx context.Context, sessionID id.SessionID, license string) (*View, error) {
	if _, err := id.ParseLicenseNumber(license); err != nil {
		return s.viewWithError(ctx, sessionID, err)
	}
	return s.runGate(ctx, sessionID, models.StepRegistryLookup, verifyGate, func(ctx context.Context, _ *models.Machine) (func(*models.Profile), error) {
		rec, err := s.gates.Registry.Lookup(ctx, license)
		if err != nil {
			return nil, err
		}
		return func(p *models.Profile) {
			p.LicenseNumber = rec.LicenseNumber
			p.FirstName = rec.FirstName
			p.LastName = rec.LastName
			p.Institution = rec.Institution
			p.YearsOfExperience = rec.YearsOfExperience
			p.Specialties = append([]string(nil), rec.Specialties...)
		}, nil
	})
}

// MatchDocument runs OCR name matching over an uploaded identity document.
func (s *Service) MatchDocument(ctx context.Context, sessionID id.SessionID, image []byte) (*View, error) {
	contentType, err := s.gates.Documents.DetectContentType(image)
	if err != nil {
		return s.viewWithError(ctx, sessionID, err)
	}
	return s.runGate(ctx, sessionID, models.StepDocumentMatch, verifyGate, func(ctx context.Context, m *models.Machine) (func(*models.Profile), error) {
		expected := []string{m.Profile.FirstName, m.Profile.LastName}
		if err := s.gates.Documents.MatchDocument(ctx, image, expected); err != nil {
			return nil, err
		}
		doc := docmodels.NewImage(image, contentType, requestcontext.Now(ctx))
		return func(p *models.Profile) {
			p.Document = doc
		}, nil
	})
}

// CaptureBiometric verifies one live frame against the accepted document.
func (s *Service) CaptureBiometric(ctx context.Context, sessionID id.SessionID, frame []byte, contentType string) (*View, error) {
	return s.runGate(ctx, sessionID, models.StepBiometricCapture, verifyGate, func(ctx context.Context, m *models.Machine) (func(*models.Profile), error) {
		var reference *biomodels.Reference
		if doc := m.Profile.Document; doc != nil && len(doc.Data) > 0 {
			reference = &biomodels.Reference{Data: doc.Data, ContentType: doc.ContentType}
		}
		if err := s.gates.Biometric.CaptureAndVerify(ctx, s.cameraFor(frame, contentType), reference); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// SendEmailCode dispatches a code to address. UK specialists must use the
// institutional domain and the email gate verifies on dispatch; Gaza
// clinicians may use any address and verify on confirmation.
func (s *Service) SendEmailCode(ctx context.Context, sessionID id.SessionID, address string) (*View, *emailmodels.CodeSent, error) {
	_, current, err := s.activeStep(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	step, policy, mode := models.StepEmailVerify, emailmodels.RequireInstitutional, verifyGate
	if current.Step == models.StepEmailVerifyGaza {
		step, policy, mode = models.StepEmailVerifyGaza, emailmodels.AnyDomain, settleGate
	}

	var sent *emailmodels.CodeSent
	view, err := s.runGate(ctx, sessionID, step, mode, func(ctx context.Context, m *models.Machine) (func(*models.Profile), error) {
		var err error
		sent, err = s.gates.Email.SendCode(ctx, address, displayName(m, address), policy)
		if err != nil {
			return nil, err
		}
		return func(p *models.Profile) {
			p.Email = sent.Email
		}, nil
	})
	if err != nil {
		return view, nil, err
	}
	s.emit(ctx, sessionID, audit.EventCodeSent, step, "sent", "")
	return view, sent, nil
}

// ResendCode issues a new code to the address already on the profile,
// invalidating the previous one.
func (s *Service) ResendCode(ctx context.Context, sessionID id.SessionID) (*View, *emailmodels.CodeSent, error) {
	session, current, err := s.activeStep(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	view := newView(session, current)
	if current.Blocked {
		return view, nil, dErrors.New(dErrors.CodePolicyBlocked, "this onboarding attempt is blocked, restart to try again")
	}

	policy := emailmodels.RequireInstitutional
	switch current.Step {
	case models.StepCodeConfirm:
	case models.StepEmailVerifyGaza:
		policy = emailmodels.AnyDomain
	default:
		return view, nil, dErrors.New(dErrors.CodeConflict, "no verification code is pending for this step")
	}
	if current.Profile.Email == "" {
		return view, nil, dErrors.New(dErrors.CodeConflict, "request a verification code first")
	}

	sent, err := s.gates.Email.SendCode(ctx, current.Profile.Email, displayName(current, current.Profile.Email), policy)
	if err != nil {
		return view, nil, err
	}
	s.emit(ctx, sessionID, audit.EventCodeSent, current.Step, "resent", "")
	return view, sent, nil
}

// ConfirmEmailCode checks the submitted code. On the Gaza path the password is
// collected with it.
func (s *Service) ConfirmEmailCode(ctx context.Context, sessionID id.SessionID, code, password, confirmPassword string) (*View, error) {
	if _, err := id.ParseOneTimeCode(code); err != nil {
		return s.viewWithError(ctx, sessionID, err)
	}
	session, current, err := s.activeStep(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	step, gaza := models.StepCodeConfirm, false
	if current.Step == models.StepEmailVerifyGaza {
		step, gaza = models.StepEmailVerifyGaza, true
		if err := validatePassword(password, confirmPassword); err != nil {
			return newView(session, current), err
		}
	}
	if (current.Step == models.StepCodeConfirm || gaza) && current.Profile.Email == "" {
		return newView(session, current), dErrors.New(dErrors.CodeConflict, "request a verification code first")
	}

	var consumed bool
	view, err := s.runGate(ctx, sessionID, step, verifyGate, func(ctx context.Context, m *models.Machine) (func(*models.Profile), error) {
		if err := s.gates.Email.ConfirmCode(ctx, code, m.Profile.Email); err != nil {
			return nil, err
		}
		consumed = true
		var hash string
		if gaza {
			var err error
			if hash, err = secrets.Hash(password); err != nil {
				return nil, err
			}
		}
		return func(p *models.Profile) {
			p.EmailVerified = true
			if hash != "" {
				p.PasswordHash = hash
			}
		}, nil
	})
	if dErrors.HasCode(err, dErrors.CodeMismatch) {
		s.emit(ctx, sessionID, audit.EventCodeMismatch, step, "rejected", "")
	}
	if consumed && dErrors.HasCode(err, dErrors.CodeConflict) {
		// Codes are single use, so a discarded confirmation cannot be replayed.
		return view, dErrors.New(dErrors.CodeConflict, "the session moved on before the code was applied, request a new code")
	}
	return view, err
}

// SetPassword records the account password for UK specialists.
func (s *Service) SetPassword(ctx context.Context, sessionID id.SessionID, password, confirmPassword string) (*View, error) {
	if err := validatePassword(password, confirmPassword); err != nil {
		return s.viewWithError(ctx, sessionID, err)
	}
	return s.runGate(ctx, sessionID, models.StepPasswordSet, verifyGate, func(context.Context, *models.Machine) (func(*models.Profile), error) {
		hash, err := secrets.Hash(password)
		if err != nil {
			return nil, err
		}
		return func(p *models.Profile) {
			p.PasswordHash = hash
		}, nil
	})
}

// SubmitReferral compares the code with the configured shared secret by exact
// string equality. A mismatch blocks the attempt.
func (s *Service) SubmitReferral(ctx context.Context, sessionID id.SessionID, code string) (*View, error) {
	if code == "" {
		return s.viewWithError(ctx, sessionID, dErrors.New(dErrors.CodeInvalidInput, "referral code is required"))
	}
	view, err := s.runGate(ctx, sessionID, models.StepReferralCode, verifyGate, func(context.Context, *models.Machine) (func(*models.Profile), error) {
		if code != s.referralCode {
			return nil, dErrors.New(dErrors.CodePolicyBlocked, "referral code is not valid")
		}
		return func(p *models.Profile) {
			p.ReferralCode = code
			p.ReferralAccepted = true
		}, nil
	})
	if dErrors.HasCode(err, dErrors.CodePolicyBlocked) {
		s.emit(ctx, sessionID, audit.EventReferralRejected, models.StepReferralCode, "blocked", "referral code mismatch")
		s.logger.WarnContext(ctx, "referral code rejected",
			"type", "audit",
			"session_id", sessionID.String(),
			"client_ip", requestcontext.ClientIP(ctx),
		)
	}
	return view, err
}

// viewWithError pairs a pre-gate validation error with the unchanged view.
func (s *Service) viewWithError(ctx context.Context, sessionID id.SessionID, cause error) (*View, error) {
	view, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return view, cause
}

func validatePassword(password, confirmPassword string) error {
	if len(password) < minPasswordLength {
		return dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}
	if len(password) > maxPasswordLength {
		return dErrors.New(dErrors.CodeInvalidInput, "password must be at most 72 bytes")
	}
	if password != confirmPassword {
		return dErrors.New(dErrors.CodeInvalidInput, "passwords do not match")
	}
	return nil
}

func displayName(m *models.Machine, address string) string {
	if name := m.Profile.DisplayName(); name != "" {
		return name
	}
	first, last := email.DeriveNameFromEmail(address)
	return first + " " + last
}
