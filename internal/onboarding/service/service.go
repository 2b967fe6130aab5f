// Package service drives onboarding sessions: it owns the session lock, runs
// gate I/O outside it, and materializes the account at completion.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	accountmodels "medbridge/internal/accounts/models"
	"medbridge/internal/biometric/camera"
	biomodels "medbridge/internal/biometric/models"
	emailmodels "medbridge/internal/emailverify/models"
	"medbridge/internal/onboarding/events"
	"medbridge/internal/onboarding/metrics"
	"medbridge/internal/onboarding/models"
	"medbridge/internal/platform/device"
	regmodels "medbridge/internal/registry/models"
	id "medbridge/pkg/domain"
	dErrors "medbridge/pkg/domain-errors"
	audit "medbridge/pkg/platform/audit"
	"medbridge/pkg/platform/sentinel"
	"medbridge/pkg/requestcontext"
)

// DefaultReferralCode is the shared secret Gaza clinicians present unless
// configured otherwise.
const DefaultReferralCode = "DeenDevelopers"

// RegistryLookup resolves a licence number to a registry record.
type RegistryLookup interface {
	Lookup(ctx context.Context, license string) (*regmodels.Record, error)
}

// DocumentMatcher checks an identity document against expected names.
type DocumentMatcher interface {
	DetectContentType(image []byte) (string, error)
	MatchDocument(ctx context.Context, image []byte, expected []string) error
}

// BiometricGate captures one live frame and verifies it.
type BiometricGate interface {
	CaptureAndVerify(ctx context.Context, cam camera.Camera, reference *biomodels.Reference) error
}

// EmailVerifier issues and confirms one-time codes.
type EmailVerifier interface {
	SendCode(ctx context.Context, address, displayName string, policy emailmodels.DomainPolicy) (*emailmodels.CodeSent, error)
	ConfirmCode(ctx context.Context, submitted, address string) error
}

// AccountStore appends completed registrations.
type AccountStore interface {
	Create(ctx context.Context, account *accountmodels.Account) (*accountmodels.Account, error)
	FindBySession(ctx context.Context, sessionID id.SessionID) (*accountmodels.Account, error)
}

// SessionStore holds live sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Count() int
	TTL() time.Duration
}

// TokenIssuer signs session handles.
type TokenIssuer interface {
	Issue(sessionID id.SessionID, expiresIn time.Duration) (string, error)
}

// Auditor records security-relevant workflow events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// CameraFactory presents an uploaded frame as a camera.
type CameraFactory func(data []byte, contentType string) camera.Camera

// Gates bundles the verification collaborators.
type Gates struct {
	Registry  RegistryLookup
	Documents DocumentMatcher
	Biometric BiometricGate
	Email     EmailVerifier
}

// Service is the onboarding workflow entry point.
type Service struct {
	sessions     SessionStore
	accounts     AccountStore
	tokens       TokenIssuer
	gates        Gates
	auditor      Auditor
	bus          *events.Bus
	cameraFor    CameraFactory
	referralCode string
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

type Option func(*Service)

func WithReferralCode(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.referralCode = code
		}
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithEvents publishes StepChanged events on bus.
func WithEvents(bus *events.Bus) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

func WithCameraFactory(f CameraFactory) Option {
	return func(s *Service) {
		s.cameraFor = f
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(sessions SessionStore, accounts AccountStore, tokens TokenIssuer, gates Gates, opts ...Option) (*Service, error) {
	switch {
	case sessions == nil:
		return nil, errors.New("sessions store is required")
	case accounts == nil:
		return nil, errors.New("accounts store is required")
	case tokens == nil:
		return nil, errors.New("token issuer is required")
	case gates.Registry == nil, gates.Documents == nil, gates.Biometric == nil, gates.Email == nil:
		return nil, errors.New("all verification gates are required")
	}
	s := &Service{
		sessions:     sessions,
		accounts:     accounts,
		tokens:       tokens,
		gates:        gates,
		referralCode: DefaultReferralCode,
		cameraFor: func(data []byte, contentType string) camera.Camera {
			return camera.NewUploadedFrameCamera(data, contentType)
		},
		logger: slog.Default(),
		tracer: otel.Tracer("medbridge/onboarding"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start opens a new onboarding session and signs its handle.
func (s *Service) Start(ctx context.Context) (*View, string, error) {
	session := models.NewSession(id.NewSessionID())
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	token, err := s.tokens.Issue(session.ID, s.sessions.TTL())
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}
	s.metrics.SetActiveSessions(s.sessions.Count())

	snapshot := session.Snapshot()
	s.publish(ctx, session, snapshot, "", models.StepRoleSelect, events.ReasonStarted)
	s.emit(ctx, session.ID, audit.EventOnboardingStarted, "", "", "")
	s.logger.InfoContext(ctx, "onboarding session started", "session_id", session.ID.String())
	return newView(session, snapshot), token, nil
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, sessionID id.SessionID) (*View, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return newView(session, session.Snapshot()), nil
}

// SelectRole chooses the onboarding path.
func (s *Service) SelectRole(ctx context.Context, sessionID id.SessionID, role accountmodels.Role) (*View, error) {
	return s.transition(ctx, sessionID, events.ReasonRole, func(m *models.Machine) error {
		return m.SelectRole(role)
	})
}

// Back moves to the previous step without clearing verified gates.
func (s *Service) Back(ctx context.Context, sessionID id.SessionID) (*View, error) {
	return s.transition(ctx, sessionID, events.ReasonBack, func(m *models.Machine) error {
		return m.Back()
	})
}

// Continue advances past an already verified step.
func (s *Service) Continue(ctx context.Context, sessionID id.SessionID) (*View, error) {
	return s.transition(ctx, sessionID, events.ReasonContinue, func(m *models.Machine) error {
		return m.Continue()
	})
}

// Skip forces the active gate to verified where policy allows.
func (s *Service) Skip(ctx context.Context, sessionID id.SessionID) (*View, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var (
		from     models.Step
		skipped  bool
		snapshot *models.Machine
	)
	err = session.Do(func(m *models.Machine) error {
		from = m.Step
		var err error
		skipped, err = m.Skip()
		snapshot = m.Clone()
		return err
	})
	view := newView(session, snapshot)
	if err != nil {
		return view, err
	}
	if skipped {
		s.publishGate(ctx, session, snapshot, from, models.StatusVerified, events.ReasonSkipped)
		s.emit(ctx, session.ID, audit.EventGateSkipped, from, "skipped", "")
		s.logger.InfoContext(ctx, "gate skipped",
			"type", "audit",
			"session_id", session.ID.String(),
			"step", string(from),
		)
	}
	return view, nil
}

// Reset discards all progress of the session.
func (s *Service) Reset(ctx context.Context, sessionID id.SessionID) (*View, error) {
	view, err := s.transition(ctx, sessionID, events.ReasonReset, func(m *models.Machine) error {
		return m.Reset()
	})
	if err == nil {
		s.emit(ctx, sessionID, audit.EventOnboardingReset, "", "", "")
	}
	return view, err
}

// transition applies a navigation change under the session lock.
func (s *Service) transition(ctx context.Context, sessionID id.SessionID, reason events.Reason, fn func(m *models.Machine) error) (*View, error) {
	session, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var (
		from     models.Step
		snapshot *models.Machine
	)
	err = session.Do(func(m *models.Machine) error {
		from = m.Step
		err := fn(m)
		snapshot = m.Clone()
		return err
	})
	view := newView(session, snapshot)
	if err != nil {
		return view, err
	}
	s.publish(ctx, session, snapshot, from, snapshot.Step, reason)
	return view, nil
}

func (s *Service) session(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "onboarding session not found or expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return session, nil
}

func (s *Service) publish(ctx context.Context, session *models.Session, snapshot *models.Machine, from, to models.Step, reason events.Reason) {
	ev := events.StepChanged{
		SessionID: session.ID.String(),
		Role:      snapshot.Profile.Role,
		From:      from,
		To:        to,
		Reason:    reason,
		Epoch:     snapshot.Epoch,
		At:        requestcontext.Now(ctx),
	}
	s.dispatch(ev)
}

func (s *Service) publishGate(ctx context.Context, session *models.Session, snapshot *models.Machine, gate models.Step, status models.Status, reason events.Reason) {
	s.dispatch(events.StepChanged{
		SessionID: session.ID.String(),
		Role:      snapshot.Profile.Role,
		From:      gate,
		To:        snapshot.Step,
		Gate:      gate,
		Status:    status,
		Reason:    reason,
		Epoch:     snapshot.Epoch,
		At:        requestcontext.Now(ctx),
	})
}

func (s *Service) dispatch(ev events.StepChanged) {
	if s.bus == nil {
		return
	}
	if missed := s.bus.Publish(ev); missed > 0 {
		s.logger.Warn("step change dropped by slow subscribers", "missed", missed, "session_id", ev.SessionID)
	}
}

func (s *Service) emit(ctx context.Context, sessionID id.SessionID, action audit.AuditEvent, step models.Step, decision, reason string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		SessionID: sessionID.String(),
		Subject:   sessionID.String(),
		Action:    string(action),
		Step:      string(step),
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		Device:    device.ParseUserAgent(requestcontext.UserAgent(ctx)),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(action), "error", err)
	}
}
