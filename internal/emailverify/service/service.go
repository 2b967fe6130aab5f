// Package service implements the institutional email gate: domain check,
// resend cooldown, code dispatch and one-time confirmation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"medbridge/internal/cooldown"
	cstore "medbridge/internal/cooldown/store"
	"medbridge/internal/emailverify/metrics"
	"medbridge/internal/emailverify/models"
	id "medbridge/pkg/domain"
	dErrors "medbridge/pkg/domain-errors"
	"medbridge/pkg/email"
	"medbridge/pkg/platform/sentinel"
	"medbridge/pkg/requestcontext"
)

const (
	defaultSuffix   = "nhs.net"
	defaultCodeTTL  = 10 * time.Minute
	defaultCooldown = 60 * time.Second
	defaultAttempts = 5
)

// CodeStore holds at most one pending code per address.
type CodeStore interface {
	Put(ctx context.Context, code models.PendingCode) error
	Consume(ctx context.Context, email, code string, now time.Time) error
	Delete(ctx context.Context, email string) error
}

// Dispatcher hands a code to the out-of-band delivery collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg models.Message) error
}

// Service issues and confirms verification codes.
type Service struct {
	store      CodeStore
	dispatcher Dispatcher
	cooldown   *cooldown.Limiter
	attempts   *cooldown.Limiter
	generate   Generator
	suffix     string
	codeTTL    time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

type Option func(*Service)

func WithInstitutionalSuffix(suffix string) Option {
	return func(s *Service) {
		s.suffix = suffix
	}
}

func WithCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.codeTTL = ttl
		}
	}
}

// WithCooldown replaces the default in-memory 60 second resend limiter.
func WithCooldown(l *cooldown.Limiter) Option {
	return func(s *Service) {
		s.cooldown = l
	}
}

// WithAttemptLimit replaces the default limiter on confirmations per code.
// Its window should cover the code TTL.
func WithAttemptLimit(l *cooldown.Limiter) Option {
	return func(s *Service) {
		s.attempts = l
	}
}

func WithGenerator(g Generator) Option {
	return func(s *Service) {
		s.generate = g
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

func New(store CodeStore, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		cooldown:   cooldown.New(cstore.NewInMemoryStore(), 1, defaultCooldown),
		attempts:   cooldown.New(cstore.NewInMemoryStore(), defaultAttempts, defaultCodeTTL),
		generate:   GenerateCode,
		suffix:     defaultSuffix,
		codeTTL:    defaultCodeTTL,
		logger:     slog.Default(),
		tracer:     otel.Tracer("medbridge/emailverify"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendCode issues a fresh code for address, superseding any pending one, and
// dispatches it. RequireInstitutional enforces the configured domain suffix.
func (s *Service) SendCode(ctx context.Context, address, displayName string, policy models.DomainPolicy) (*models.CodeSent, error) {
	address = email.Normalize(address)
	if !email.IsValid(address) {
		s.metrics.IncrementSent("invalid_input")
		return nil, dErrors.New(dErrors.CodeInvalidInput, "enter a valid email address")
	}
	if policy == models.RequireInstitutional && !email.HasDomainSuffix(address, s.suffix) {
		s.metrics.IncrementSent("domain_rejected")
		return nil, dErrors.Wrap(models.ErrDomainRejected, dErrors.CodeInvalidInput, "use your institutional email address ending in "+s.suffix)
	}

	ctx, span := s.tracer.Start(ctx, "emailverify.SendCode")
	defer span.End()

	if _, err := s.cooldown.Acquire(ctx, address); err != nil {
		if dErrors.HasCode(err, dErrors.CodeRateLimited) {
			s.metrics.IncrementSent("rate_limited")
		}
		return nil, err
	}

	code, err := s.generate()
	if err != nil {
		s.releaseCooldown(ctx, address)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
	}

	now := requestcontext.Now(ctx)
	pending := models.PendingCode{
		Code:      code,
		Email:     address,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.codeTTL),
	}
	if err := s.store.Put(ctx, pending); err != nil {
		s.releaseCooldown(ctx, address)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store verification code")
	}

	msg := models.Message{To: address, Code: code, DisplayName: displayName, ExpiresAt: pending.ExpiresAt}
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		if delErr := s.store.Delete(ctx, address); delErr != nil {
			s.logger.WarnContext(ctx, "failed to drop undelivered code", "error", delErr)
		}
		s.releaseCooldown(ctx, address)
		s.metrics.IncrementSent("dispatch_failed")
		s.logger.ErrorContext(ctx, "verification code dispatch failed", "error", err)
		return nil, dErrors.Wrap(errors.Join(models.ErrDispatchFailed, err), dErrors.CodeUnavailable, "could not send the verification code, please retry")
	}

	if err := s.attempts.Release(ctx, attemptKey(address)); err != nil {
		s.logger.WarnContext(ctx, "failed to reset confirmation attempts", "error", err)
	}

	span.SetAttributes(attribute.String("emailverify.policy", policyName(policy)))
	s.metrics.IncrementSent("sent")
	return &models.CodeSent{
		Email:           address,
		IssuedAt:        pending.IssuedAt,
		ExpiresAt:       pending.ExpiresAt,
		ResendAllowedAt: now.Add(s.cooldown.Window()),
	}, nil
}

// ConfirmCode accepts submitted iff it equals the pending code bound to
// address and has not expired. The code is consumed on success. Once the
// attempt limit is reached the pending code is dropped and a new one must be
// requested.
func (s *Service) ConfirmCode(ctx context.Context, submitted, address string) error {
	code, err := id.ParseOneTimeCode(submitted)
	if err != nil {
		s.metrics.IncrementConfirmation("invalid_input")
		return err
	}
	address = email.Normalize(address)

	if _, err := s.attempts.Acquire(ctx, attemptKey(address)); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeRateLimited) {
			return err
		}
		if delErr := s.store.Delete(ctx, address); delErr != nil {
			s.logger.WarnContext(ctx, "failed to drop locked code", "error", delErr)
		}
		s.metrics.IncrementConfirmation("locked")
		s.logger.WarnContext(ctx, "verification code locked after repeated attempts", "type", "audit")
		return dErrors.New(dErrors.CodeRateLimited, "too many incorrect codes, request a new one")
	}

	err = s.store.Consume(ctx, address, code.String(), requestcontext.Now(ctx))
	switch {
	case err == nil:
		if err := s.attempts.Release(ctx, attemptKey(address)); err != nil {
			s.logger.WarnContext(ctx, "failed to reset confirmation attempts", "error", err)
		}
		s.metrics.IncrementConfirmation("verified")
		return nil
	case errors.Is(err, sentinel.ErrExpired):
		s.metrics.IncrementConfirmation("expired")
		return dErrors.Wrap(models.ErrCodeMismatch, dErrors.CodeMismatch, "verification code has expired, request a new one")
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, models.ErrCodeMismatch):
		s.metrics.IncrementConfirmation("mismatch")
		return dErrors.Wrap(models.ErrCodeMismatch, dErrors.CodeMismatch, "verification code does not match")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check verification code")
	}
}

func (s *Service) releaseCooldown(ctx context.Context, address string) {
	if err := s.cooldown.Release(ctx, address); err != nil {
		s.logger.WarnContext(ctx, "failed to release resend cooldown", "error", err)
	}
}

// attemptKey keeps confirmation counts apart from the resend cooldown when
// both share one store.
func attemptKey(address string) string {
	return "confirm:" + address
}

func policyName(p models.DomainPolicy) string {
	if p == models.AnyDomain {
		return "any_domain"
	}
	return "institutional"
}
