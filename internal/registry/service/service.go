// Package service implements the registry lookup gate: shape check, cache,
// circuit breaker, remote fetch and document parsing.
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

	"medbridge/internal/registry/client"
	"medbridge/internal/registry/metrics"
	"medbridge/internal/registry/models"
	"medbridge/internal/registry/parser"
	id "medbridge/pkg/domain"
	dErrors "medbridge/pkg/domain-errors"
	"medbridge/pkg/platform/circuit"
	"medbridge/pkg/platform/sentinel"
	"medbridge/pkg/requestcontext"
)

// Fetcher retrieves the raw registry document for a licence number.
type Fetcher interface {
	Fetch(ctx context.Context, license string) (string, error)
}

// Cache stores parsed records by licence number.
type Cache interface {
	Find(ctx context.Context, license string) (*models.Record, error)
	Save(ctx context.Context, record *models.Record) error
}

// Service coordinates registry lookups with caching and a circuit breaker.
type Service struct {
	fetcher Fetcher
	cache   Cache
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Service)

func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
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

func New(fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		breaker: circuit.New("registry", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(1)),
		logger:  slog.Default(),
		tracer:  otel.Tracer("medbridge/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup validates the licence shape before any I/O, then returns the parsed
// record. Failures carry CodeInvalidInput, CodeMismatch (models.ErrInvalidLicense)
// or CodeUnavailable (models.ErrLookupUnavailable).
func (s *Service) Lookup(ctx context.Context, rawLicense string) (*models.Record, error) {
	license, err := id.ParseLicenseNumber(rawLicense)
	if err != nil {
		s.metrics.IncrementOutcome("invalid_input")
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "registry.Lookup")
	defer span.End()

	if rec, ok := s.fromCache(ctx, license.String()); ok {
		span.SetAttributes(attribute.Bool("registry.cache_hit", true))
		s.metrics.IncrementOutcome("verified")
		return rec, nil
	}

	if !s.breaker.Allow() {
		span.SetStatus(codes.Error, "circuit open")
		s.metrics.IncrementOutcome("unavailable")
		return nil, dErrors.Wrap(models.ErrLookupUnavailable, dErrors.CodeUnavailable, "registry is temporarily unavailable, try again shortly")
	}

	start := time.Now()
	doc, err := s.fetcher.Fetch(ctx, license.String())
	s.metrics.ObserveLookupLatency(time.Since(start))
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			s.recordSuccess()
			s.metrics.IncrementOutcome("invalid_license")
			return nil, dErrors.Wrap(models.ErrInvalidLicense, dErrors.CodeMismatch, "licence number is not registered with an active licence")
		}
		s.recordFailure(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		s.metrics.IncrementOutcome("unavailable")
		return nil, dErrors.Wrap(errors.Join(models.ErrLookupUnavailable, err), dErrors.CodeUnavailable, "registry lookup failed, please retry")
	}
	s.recordSuccess()

	rec, err := parser.Parse(license.String(), doc, requestcontext.Now(ctx))
	if err != nil {
		s.metrics.IncrementOutcome("invalid_license")
		s.logger.InfoContext(ctx, "registry does not assert an active licence", "step", "registry_lookup")
		return nil, dErrors.Wrap(models.ErrInvalidLicense, dErrors.CodeMismatch, "licence number is not registered with an active licence")
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "failed to cache registry record", "error", err)
		}
	}
	s.metrics.IncrementOutcome("verified")
	return rec, nil
}

func (s *Service) fromCache(ctx context.Context, license string) (*models.Record, bool) {
	if s.cache == nil {
		return nil, false
	}
	rec, err := s.cache.Find(ctx, license)
	if err == nil {
		s.metrics.IncrementCacheHit()
		return rec, true
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "registry cache read failed", "error", err)
	}
	s.metrics.IncrementCacheMiss()
	return nil, false
}

func (s *Service) recordSuccess() {
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.metrics.SetCircuitOpen(false)
		s.logger.Info("registry circuit closed")
	}
}

func (s *Service) recordFailure(ctx context.Context, err error) {
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.metrics.SetCircuitOpen(true)
		s.logger.WarnContext(ctx, "registry circuit opened", "error", err)
	}
}
