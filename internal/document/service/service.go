// Package service runs OCR over an uploaded identity document and matches the
// extracted text against the registry name.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"medbridge/internal/document/matcher"
	"medbridge/internal/document/metrics"
	"medbridge/internal/document/models"
	dErrors "medbridge/pkg/domain-errors"
)

// DefaultMaxImageBytes bounds uploads.
const DefaultMaxImageBytes = 8 << 20

var acceptedTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/gif":       {},
	"application/pdf": {},
}

// Engine extracts free text from an image.
type Engine interface {
	ExtractText(ctx context.Context, image []byte, contentType string) (string, error)
}

// Service is the document identity matcher.
type Service struct {
	engine   Engine
	maxBytes int
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithMaxImageBytes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
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

func New(engine Engine, opts ...Option) *Service {
	s := &Service{
		engine:   engine,
		maxBytes: DefaultMaxImageBytes,
		logger:   slog.Default(),
		tracer:   otel.Tracer("medbridge/document"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DetectContentType sniffs the image and rejects unsupported formats.
func (s *Service) DetectContentType(image []byte) (string, error) {
	if len(image) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document image is required")
	}
	if len(image) > s.maxBytes {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("document image exceeds %d bytes", s.maxBytes))
	}
	contentType, _, _ := strings.Cut(http.DetectContentType(image), ";")
	if _, ok := acceptedTypes[contentType]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document must be a JPEG, PNG, WebP, GIF or PDF file")
	}
	return contentType, nil
}

// MatchDocument returns nil when a name token from expected appears in the OCR
// text. Failures carry CodeInvalidInput, CodeMismatch (models.ErrNoNameMatch)
// or CodeUnavailable (models.ErrOcrUnavailable).
func (s *Service) MatchDocument(ctx context.Context, image []byte, expected []string) error {
	contentType, err := s.DetectContentType(image)
	if err != nil {
		s.metrics.IncrementOutcome("invalid_input")
		return err
	}
	s.metrics.ObserveUpload(len(image))

	ctx, span := s.tracer.Start(ctx, "document.MatchDocument",
		trace.WithAttributes(attribute.String("document.content_type", contentType)))
	defer span.End()

	start := time.Now()
	text, err := s.engine.ExtractText(ctx, image, contentType)
	s.metrics.ObserveOCRLatency(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ocr failed")
		s.metrics.IncrementOutcome("ocr_unavailable")
		s.logger.WarnContext(ctx, "ocr engine failed", "error", err)
		return dErrors.Wrap(models.ErrOcrUnavailable, dErrors.CodeUnavailable, "could not read the document, please retry")
	}

	extracted := matcher.Tokenize(text)
	wanted := matcher.ExpectedTokens(expected...)
	span.SetAttributes(
		attribute.Int("document.extracted_tokens", len(extracted)),
		attribute.Int("document.expected_tokens", len(wanted)),
	)
	if !matcher.Match(extracted, wanted) {
		s.metrics.IncrementOutcome("no_match")
		return dErrors.Wrap(models.ErrNoNameMatch, dErrors.CodeMismatch, "the name on the document does not match the registry record")
	}
	s.metrics.IncrementOutcome("verified")
	return nil
}
