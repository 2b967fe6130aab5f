// Package service is the biometric capture gate: acquire a stream, take one
// frame, always release the stream, then apply the configured policy.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"medbridge/internal/biometric/camera"
	"medbridge/internal/biometric/models"
	"medbridge/internal/biometric/verifier"
	dErrors "medbridge/pkg/domain-errors"
)

// Service runs captures against a Verifier policy.
type Service struct {
	verifier verifier.Verifier
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(v verifier.Verifier, opts ...Option) *Service {
	s := &Service{
		verifier: v,
		logger:   slog.Default(),
		tracer:   otel.Tracer("medbridge/biometric"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture acquires a stream and takes one frame. The stream is stopped on every
// path once acquired. Acquisition failures carry CodeResourceUnavailable.
func (s *Service) Capture(ctx context.Context, cam camera.Camera) (frame models.Frame, err error) {
	stream, err := cam.Acquire(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Frame{}, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "capture cancelled")
		}
		return models.Frame{}, dErrors.Wrap(errors.Join(models.ErrCameraUnavailable, err),
			dErrors.CodeResourceUnavailable, "camera access is unavailable, grant permission and retry")
	}
	defer func() {
		if stopErr := stream.Stop(); stopErr != nil {
			s.logger.WarnContext(ctx, "failed to stop camera stream", "error", stopErr)
		}
	}()

	frame, err = stream.Capture(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Frame{}, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "capture cancelled")
		}
		return models.Frame{}, dErrors.Wrap(errors.Join(models.ErrCameraUnavailable, err),
			dErrors.CodeResourceUnavailable, "could not capture a frame, retry")
	}
	return frame, nil
}

// CaptureAndVerify captures one frame and applies the verifier policy against
// the optional identity document reference.
func (s *Service) CaptureAndVerify(ctx context.Context, cam camera.Camera, reference *models.Reference) error {
	ctx, span := s.tracer.Start(ctx, "biometric.CaptureAndVerify")
	defer span.End()

	frame, err := s.Capture(ctx, cam)
	if err != nil {
		span.SetStatus(codes.Error, "capture failed")
		return err
	}

	if err := s.verifier.Verify(ctx, frame, reference); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		switch {
		case errors.Is(err, models.ErrFaceMismatch):
			return dErrors.Wrap(err, dErrors.CodeMismatch, "face did not match the identity document")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return dErrors.Wrap(err, dErrors.CodeTimeout, "verification cancelled")
		default:
			return dErrors.Wrap(errors.Join(models.ErrMatcherUnavailable, err), dErrors.CodeUnavailable, "face verification is unavailable, please retry")
		}
	}
	return nil
}
