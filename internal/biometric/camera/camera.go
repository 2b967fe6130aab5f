// Package camera models the acquire, capture and stop lifecycle of a live
// camera stream.
package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medbridge/internal/biometric/models"
)

// Camera acquires a live stream.
type Camera interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream yields frames until stopped.
type Stream interface {
	Capture(ctx context.Context) (models.Frame, error)
	Stop() error
}

// UploadedFrameCamera presents a client-captured still as a single-frame
// stream so server-side capture follows the same lifecycle as a device.
type UploadedFrameCamera struct {
	data        []byte
	contentType string
	now         func() time.Time
}

func NewUploadedFrameCamera(data []byte, contentType string) *UploadedFrameCamera {
	return &UploadedFrameCamera{data: data, contentType: contentType, now: time.Now}
}

// Acquire fails with models.ErrCameraUnavailable when no frame was uploaded.
func (c *UploadedFrameCamera) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.data) == 0 {
		return nil, fmt.Errorf("%w: no frame supplied", models.ErrCameraUnavailable)
	}
	return &uploadedStream{camera: c}, nil
}

type uploadedStream struct {
	camera   *UploadedFrameCamera
	mu       sync.Mutex
	stopped  bool
	captured bool
}

func (s *uploadedStream) Capture(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return models.Frame{}, fmt.Errorf("%w: stream stopped", models.ErrCameraUnavailable)
	}
	if s.captured {
		return models.Frame{}, fmt.Errorf("%w: frame already consumed", models.ErrCameraUnavailable)
	}
	s.captured = true
	return models.Frame{
		Data:        s.camera.data,
		ContentType: s.camera.contentType,
		CapturedAt:  s.camera.now(),
	}, nil
}

func (s *uploadedStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}
