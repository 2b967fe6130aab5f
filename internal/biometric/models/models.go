package models

import (
	"errors"
	"time"
)

// Failure kinds carried under the domain error codes.
var (
	// ErrCameraUnavailable means no stream could be acquired (permission
	// denied, no device, empty upload).
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrFaceMismatch means the verifier rejected the live frame.
	ErrFaceMismatch = errors.New("face mismatch")
	// ErrMatcherUnavailable means the remote matcher could not be reached.
	ErrMatcherUnavailable = errors.New("face matcher unavailable")
)

// Frame is one captured still.
type Frame struct {
	Data        []byte
	ContentType string
	CapturedAt  time.Time
}

// Reference is the identity document image a live frame is compared against.
type Reference struct {
	Data        []byte
	ContentType string
}
