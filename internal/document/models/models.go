package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Failure kinds carried under the domain error codes.
var (
	// ErrNoNameMatch means OCR ran and no expected name token was found.
	ErrNoNameMatch = errors.New("no name match")
	// ErrOcrUnavailable covers OCR transport and response failures.
	ErrOcrUnavailable = errors.New("ocr unavailable")
)

// Image is an uploaded identity document kept on the session for display.
type Image struct {
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	Digest      string    `json:"digest"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Data        []byte    `json:"-"`
}

// NewImage records bytes with their SHA-256 digest.
func NewImage(data []byte, contentType string, at time.Time) *Image {
	sum := sha256.Sum256(data)
	return &Image{
		ContentType: contentType,
		Size:        len(data),
		Digest:      hex.EncodeToString(sum[:]),
		UploadedAt:  at,
		Data:        data,
	}
}
