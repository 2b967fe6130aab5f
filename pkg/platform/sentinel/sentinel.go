// Package sentinel holds the storage facts services translate into domain errors.
package sentinel

import "errors"

var (
	// ErrNotFound covers sessions, pending codes, cache misses and accounts.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the stored version moved on since it was read.
	ErrConflict = errors.New("conflict")
	// ErrExpired means a one-time code outlived its TTL.
	ErrExpired = errors.New("expired")
)
