package models

import (
	"errors"
	"time"
)

var (
	// ErrDomainRejected marks an address outside the institutional domain.
	ErrDomainRejected = errors.New("email domain rejected")
	// ErrDispatchFailed marks a message dispatch collaborator failure.
	ErrDispatchFailed = errors.New("verification code dispatch failed")
	// ErrCodeMismatch marks a submitted code that differs from the stored one.
	ErrCodeMismatch = errors.New("verification code mismatch")
)

// PendingCode is the one pending code bound to an address.
type PendingCode struct {
	Code      string    `json:"code"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the code is no longer accepted at now.
func (c *PendingCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Message is what the dispatch collaborator delivers out of band.
type Message struct {
	To          string    `json:"to"`
	Code        string    `json:"code"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CodeSent is returned to the caller after a successful dispatch. The code
// itself is never part of it.
type CodeSent struct {
	Email           string    `json:"email"`
	IssuedAt        time.Time `json:"issued_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	ResendAllowedAt time.Time `json:"resend_allowed_at"`
}

// DomainPolicy selects whether the institutional suffix applies.
type DomainPolicy int

const (
	RequireInstitutional DomainPolicy = iota
	AnyDomain
)
