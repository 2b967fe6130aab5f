// Package verifier holds the pluggable face verification policies.
package verifier

import (
	"context"
	"math/rand/v2"
	"sync"

	"medbridge/internal/biometric/models"
)

// Verifier decides whether a live frame belongs to the registered person.
// Returning models.ErrFaceMismatch (wrapped or not) means the check ran and failed.
type Verifier interface {
	Verify(ctx context.Context, frame models.Frame, reference *models.Reference) error
}

// AlwaysPass accepts every captured frame.
type AlwaysPass struct{}

func (AlwaysPass) Verify(ctx context.Context, _ models.Frame, _ *models.Reference) error {
	return ctx.Err()
}

// Randomized passes with probability passRatio. Demo builds only: it exists to
// exercise retry and skip handling.
type Randomized struct {
	mu        sync.Mutex
	rng       *rand.Rand
	passRatio float64
}

// NewRandomized builds a randomized policy. A nil source seeds from runtime
// randomness.
func NewRandomized(passRatio float64, src rand.Source) *Randomized {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Randomized{rng: rand.New(src), passRatio: passRatio}
}

func (r *Randomized) Verify(ctx context.Context, _ models.Frame, _ *models.Reference) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	roll := r.rng.Float64()
	r.mu.Unlock()
	if roll < r.passRatio {
		return nil
	}
	return models.ErrFaceMismatch
}
