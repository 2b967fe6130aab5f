package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Generator produces six-digit verification codes.
type Generator func() (string, error)

var codeSpace = big.NewInt(1_000_000)

// GenerateCode draws a uniformly distributed six-digit code from crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
