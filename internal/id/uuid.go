// Package id generates job identifiers.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// UUIDGenerator produces time-ordered UUIDv7 identifiers.
type UUIDGenerator struct{}

// NewUUIDGenerator returns a UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns a new UUIDv7 string.
func (g *UUIDGenerator) NewID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return u.String(), nil
}
