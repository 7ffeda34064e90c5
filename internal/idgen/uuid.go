package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// UUIDGenerator generates UUID v4 ids.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}
	return id.String(), nil
}

func (g *UUIDGenerator) Validate(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid UUID format: %w", err)
	}
	if parsed.Version() != 4 {
		return fmt.Errorf("expected UUID v4, got v%d", parsed.Version())
	}
	return nil
}
