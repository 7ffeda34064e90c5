package idgen

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates lexicographically sortable ids. Ids generated
// within the same millisecond are strictly increasing.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *ULIDGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

func (g *ULIDGenerator) Validate(id string) error {
	if len(id) != ulid.EncodedSize {
		return fmt.Errorf("expected length %d, got %d", ulid.EncodedSize, len(id))
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("invalid ULID format: %w", err)
	}
	return nil
}
