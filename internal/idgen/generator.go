package idgen

import "fmt"

const (
	KindULID = "ulid"
	KindUUID = "uuid"
)

// Generator produces identifiers for new messages and attachments.
type Generator interface {
	Generate() (string, error)
	Validate(id string) error
}

// New returns the generator for kind. An empty kind selects ULID.
func New(kind string) (Generator, error) {
	switch kind {
	case KindULID, "":
		return NewULIDGenerator(), nil
	case KindUUID:
		return NewUUIDGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported id generator: %q", kind)
	}
}
