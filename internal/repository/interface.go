package repository

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-dm/internal/domain"
)

// MessageVisitor receives messages during a scan. Returning false stops the scan.
type MessageVisitor func(msg *domain.Message) (bool, error)

// MessageRepository defines the interface for message persistence.
//
//go:generate go run go.uber.org/mock/mockgen -destination=../mocks/mock_message_repository.go -package=mocks github.com/weiawesome/wes-io-dm/internal/repository MessageRepository
type MessageRepository interface {
	// Append assigns id and creation time to msg and writes it durably.
	Append(ctx context.Context, msg *domain.Message) error
	// ListBetween returns up to n messages of the pair {a, b}, newest first,
	// strictly older than before when before is non-nil.
	ListBetween(ctx context.Context, a, b string, before *time.Time, n int) ([]*domain.Message, error)
	// ScanForUser visits every message sent or received by userID, newest first.
	ScanForUser(ctx context.Context, userID string, visit MessageVisitor) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// SoftDelete blanks the content of a message and flags it deleted.
	SoftDelete(ctx context.Context, id string) (*domain.Message, error)
}

// UserRepository defines the interface for identity persistence.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByIDs returns the users found, keyed by id. Unknown ids are absent.
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, user *domain.User) error
	// List returns users ordered by username, excluding excludeID.
	List(ctx context.Context, excludeID string, limit int) ([]*domain.User, error)
}
