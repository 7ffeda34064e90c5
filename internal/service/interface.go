package service

import (
	"context"
	"io"

	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/presence"
)

// MessageService is the delivery coordinator and conversation reader.
//
//go:generate go run go.uber.org/mock/mockgen -destination=../mocks/mock_message_service.go -package=mocks github.com/weiawesome/wes-io-dm/internal/service MessageService
type MessageService interface {
	SendMessage(ctx context.Context, senderID, receiverID string, content domain.MessageContent) (*domain.Message, error)
	DeleteMessage(ctx context.Context, requesterID, messageID string) (*domain.Message, error)
	GetConversation(ctx context.Context, userID, otherID string, limit int, before string) (*domain.Page, error)
}

// PartnerService lists the counterparts a user has exchanged messages with.
//
//go:generate go run go.uber.org/mock/mockgen -destination=../mocks/mock_partner_service.go -package=mocks github.com/weiawesome/wes-io-dm/internal/service PartnerService
type PartnerService interface {
	GetChatPartners(ctx context.Context, userID string) ([]*domain.ChatPartnerSummary, error)
}

// UserService manages identities known to the service.
//
//go:generate go run go.uber.org/mock/mockgen -destination=../mocks/mock_user_service.go -package=mocks github.com/weiawesome/wes-io-dm/internal/service UserService
type UserService interface {
	// EnsureUser records an authenticated identity the first time it is seen.
	EnsureUser(ctx context.Context, userID, username string) error
	UpsertProfile(ctx context.Context, userID, username string, req *domain.UpdateProfileRequest) (*domain.User, error)
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	ListUsers(ctx context.Context, callerID string) ([]domain.Profile, error)
	// ResolveProfiles returns the profiles found among ids.
	ResolveProfiles(ctx context.Context, ids []string) (map[string]domain.Profile, error)
}

// AttachmentService stores uploaded files and checks references to them.
//
//go:generate go run go.uber.org/mock/mockgen -destination=../mocks/mock_attachment_service.go -package=mocks github.com/weiawesome/wes-io-dm/internal/service AttachmentService
type AttachmentService interface {
	Upload(ctx context.Context, userID, filename string, r io.Reader) (*domain.Attachment, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, string, error)
	// Verify fails with a ValidationError unless ownerID may attach ref.
	Verify(ctx context.Context, ownerID, ref string) error
}

// PresenceLookup finds the live connection of a user.
type PresenceLookup interface {
	Lookup(userID string) (presence.Handle, bool)
}
