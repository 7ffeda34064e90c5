package archive

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/weiawesome/wes-io-dm/pkg/pubsub"
)

// Store is the long-term copy of direct messages.
type Store interface {
	SaveMessage(ctx context.Context, msg *pubsub.MessagePayload) error
	MarkDeleted(ctx context.Context, msg *pubsub.MessagePayload) error
}

// CassandraStore keeps messages partitioned by conversation, newest first.
type CassandraStore struct {
	session *gocql.Session
}

func NewCassandraStore(client *Client) *CassandraStore {
	return &CassandraStore{session: client.Session()}
}

// EnsureSchema creates messages_by_conversation if it does not exist.
func (s *CassandraStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS messages_by_conversation (
			conversation_key text,
			created_at timestamp,
			message_id text,
			sender_id text,
			receiver_id text,
			text text,
			attachment_ref text,
			deleted boolean,
			PRIMARY KEY ((conversation_key), created_at, message_id)
		) WITH CLUSTERING ORDER BY (created_at DESC, message_id DESC)`

	if err := s.session.Query(query).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create messages_by_conversation: %w", err)
	}
	return nil
}

// SaveMessage writes one message. Replays of the same event overwrite the
// same row.
func (s *CassandraStore) SaveMessage(ctx context.Context, msg *pubsub.MessagePayload) error {
	query := `
		INSERT INTO messages_by_conversation (
			conversation_key, created_at, message_id, sender_id, receiver_id, text, attachment_ref, deleted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	err := s.session.Query(query,
		msg.ConversationKey,
		msg.CreatedAt,
		msg.MessageID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Text,
		msg.AttachmentRef,
		msg.Deleted,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// MarkDeleted blanks the archived copy of a soft-deleted message.
func (s *CassandraStore) MarkDeleted(ctx context.Context, msg *pubsub.MessagePayload) error {
	query := `
		UPDATE messages_by_conversation
		SET text = '', attachment_ref = '', deleted = true
		WHERE conversation_key = ? AND created_at = ? AND message_id = ?`

	err := s.session.Query(query,
		msg.ConversationKey,
		msg.CreatedAt,
		msg.MessageID,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to mark message deleted: %w", err)
	}
	return nil
}
