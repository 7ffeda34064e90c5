package domain

import (
	"strconv"
	"strings"
	"time"
)

// Message is a direct message between two users.
type Message struct {
	ID            string    `json:"id"`
	SenderID      string    `json:"sender_id"`
	ReceiverID    string    `json:"receiver_id"`
	Text          string    `json:"text,omitempty"`
	AttachmentRef string    `json:"attachment_ref,omitempty"`
	Deleted       bool      `json:"deleted"`
	CreatedAt     time.Time `json:"created_at"`
}

// Counterpart returns the participant of m that is not userID.
func (m *Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// ConversationKey returns the canonical key of the conversation m belongs to.
func (m *Message) ConversationKey() string {
	return ConversationKey(m.SenderID, m.ReceiverID)
}

// ConversationKey identifies the unordered pair {a, b} as
// "{len(lo)}:{lo}|{hi}". The length prefix keeps ids that contain the
// separator from colliding ("a"+"b|c" vs "a|b"+"c").
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + ":" + a + "|" + b
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID            string    `gorm:"type:varchar(36);primaryKey"`
	SenderID      string    `gorm:"type:varchar(64);not null;index:idx_messages_sender_created,priority:1"`
	ReceiverID    string    `gorm:"type:varchar(64);not null;index:idx_messages_receiver_created,priority:1"`
	Text          string    `gorm:"type:text"`
	AttachmentRef string    `gorm:"type:varchar(1024)"`
	Deleted       bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"precision:6;not null;index:idx_messages_sender_created,priority:2;index:idx_messages_receiver_created,priority:2"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:            m.ID,
		SenderID:      m.SenderID,
		ReceiverID:    m.ReceiverID,
		Text:          m.Text,
		AttachmentRef: m.AttachmentRef,
		Deleted:       m.Deleted,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:            msg.ID,
		SenderID:      msg.SenderID,
		ReceiverID:    msg.ReceiverID,
		Text:          msg.Text,
		AttachmentRef: msg.AttachmentRef,
		Deleted:       msg.Deleted,
		CreatedAt:     msg.CreatedAt,
	}
}

// MessageContent is the user-supplied part of a message.
type MessageContent struct {
	Text          string `json:"text"`
	AttachmentRef string `json:"attachment_ref"`
}

// Normalize trims surrounding whitespace from both fields.
func (c MessageContent) Normalize() MessageContent {
	return MessageContent{
		Text:          strings.TrimSpace(c.Text),
		AttachmentRef: strings.TrimSpace(c.AttachmentRef),
	}
}

// IsEmpty reports whether neither text nor attachment is present.
func (c MessageContent) IsEmpty() bool {
	n := c.Normalize()
	return n.Text == "" && n.AttachmentRef == ""
}

// SendMessageRequest is the body of a send request.
type SendMessageRequest struct {
	Text          string `json:"text"`
	AttachmentRef string `json:"attachment_ref"`
}

// Page is one page of a conversation, oldest first.
type Page struct {
	Messages   []*Message `json:"messages"`
	HasMore    bool       `json:"has_more"`
	NextCursor *string    `json:"next_cursor,omitempty"`
}
