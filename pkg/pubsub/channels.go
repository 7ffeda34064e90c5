package pubsub

import (
	"fmt"
	"time"
)

// Channel naming for direct-message events. The conversation key is the
// canonical unordered pair of participant ids.
const (
	ChannelConversationMessages = "dm:conversation:%s:messages"
	PatternConversationMessages = "dm:conversation:*:messages"
)

// Event types published on the conversation channels.
const (
	EventMessageCreated = "message.created"
	EventMessageDeleted = "message.deleted"
)

// ConversationChannel returns the channel carrying message events of one conversation.
func ConversationChannel(conversationKey string) string {
	return fmt.Sprintf(ChannelConversationMessages, conversationKey)
}

// MessagePayload is the payload of message.created and message.deleted.
type MessagePayload struct {
	MessageID       string    `json:"message_id"`
	ConversationKey string    `json:"conversation_key"`
	SenderID        string    `json:"sender_id"`
	ReceiverID      string    `json:"receiver_id"`
	Text            string    `json:"text,omitempty"`
	AttachmentRef   string    `json:"attachment_ref,omitempty"`
	Deleted         bool      `json:"deleted"`
	CreatedAt       time.Time `json:"created_at"`
}
