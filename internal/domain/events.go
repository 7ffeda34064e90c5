package domain

import "time"

// WebSocket message types from client.
const (
	MsgTypePing = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeNewMessage     = "new_message"
	MsgTypeMessageDeleted = "message_deleted"
	MsgTypeOnlineUsers    = "online_users"
	MsgTypePong           = "pong"
	MsgTypeError          = "error"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnknownType   = "UNKNOWN_TYPE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Server -> Client messages

type NewMessageEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

func NewNewMessageEvent(msg *Message) *NewMessageEvent {
	return &NewMessageEvent{Type: MsgTypeNewMessage, Message: msg}
}

type MessageDeletedEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

func NewMessageDeletedEvent(msg *Message) *MessageDeletedEvent {
	return &MessageDeletedEvent{Type: MsgTypeMessageDeleted, Message: msg}
}

type OnlineUsersEvent struct {
	Type    string   `json:"type"`
	UserIDs []string `json:"user_ids"`
}

func NewOnlineUsersEvent(ids []string) *OnlineUsersEvent {
	if ids == nil {
		ids = []string{}
	}
	return &OnlineUsersEvent{Type: MsgTypeOnlineUsers, UserIDs: ids}
}

type PongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func NewPongMessage() *PongMessage {
	return &PongMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
