// Package ws implements the live-messaging layer: the websocket transport,
// the presence registry, and the hub that routes events between connections
// and the conversation services.
//
// The wire protocol is a JSON envelope per frame: {"event": "...", "data": {...}}.
// Inbound and outbound event names and payload shapes mirror the web client's
// contract; this file is the single place they are defined.
package ws

import "encoding/json"

// Inbound event names (client → server).
const (
	EventAuthenticate  = "authenticate"
	EventSendMessage   = "send-message"
	EventTyping        = "typing"
	EventMarkRead      = "mark-read"
	EventEditMessage   = "edit-message"
	EventDeleteMessage = "delete-message"
)

// Outbound event names (server → client).
const (
	EventAuthenticated        = "authenticated"
	EventAuthError            = "auth-error"
	EventOnlineUsers          = "online-users"
	EventUserStatus           = "user-status"
	EventNewMessage           = "new-message"
	EventMessageSent          = "message-sent"
	EventUserTyping           = "user-typing"
	EventMessagesRead         = "messages-read"
	EventMessageEdited        = "message-edited"
	EventMessageEditConfirmed = "message-edit-confirmed"
	EventMessageDeleted       = "message-deleted"
	EventMessageDeleteConfirm = "message-delete-confirmed"
	EventError                = "error"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

//
// Inbound payloads
//

// AuthenticatePayload carries the session token; accepted only while the
// connection is unauthenticated.
type AuthenticatePayload struct {
	Token string `json:"token"`
}

// SendMessagePayload carries an outgoing message.
type SendMessagePayload struct {
	ReceiverID uint   `json:"receiverId"`
	Message    string `json:"message"`
}

// TypingPayload carries a typing-state toggle for relay.
type TypingPayload struct {
	ReceiverID uint `json:"receiverId"`
	IsTyping   bool `json:"isTyping"`
}

// MarkReadPayload acknowledges all unread messages from one sender.
type MarkReadPayload struct {
	SenderID uint `json:"senderId"`
}

// EditMessagePayload carries a body replacement for an owned message.
type EditMessagePayload struct {
	MessageID  uint   `json:"messageId"`
	Message    string `json:"message"`
	ReceiverID uint   `json:"receiverId"`
}

// DeleteMessagePayload requests one of the two deletion variants.
type DeleteMessagePayload struct {
	MessageID         uint `json:"messageId"`
	DeleteForEveryone bool `json:"deleteForEveryone"`
	ReceiverID        uint `json:"receiverId"`
}

//
// Outbound payloads
//

// AuthenticatedPayload confirms a successful authentication.
type AuthenticatedPayload struct {
	Success bool `json:"success"`
	User    any  `json:"user"`
}

// AuthErrorPayload reports a failed authentication attempt.
type AuthErrorPayload struct {
	Error string `json:"error"`
}

// OnlineUsersPayload is the roster snapshot pushed right after authentication.
type OnlineUsersPayload struct {
	Users []uint `json:"users"`
}

// UserStatusPayload broadcasts an identity's presence change.
type UserStatusPayload struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// MessagePayload is the canonical message shape sent to both parties: the
// receiver as "new-message", the sender as "message-sent". The client treats
// the id and timestamp here as the source of truth.
type MessagePayload struct {
	ID             uint   `json:"id"`
	SenderID       uint   `json:"senderId"`
	SenderUsername string `json:"senderUsername"`
	SenderAvatar   string `json:"senderAvatar"`
	ReceiverID     uint   `json:"receiverId"`
	Message        string `json:"message"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"createdAt"`
}

// UserTypingPayload relays a counterpart's typing state.
type UserTypingPayload struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// MessagesReadPayload tells a sender their messages were read by userId.
type MessagesReadPayload struct {
	UserID uint `json:"userId"`
}

// MessageEditedPayload carries an edit to the receiver and, as
// "message-edit-confirmed", back to the actor.
type MessageEditedPayload struct {
	MessageID uint   `json:"messageId"`
	Message   string `json:"message"`
	Edited    bool   `json:"edited"`
}

// MessageDeletedPayload carries a deletion to the receiver and, as
// "message-delete-confirmed", back to the actor.
type MessageDeletedPayload struct {
	MessageID         uint `json:"messageId"`
	DeleteForEveryone bool `json:"deleteForEveryone"`
}

// ErrorPayload is the structured failure report sent to the originating
// connection only. Codes reuse the HTTP layer's stable taxonomy.
type ErrorPayload struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
