package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

// Inbound events accepted from a connection.
const (
	EventSendMessage        EventType = "send-message"
	EventTyping             EventType = "typing"
	EventStopTyping         EventType = "stop-typing"
	EventDeleteMessage      EventType = "delete-message"
	EventDeleteConversation EventType = "delete-conversation"
)

// Outbound events pushed to a connection.
const (
	EventReceiveMessage      EventType = "receive-message"
	EventMessageSent         EventType = "message-sent"
	EventUserTyping          EventType = "user-typing"
	EventUserStopTyping      EventType = "user-stop-typing"
	EventMessageDeleted      EventType = "message-deleted"
	EventMessageDeleteResult EventType = "message-delete-result"
	EventConversationDeleted EventType = "conversation-deleted"
	EventOnlineUsers         EventType = "online-users"
	EventError               EventType = "error"
)

// Event is the outbound wire envelope.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// InboundEvent is the inbound wire envelope; Data is decoded per Type.
type InboundEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

type SendMessagePayload struct {
	ReceiverID uuid.UUID `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Attachment string    `json:"attachment,omitempty"`
}

type TypingPayload struct {
	ReceiverID uuid.UUID `json:"receiverId"`
}

type DeleteMessagePayload struct {
	MessageID   uuid.UUID `json:"messageId"`
	ReceiverID  uuid.UUID `json:"receiverId"`
	ForEveryone *bool     `json:"forEveryone,omitempty"`
}

type DeleteConversationPayload struct {
	ReceiverID uuid.UUID `json:"receiverId"`
}

// MessagePayload is a message as it travels over a connection. Socket
// frames use camelCase keys; the HTTP API serializes Message directly.
type MessagePayload struct {
	ID                   uuid.UUID  `json:"id"`
	SenderID             uuid.UUID  `json:"senderId"`
	ReceiverID           uuid.UUID  `json:"receiverId"`
	Text                 string     `json:"text"`
	Attachment           string     `json:"attachment"`
	CreatedAt            time.Time  `json:"createdAt"`
	Seen                 bool       `json:"seen"`
	DeletedForEveryoneAt *time.Time `json:"deletedForEveryoneAt,omitempty"`
}

func NewMessagePayload(m *Message) MessagePayload {
	return MessagePayload{
		ID:                   m.ID,
		SenderID:             m.SenderID,
		ReceiverID:           m.ReceiverID,
		Text:                 m.Text,
		Attachment:           m.Attachment,
		CreatedAt:            m.CreatedAt,
		Seen:                 m.Seen,
		DeletedForEveryoneAt: m.DeletedForEveryoneAt,
	}
}

type UserTypingPayload struct {
	SenderID uuid.UUID `json:"senderId"`
}

type MessageDeletedPayload struct {
	MessageID uuid.UUID `json:"messageId"`
}

// MessageDeleteResultPayload tells the requester how a delete-message was
// applied. Rejected carries the reason a delete for everyone was refused
// and downgraded to a delete for the requester only.
type MessageDeleteResultPayload struct {
	MessageID uuid.UUID `json:"messageId"`
	Mode      string    `json:"mode"`
	Rejected  string    `json:"rejected,omitempty"`
}

type ConversationDeletedPayload struct {
	SenderID uuid.UUID `json:"senderId"`
}

type OnlineUsersPayload struct {
	Users []uuid.UUID `json:"users"`
}

type ErrorPayload struct {
	Event EventType `json:"event,omitempty"`
	Error string    `json:"error"`
}

func NewReceiveMessageEvent(m *Message) Event {
	return Event{Type: EventReceiveMessage, Data: NewMessagePayload(m)}
}

func NewMessageSentEvent(m *Message) Event {
	return Event{Type: EventMessageSent, Data: NewMessagePayload(m)}
}

func NewTypingEvent(sender uuid.UUID, isTyping bool) Event {
	if isTyping {
		return Event{Type: EventUserTyping, Data: UserTypingPayload{SenderID: sender}}
	}
	return Event{Type: EventUserStopTyping, Data: UserTypingPayload{SenderID: sender}}
}

func NewMessageDeletedEvent(messageID uuid.UUID) Event {
	return Event{Type: EventMessageDeleted, Data: MessageDeletedPayload{MessageID: messageID}}
}

func NewMessageDeleteResultEvent(messageID uuid.UUID, mode, rejected string) Event {
	return Event{Type: EventMessageDeleteResult, Data: MessageDeleteResultPayload{MessageID: messageID, Mode: mode, Rejected: rejected}}
}

func NewConversationDeletedEvent(sender uuid.UUID) Event {
	return Event{Type: EventConversationDeleted, Data: ConversationDeletedPayload{SenderID: sender}}
}

func NewOnlineUsersEvent(users []uuid.UUID) Event {
	if users == nil {
		users = []uuid.UUID{}
	}
	return Event{Type: EventOnlineUsers, Data: OnlineUsersPayload{Users: users}}
}

func NewErrorEvent(event EventType, err error) Event {
	return Event{Type: EventError, Data: ErrorPayload{Event: event, Error: err.Error()}}
}
