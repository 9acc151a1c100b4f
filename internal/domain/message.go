package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "quick_chat/pkg/errors"
)

// Message is one persisted chat message between two principals.
//
// A message is in exactly one state for a given viewer: visible with
// content, deleted for everyone (content cleared, DeletedForEveryoneAt
// set), or deleted for that viewer only (viewer listed in DeletedFor,
// filtered out of the viewer's conversation).
type Message struct {
	ID                   uuid.UUID   `json:"id"`
	Seq                  int64       `json:"seq"`
	SenderID             uuid.UUID   `json:"sender_id"`
	ReceiverID           uuid.UUID   `json:"receiver_id"`
	Text                 string      `json:"text"`
	Attachment           string      `json:"attachment"`
	CreatedAt            time.Time   `json:"created_at"`
	Seen                 bool        `json:"seen"`
	DeletedForEveryoneAt *time.Time  `json:"deleted_for_everyone_at,omitempty"`
	DeletedFor           []uuid.UUID `json:"-"`
}

const DefaultDeleteWindow = 2 * time.Minute

// ValidateNewMessage checks the content rule applied before persistence.
func ValidateNewMessage(sender, receiver uuid.UUID, text, attachment string) error {
	if sender == uuid.Nil || receiver == uuid.Nil {
		return apperrors.ErrInvalidMessage
	}
	if strings.TrimSpace(text) == "" && strings.TrimSpace(attachment) == "" {
		return apperrors.ErrInvalidMessage
	}
	return nil
}

// Timestamp returns t in UTC at millisecond resolution, the precision
// every store keeps.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func (m *Message) IsParticipant(p uuid.UUID) bool {
	return m.SenderID == p || m.ReceiverID == p
}

// Counterpart returns the other participant relative to p.
func (m *Message) Counterpart(p uuid.UUID) uuid.UUID {
	if m.SenderID == p {
		return m.ReceiverID
	}
	return m.SenderID
}

func (m *Message) IsDeletedForEveryone() bool {
	return m.DeletedForEveryoneAt != nil
}

func (m *Message) IsDeletedFor(viewer uuid.UUID) bool {
	for _, id := range m.DeletedFor {
		if id == viewer {
			return true
		}
	}
	return false
}

// CanDeleteForEveryone applies the delete-for-everyone policy: only the
// sender, and only while now-CreatedAt <= window.
func (m *Message) CanDeleteForEveryone(requestor uuid.UUID, now time.Time, window time.Duration) error {
	if m.SenderID != requestor {
		return apperrors.ErrNotSender
	}
	if now.Sub(m.CreatedAt) > window {
		return apperrors.ErrWindowExpired
	}
	return nil
}

// ClearForEveryone drops the content and stamps the deletion time.
func (m *Message) ClearForEveryone(now time.Time) {
	m.Text = ""
	m.Attachment = ""
	if m.DeletedForEveryoneAt == nil {
		at := Timestamp(now)
		m.DeletedForEveryoneAt = &at
	}
}

// Clone returns a deep copy safe to hand out of a store.
func (m *Message) Clone() *Message {
	c := *m
	if m.DeletedForEveryoneAt != nil {
		at := *m.DeletedForEveryoneAt
		c.DeletedForEveryoneAt = &at
	}
	if m.DeletedFor != nil {
		c.DeletedFor = append([]uuid.UUID(nil), m.DeletedFor...)
	}
	return &c
}

// ConversationKey is the order independent key of the pair {a, b}.
type ConversationKey struct {
	Low  uuid.UUID
	High uuid.UUID
}

func NewConversationKey(a, b uuid.UUID) ConversationKey {
	if strings.Compare(a.String(), b.String()) <= 0 {
		return ConversationKey{Low: a, High: b}
	}
	return ConversationKey{Low: b, High: a}
}

func (k ConversationKey) String() string {
	return k.Low.String() + ":" + k.High.String()
}
