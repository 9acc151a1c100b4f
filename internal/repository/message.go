package repository

import (
	"context"

	"github.com/google/uuid"
	"quick_chat/internal/domain"
)

// MessageRepository is the durable message log. Implementations assign
// creation timestamps and sequence numbers themselves; caller supplied
// times are never trusted.
type MessageRepository interface {
	// Append persists a new unseen message. Fails with ErrInvalidMessage
	// when both text and attachment are blank.
	Append(ctx context.Context, sender, receiver uuid.UUID, text, attachment string) (*domain.Message, error)
	GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error)
	// FetchConversation returns page (1 = most recent) of the conversation
	// between viewer and counterpart in ascending order, hiding messages the
	// viewer deleted for themselves.
	FetchConversation(ctx context.Context, viewer, counterpart uuid.UUID, page, pageSize int) ([]*domain.Message, error)
	// MarkSeen flips seen on every unseen message counterpart sent to viewer.
	MarkSeen(ctx context.Context, viewer, counterpart uuid.UUID) (int64, error)
	DeleteForMe(ctx context.Context, viewer, messageID uuid.UUID) error
	// DeleteForEveryone clears the content when requestor is the sender and
	// the edit window has not elapsed; otherwise ErrNotSender or
	// ErrWindowExpired.
	DeleteForEveryone(ctx context.Context, requestor, messageID uuid.UUID) (*domain.Message, error)
	// DeleteConversation hard deletes every message between a and b.
	DeleteConversation(ctx context.Context, a, b uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, viewer uuid.UUID) (int64, error)
}

func pageBounds(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return pageSize, (page - 1) * pageSize
}

func reverseMessages(messages []*domain.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
