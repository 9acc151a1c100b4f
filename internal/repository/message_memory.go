package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"quick_chat/internal/domain"
	apperrors "quick_chat/pkg/errors"
	"quick_chat/pkg/logger"
)

const memoryMessageShards = 64

// memoryMessageRepository keeps messages in process. Mutations are
// serialized per conversation shard; the message id index is a
// concurrent map so lookups by id do not touch conversation locks.
type memoryMessageRepository struct {
	clock        clock.Clock
	deleteWindow time.Duration
	log          logger.Logger

	seq    atomic.Int64
	shards [memoryMessageShards]*conversationShard
	index  sync.Map // message id -> domain.ConversationKey
}

type conversationShard struct {
	mu            sync.Mutex
	conversations map[domain.ConversationKey]*conversationLog
}

type conversationLog struct {
	messages []*domain.Message
	byID     map[uuid.UUID]*domain.Message
}

func NewMemoryMessageRepository(clk clock.Clock, deleteWindow time.Duration, log logger.Logger) MessageRepository {
	r := &memoryMessageRepository{clock: clk, deleteWindow: deleteWindow, log: log}
	for i := range r.shards {
		r.shards[i] = &conversationShard{conversations: make(map[domain.ConversationKey]*conversationLog)}
	}
	return r
}

func (r *memoryMessageRepository) shardFor(key domain.ConversationKey) *conversationShard {
	var buf [32]byte
	copy(buf[:16], key.Low[:])
	copy(buf[16:], key.High[:])
	return r.shards[xxhash.Sum64(buf[:])%memoryMessageShards]
}

func (r *memoryMessageRepository) Append(ctx context.Context, sender, receiver uuid.UUID, text, attachment string) (*domain.Message, error) {
	if err := domain.ValidateNewMessage(sender, receiver, text, attachment); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := domain.NewConversationKey(sender, receiver)
	s := r.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[key]
	if !ok {
		conv = &conversationLog{byID: make(map[uuid.UUID]*domain.Message)}
		s.conversations[key] = conv
	}

	message := &domain.Message{
		ID:         uuid.New(),
		Seq:        r.seq.Add(1),
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		Attachment: attachment,
		CreatedAt:  domain.Timestamp(r.clock.Now()),
	}
	conv.messages = append(conv.messages, message)
	conv.byID[message.ID] = message
	r.index.Store(message.ID, key)

	return message.Clone(), nil
}

// locate runs fn with the message under its conversation lock.
func (r *memoryMessageRepository) locate(messageID uuid.UUID, fn func(conv *conversationLog, m *domain.Message) error) error {
	v, ok := r.index.Load(messageID)
	if !ok {
		return apperrors.ErrMessageNotFound
	}
	key := v.(domain.ConversationKey)
	s := r.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[key]
	if !ok {
		return apperrors.ErrMessageNotFound
	}
	m, ok := conv.byID[messageID]
	if !ok {
		return apperrors.ErrMessageNotFound
	}
	return fn(conv, m)
}

func (r *memoryMessageRepository) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	var out *domain.Message
	err := r.locate(messageID, func(_ *conversationLog, m *domain.Message) error {
		out = m.Clone()
		return nil
	})
	return out, err
}

func (r *memoryMessageRepository) FetchConversation(ctx context.Context, viewer, counterpart uuid.UUID, page, pageSize int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset := pageBounds(page, pageSize)

	key := domain.NewConversationKey(viewer, counterpart)
	s := r.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[key]
	if !ok {
		return []*domain.Message{}, nil
	}

	visible := make([]*domain.Message, 0, len(conv.messages))
	for _, m := range conv.messages {
		if !m.IsDeletedFor(viewer) {
			visible = append(visible, m)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if !visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].CreatedAt.Before(visible[j].CreatedAt)
		}
		return visible[i].Seq < visible[j].Seq
	})

	end := len(visible) - offset
	if end <= 0 {
		return []*domain.Message{}, nil
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	out := make([]*domain.Message, 0, end-start)
	for _, m := range visible[start:end] {
		out = append(out, m.Clone())
	}
	return out, nil
}

func (r *memoryMessageRepository) MarkSeen(ctx context.Context, viewer, counterpart uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key := domain.NewConversationKey(viewer, counterpart)
	s := r.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[key]
	if !ok {
		return 0, nil
	}

	var updated int64
	for _, m := range conv.messages {
		if m.SenderID == counterpart && m.ReceiverID == viewer && !m.Seen {
			m.Seen = true
			updated++
		}
	}
	return updated, nil
}

func (r *memoryMessageRepository) DeleteForMe(ctx context.Context, viewer, messageID uuid.UUID) error {
	return r.locate(messageID, func(_ *conversationLog, m *domain.Message) error {
		if !m.IsParticipant(viewer) {
			return apperrors.ErrMessageNotFound
		}
		if !m.IsDeletedFor(viewer) {
			m.DeletedFor = append(m.DeletedFor, viewer)
		}
		return nil
	})
}

func (r *memoryMessageRepository) DeleteForEveryone(ctx context.Context, requestor, messageID uuid.UUID) (*domain.Message, error) {
	var out *domain.Message
	err := r.locate(messageID, func(_ *conversationLog, m *domain.Message) error {
		now := r.clock.Now()
		if err := m.CanDeleteForEveryone(requestor, now, r.deleteWindow); err != nil {
			return err
		}
		m.ClearForEveryone(now)
		out = m.Clone()
		return nil
	})
	return out, err
}

func (r *memoryMessageRepository) DeleteConversation(ctx context.Context, a, b uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key := domain.NewConversationKey(a, b)
	s := r.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[key]
	if !ok {
		return 0, nil
	}
	delete(s.conversations, key)
	for id := range conv.byID {
		r.index.Delete(id)
	}
	return int64(len(conv.messages)), nil
}

func (r *memoryMessageRepository) UnreadCount(ctx context.Context, viewer uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count int64
	for _, s := range r.shards {
		s.mu.Lock()
		for key, conv := range s.conversations {
			if key.Low != viewer && key.High != viewer {
				continue
			}
			for _, m := range conv.messages {
				if m.ReceiverID == viewer && !m.Seen {
					count++
				}
			}
		}
		s.mu.Unlock()
	}
	return count, nil
}
