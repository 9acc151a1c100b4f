package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"quick_chat/internal/config"
	"quick_chat/internal/domain"
	"quick_chat/internal/metrics"
	"quick_chat/internal/presence"
	"quick_chat/internal/repository"
	apperrors "quick_chat/pkg/errors"
	"quick_chat/pkg/logger"
)

type DeleteMode string

const (
	DeleteModeForEveryone DeleteMode = "for_everyone"
	DeleteModeForMe       DeleteMode = "for_me"
)

// DeleteResult reports how a delete request was applied. Rejected holds
// the reason a delete-for-everyone request fell back to delete-for-me.
type DeleteResult struct {
	MessageID uuid.UUID       `json:"message_id"`
	Mode      DeleteMode      `json:"mode"`
	Message   *domain.Message `json:"message,omitempty"`
	Rejected  string          `json:"rejected,omitempty"`
}

type ConversationService interface {
	Send(ctx context.Context, sender, receiver uuid.UUID, text, attachment string) (*domain.Message, error)
	SendTyping(ctx context.Context, sender, receiver uuid.UUID, isTyping bool) error
	// OpenConversation returns a page of the conversation and then marks
	// the counterpart's messages seen. The page carries the seen flags as
	// they were before the update.
	OpenConversation(ctx context.Context, viewer, counterpart uuid.UUID, page, pageSize int) ([]*domain.Message, error)
	MarkSeen(ctx context.Context, viewer, counterpart uuid.UUID) (int64, error)
	// GetMessage returns one message as viewer sees it. Messages viewer is
	// not part of, or deleted for viewer, are reported as not found.
	GetMessage(ctx context.Context, viewer, messageID uuid.UUID) (*domain.Message, error)
	DeleteOne(ctx context.Context, requestor, messageID uuid.UUID, forEveryone bool) (*DeleteResult, error)
	DeleteConversation(ctx context.Context, requestor, counterpart uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, viewer uuid.UUID) (int64, error)
	OnlineUsers() []uuid.UUID
}

type conversationService struct {
	messageRepo repository.MessageRepository
	router      DeliveryRouter
	registry    *presence.Registry
	audit       AuditService
	chatCfg     config.ChatConfig
	metrics     *metrics.Metrics
	log         logger.Logger
}

func NewConversationService(
	messageRepo repository.MessageRepository,
	router DeliveryRouter,
	registry *presence.Registry,
	audit AuditService,
	chatCfg config.ChatConfig,
	m *metrics.Metrics,
	log logger.Logger,
) ConversationService {
	return &conversationService{
		messageRepo: messageRepo,
		router:      router,
		registry:    registry,
		audit:       audit,
		chatCfg:     chatCfg,
		metrics:     m,
		log:         log,
	}
}

func (s *conversationService) Send(ctx context.Context, sender, receiver uuid.UUID, text, attachment string) (*domain.Message, error) {
	message, err := s.messageRepo.Append(ctx, sender, receiver, text, attachment)
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidMessage) {
			s.log.Error("Failed to store message", "error", err, "sender", sender, "receiver", receiver)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.MessagesStored.Inc()
	}

	// offline receivers pick the message up on their next fetch
	s.router.ForwardMessage(receiver, message)
	return message, nil
}

func (s *conversationService) SendTyping(ctx context.Context, sender, receiver uuid.UUID, isTyping bool) error {
	if receiver == uuid.Nil {
		return apperrors.ErrBadRequest
	}
	s.router.ForwardTyping(sender, receiver, isTyping)
	return nil
}

func (s *conversationService) OpenConversation(ctx context.Context, viewer, counterpart uuid.UUID, page, pageSize int) ([]*domain.Message, error) {
	if counterpart == uuid.Nil {
		return nil, apperrors.ErrBadRequest
	}
	pageSize = s.clampPageSize(pageSize)

	messages, err := s.messageRepo.FetchConversation(ctx, viewer, counterpart, page, pageSize)
	if err != nil {
		s.log.Error("Failed to fetch conversation", "error", err, "viewer", viewer, "counterpart", counterpart)
		return nil, err
	}

	if _, err := s.messageRepo.MarkSeen(ctx, viewer, counterpart); err != nil {
		s.log.Warn("Failed to mark conversation seen", "error", err, "viewer", viewer, "counterpart", counterpart)
	}

	return messages, nil
}

func (s *conversationService) MarkSeen(ctx context.Context, viewer, counterpart uuid.UUID) (int64, error) {
	if counterpart == uuid.Nil {
		return 0, apperrors.ErrBadRequest
	}
	return s.messageRepo.MarkSeen(ctx, viewer, counterpart)
}

func (s *conversationService) GetMessage(ctx context.Context, viewer, messageID uuid.UUID) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !message.IsParticipant(viewer) || message.IsDeletedFor(viewer) {
		return nil, apperrors.ErrMessageNotFound
	}
	return message, nil
}

func (s *conversationService) DeleteOne(ctx context.Context, requestor, messageID uuid.UUID, forEveryone bool) (*DeleteResult, error) {
	result := &DeleteResult{MessageID: messageID, Mode: DeleteModeForMe}

	if forEveryone {
		message, err := s.messageRepo.DeleteForEveryone(ctx, requestor, messageID)
		switch {
		case err == nil:
			result.Mode = DeleteModeForEveryone
			result.Message = message
			s.countDelete(result.Mode)

			s.router.ForwardMessageDeleted(message.Counterpart(requestor), messageID)
			s.recordAudit(ctx, requestor, message.Counterpart(requestor), domain.EventTypeMessageDeletedForEveryone, map[string]interface{}{
				"message_id": messageID.String(),
			})
			return result, nil
		case errors.Is(err, apperrors.ErrNotSender), errors.Is(err, apperrors.ErrWindowExpired):
			result.Rejected = err.Error()
		default:
			return nil, err
		}
	}

	if err := s.messageRepo.DeleteForMe(ctx, requestor, messageID); err != nil {
		return nil, err
	}
	s.countDelete(result.Mode)
	return result, nil
}

func (s *conversationService) DeleteConversation(ctx context.Context, requestor, counterpart uuid.UUID) (int64, error) {
	if counterpart == uuid.Nil {
		return 0, apperrors.ErrBadRequest
	}

	removed, err := s.messageRepo.DeleteConversation(ctx, requestor, counterpart)
	if err != nil {
		s.log.Error("Failed to delete conversation", "error", err, "requestor", requestor, "counterpart", counterpart)
		return 0, err
	}

	s.router.ForwardConversationDeleted(requestor, counterpart)
	s.recordAudit(ctx, requestor, counterpart, domain.EventTypeConversationDeleted, map[string]interface{}{
		"messages_removed": removed,
	})
	return removed, nil
}

func (s *conversationService) UnreadCount(ctx context.Context, viewer uuid.UUID) (int64, error) {
	return s.messageRepo.UnreadCount(ctx, viewer)
}

func (s *conversationService) OnlineUsers() []uuid.UUID {
	return s.registry.Snapshot()
}

func (s *conversationService) clampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return s.chatCfg.DefaultPageSize
	}
	if pageSize > s.chatCfg.MaxPageSize {
		return s.chatCfg.MaxPageSize
	}
	return pageSize
}

func (s *conversationService) countDelete(mode DeleteMode) {
	if s.metrics != nil {
		s.metrics.DeletesTotal.WithLabelValues(string(mode)).Inc()
	}
}

func (s *conversationService) recordAudit(ctx context.Context, actor, counterpart uuid.UUID, eventType string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, actor, &counterpart, eventType, payload); err != nil {
		s.log.Warn("Failed to record audit event", "error", err, "event_type", eventType)
	}
}
