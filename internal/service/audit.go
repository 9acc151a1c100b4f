package service

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"quick_chat/internal/domain"
	"quick_chat/internal/repository"
	"quick_chat/pkg/logger"
)

type AuditService interface {
	LogEvent(ctx context.Context, actorUserID uuid.UUID, counterpartID *uuid.UUID, eventType string, payload map[string]interface{}) error
}

type auditService struct {
	auditRepo repository.AuditRepository
	clock     clock.Clock
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, clk clock.Clock, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		clock:     clk,
		log:       log,
	}
}

func (s *auditService) LogEvent(ctx context.Context, actorUserID uuid.UUID, counterpartID *uuid.UUID, eventType string, payload map[string]interface{}) error {
	if payload == nil {
		payload = make(map[string]interface{})
	}

	auditLog := &domain.AuditLog{
		EventTime:     s.clock.Now().UTC(),
		ActorUserID:   actorUserID,
		CounterpartID: counterpartID,
		EventType:     eventType,
		Payload:       payload,
	}

	return s.auditRepo.CreateLog(ctx, auditLog)
}
