package handler

import (
	"quick_chat/internal/config"
	"quick_chat/internal/metrics"
	"quick_chat/internal/presence"
	"quick_chat/internal/service"
	"quick_chat/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Conversation *ConversationHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(services *service.Services, registry *presence.Registry, m *metrics.Metrics, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(registry, m),
		Auth:         NewAuthHandler(services.Auth, log),
		User:         NewUserHandler(services.User, log),
		Conversation: NewConversationHandler(services.Conversation, log),
		WebSocket:    NewWebSocketHandler(registry, services.Conversation, services.Delivery, cfg, m, log),
	}
}
