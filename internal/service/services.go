package service

import (
	"github.com/benbjohnson/clock"
	"quick_chat/internal/config"
	"quick_chat/internal/metrics"
	"quick_chat/internal/presence"
	"quick_chat/internal/repository"
	"quick_chat/pkg/logger"
)

type Services struct {
	Auth         AuthService
	User         UserService
	Conversation ConversationService
	Delivery     DeliveryRouter
	RateLimit    RateLimitService
	Audit        AuditService
	Broadcaster  *PresenceBroadcaster
}

func NewServices(repos *repository.Repositories, registry *presence.Registry, m *metrics.Metrics, clk clock.Clock, cfg *config.Config, log logger.Logger) *Services {
	router := NewDeliveryRouter(registry, m, log)
	audit := NewAuditService(repos.Audit, clk, log)

	return &Services{
		Auth:         NewAuthService(repos.User, cfg.JWT, clk, log),
		User:         NewUserService(repos.User, log),
		Conversation: NewConversationService(repos.Message, router, registry, audit, cfg.Chat, m, log),
		Delivery:     router,
		RateLimit:    NewRateLimitService(repos.RateLimit, cfg.RateLimit, log),
		Audit:        audit,
		Broadcaster:  NewPresenceBroadcaster(router, clk, cfg.Presence.BroadcastInterval, log),
	}
}

// PresenceObservers returns the observers the presence notifier fans
// changes out to.
func (s *Services) PresenceObservers(repos *repository.Repositories, registry *presence.Registry, m *metrics.Metrics) []presence.Observer {
	return []presence.Observer{
		s.Broadcaster,
		NewPresenceHintObserver(repos.User, repos.Presence),
		NewPresenceMetricsObserver(registry, m),
	}
}
