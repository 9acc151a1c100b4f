package service

import (
	"github.com/google/uuid"
	"quick_chat/internal/domain"
	"quick_chat/internal/metrics"
	"quick_chat/internal/presence"
	"quick_chat/pkg/logger"
)

// DeliveryRouter forwards live events to the current handle of a
// principal. Delivery is best effort: an absent principal is dropped,
// a failed push is logged, and nothing is retried or reported back.
type DeliveryRouter interface {
	ForwardMessage(receiver uuid.UUID, message *domain.Message) bool
	ForwardMessageSent(sender uuid.UUID, message *domain.Message) bool
	ForwardTyping(sender, receiver uuid.UUID, isTyping bool) bool
	ForwardMessageDeleted(receiver, messageID uuid.UUID) bool
	// ForwardDeleteResult acknowledges a delete-message to its requester,
	// including the reason a delete for everyone was refused.
	ForwardDeleteResult(requestor uuid.UUID, result *DeleteResult) bool
	ForwardConversationDeleted(sender, receiver uuid.UUID) bool
	// BroadcastOnlineUsers pushes the registry snapshot to every present
	// principal.
	BroadcastOnlineUsers() int
}

type deliveryRouter struct {
	registry *presence.Registry
	metrics  *metrics.Metrics
	log      logger.Logger
}

func NewDeliveryRouter(registry *presence.Registry, m *metrics.Metrics, log logger.Logger) DeliveryRouter {
	return &deliveryRouter{registry: registry, metrics: m, log: log}
}

func (r *deliveryRouter) ForwardMessage(receiver uuid.UUID, message *domain.Message) bool {
	return r.forward(receiver, domain.NewReceiveMessageEvent(message))
}

func (r *deliveryRouter) ForwardMessageSent(sender uuid.UUID, message *domain.Message) bool {
	return r.forward(sender, domain.NewMessageSentEvent(message))
}

func (r *deliveryRouter) ForwardTyping(sender, receiver uuid.UUID, isTyping bool) bool {
	return r.forward(receiver, domain.NewTypingEvent(sender, isTyping))
}

func (r *deliveryRouter) ForwardMessageDeleted(receiver, messageID uuid.UUID) bool {
	return r.forward(receiver, domain.NewMessageDeletedEvent(messageID))
}

func (r *deliveryRouter) ForwardDeleteResult(requestor uuid.UUID, result *DeleteResult) bool {
	return r.forward(requestor, domain.NewMessageDeleteResultEvent(result.MessageID, string(result.Mode), result.Rejected))
}

func (r *deliveryRouter) ForwardConversationDeleted(sender, receiver uuid.UUID) bool {
	return r.forward(receiver, domain.NewConversationDeletedEvent(sender))
}

func (r *deliveryRouter) BroadcastOnlineUsers() int {
	evt := domain.NewOnlineUsersEvent(r.registry.Snapshot())

	delivered := 0
	r.registry.Each(func(p uuid.UUID, conn presence.Conn) {
		if r.push(p, conn, evt) {
			delivered++
		}
	})
	return delivered
}

func (r *deliveryRouter) forward(target uuid.UUID, evt domain.Event) bool {
	conn, ok := r.registry.Lookup(target)
	if !ok {
		r.count(evt.Type, metrics.OutcomeOffline)
		return false
	}
	return r.push(target, conn, evt)
}

func (r *deliveryRouter) push(target uuid.UUID, conn presence.Conn, evt domain.Event) bool {
	if err := conn.Push(evt); err != nil {
		r.log.Warn("Failed to push event", "error", err, "event", evt.Type, "principal", target)
		r.count(evt.Type, metrics.OutcomeFailed)
		return false
	}
	r.count(evt.Type, metrics.OutcomeDelivered)
	return true
}

func (r *deliveryRouter) count(event domain.EventType, outcome string) {
	if r.metrics == nil {
		return
	}
	r.metrics.DeliveryEvents.WithLabelValues(string(event), outcome).Inc()
}
