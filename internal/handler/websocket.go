package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"quick_chat/internal/config"
	"quick_chat/internal/domain"
	"quick_chat/internal/metrics"
	"quick_chat/internal/middleware"
	"quick_chat/internal/presence"
	"quick_chat/internal/service"
	apperrors "quick_chat/pkg/errors"
	"quick_chat/pkg/logger"
)

type WebSocketHandler struct {
	upgrader     websocket.Upgrader
	registry     *presence.Registry
	conversation service.ConversationService
	delivery     service.DeliveryRouter
	presenceCfg  config.PresenceConfig
	wsCfg        config.WebSocketConfig
	metrics      *metrics.Metrics
	log          logger.Logger
}

func NewWebSocketHandler(
	registry *presence.Registry,
	conversation service.ConversationService,
	delivery service.DeliveryRouter,
	cfg *config.Config,
	m *metrics.Metrics,
	log logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     middleware.AllowedOrigin(cfg.Server.CORSOrigins),
		},
		registry:     registry,
		conversation: conversation,
		delivery:     delivery,
		presenceCfg:  cfg.Presence,
		wsCfg:        cfg.WebSocket,
		metrics:      m,
		log:          log,
	}
}

// Handle upgrades an authenticated request and serves the connection
// until it closes. RequireAuth runs first, so an unverified handshake
// never reaches the upgrade or the registry.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	principal, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade connection", "error", err, "principal", principal)
		return
	}

	client := newWSClient(principal, conn, h.presenceCfg.SendBuffer, h.presenceCfg.PushTimeout, h.wsCfg.PongWait, h.log)
	go client.writePump()

	h.registry.Register(principal, client)
	h.log.Info("Websocket connected", "principal", principal)

	h.readLoop(client)

	h.registry.Unregister(principal, client)
	client.Close()
	if h.metrics != nil {
		h.metrics.ConnectionsClosed.WithLabelValues(client.Reason()).Inc()
	}
	h.log.Info("Websocket disconnected", "principal", principal, "reason", client.Reason())
}

func (h *WebSocketHandler) readLoop(client *wsClient) {
	conn := client.conn
	conn.SetReadLimit(h.wsCfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.wsCfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.wsCfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && client.ctx.Err() == nil {
				h.log.Debug("Websocket read failed", "error", err, "principal", client.principal)
			}
			return
		}

		var evt domain.InboundEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			_ = client.Push(domain.NewErrorEvent("", apperrors.ErrBadRequest))
			continue
		}
		h.dispatch(client.Context(), client, evt)
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, client *wsClient, evt domain.InboundEvent) {
	sender := client.principal

	var err error
	switch evt.Type {
	case domain.EventSendMessage:
		var p domain.SendMessagePayload
		if err = decodePayload(evt.Data, &p); err == nil {
			var message *domain.Message
			message, err = h.conversation.Send(ctx, sender, p.ReceiverID, p.Text, p.Attachment)
			if err == nil {
				h.delivery.ForwardMessageSent(sender, message)
			}
		}

	case domain.EventTyping, domain.EventStopTyping:
		var p domain.TypingPayload
		if err = decodePayload(evt.Data, &p); err == nil {
			err = h.conversation.SendTyping(ctx, sender, p.ReceiverID, evt.Type == domain.EventTyping)
		}

	case domain.EventDeleteMessage:
		var p domain.DeleteMessagePayload
		if err = decodePayload(evt.Data, &p); err == nil {
			forEveryone := true
			if p.ForEveryone != nil {
				forEveryone = *p.ForEveryone
			}
			var result *service.DeleteResult
			result, err = h.conversation.DeleteOne(ctx, sender, p.MessageID, forEveryone)
			if err == nil {
				h.delivery.ForwardDeleteResult(sender, result)
			}
		}

	case domain.EventDeleteConversation:
		var p domain.DeleteConversationPayload
		if err = decodePayload(evt.Data, &p); err == nil {
			_, err = h.conversation.DeleteConversation(ctx, sender, p.ReceiverID)
		}

	default:
		err = apperrors.NewAPIError("unknown event", http.StatusBadRequest)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.log.Debug("Inbound event rejected", "error", err, "event", evt.Type, "principal", sender)
		_ = client.Push(domain.NewErrorEvent(evt.Type, publicError(err)))
	}
}

func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return apperrors.ErrBadRequest
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.ErrBadRequest
	}
	return nil
}

// publicError hides internal failure details from clients.
func publicError(err error) error {
	if apperrors.HTTPStatusFromError(err) >= http.StatusInternalServerError && !errors.Is(err, apperrors.ErrStorageUnavailable) {
		return apperrors.ErrInternalServer
	}
	if errors.Is(err, apperrors.ErrStorageUnavailable) {
		return apperrors.ErrStorageUnavailable
	}
	return err
}
