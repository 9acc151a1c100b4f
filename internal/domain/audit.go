package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID            int64                  `json:"id"`
	EventTime     time.Time              `json:"event_time"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	CounterpartID *uuid.UUID             `json:"counterpart_id,omitempty"`
	EventType     string                 `json:"event_type"`
	Payload       map[string]interface{} `json:"payload"`
}

const (
	EventTypeMessageDeletedForEveryone = "MESSAGE_DELETED_FOR_EVERYONE"
	EventTypeConversationDeleted       = "CONVERSATION_DELETED"
)
