package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"quick_chat/pkg/logger"
)

const (
	PresenceOnlineKey    = "presence:online"
	PresenceLastSeenKey  = "presence:last_seen"
	PresenceChannel      = "presence:changes"
	presenceLastSeenTTL = 24 * time.Hour
)

// PresenceDirectory mirrors this node's presence transitions into Redis
// for other processes. It is never consulted for delivery decisions.
type PresenceDirectory interface {
	MarkOnline(ctx context.Context, principal uuid.UUID, at time.Time) error
	MarkOffline(ctx context.Context, principal uuid.UUID, at time.Time) error
	Members(ctx context.Context) ([]uuid.UUID, error)
	LastSeen(ctx context.Context, principal uuid.UUID) (time.Time, bool, error)
	// Reset clears the online set; called on startup since no handle
	// survives a restart.
	Reset(ctx context.Context) error
}

// PresenceNotice is the payload published on PresenceChannel.
type PresenceNotice struct {
	Principal uuid.UUID `json:"principal"`
	Online    bool      `json:"online"`
	At        time.Time `json:"at"`
}

type presenceDirectory struct {
	rdb *redis.Client
	log logger.Logger
}

func NewPresenceDirectory(rdb *redis.Client, log logger.Logger) PresenceDirectory {
	return &presenceDirectory{rdb: rdb, log: log}
}

func (r *presenceDirectory) MarkOnline(ctx context.Context, principal uuid.UUID, at time.Time) error {
	return r.apply(ctx, PresenceNotice{Principal: principal, Online: true, At: at})
}

func (r *presenceDirectory) MarkOffline(ctx context.Context, principal uuid.UUID, at time.Time) error {
	return r.apply(ctx, PresenceNotice{Principal: principal, Online: false, At: at})
}

func (r *presenceDirectory) apply(ctx context.Context, notice PresenceNotice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal presence notice: %w", err)
	}

	member := notice.Principal.String()
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if notice.Online {
			pipe.SAdd(ctx, PresenceOnlineKey, member)
		} else {
			pipe.SRem(ctx, PresenceOnlineKey, member)
		}
		pipe.HSet(ctx, PresenceLastSeenKey, member, notice.At.UnixMilli())
		pipe.Expire(ctx, PresenceLastSeenKey, presenceLastSeenTTL)
		pipe.Publish(ctx, PresenceChannel, payload)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to update presence directory", "error", err, "principal", member, "online", notice.Online)
		return fmt.Errorf("failed to update presence directory: %w", err)
	}
	return nil
}

func (r *presenceDirectory) Members(ctx context.Context) ([]uuid.UUID, error) {
	raw, err := r.rdb.SMembers(ctx, PresenceOnlineKey).Result()
	if err != nil && err != redis.Nil {
		r.log.Error("Failed to read presence directory", "error", err)
		return nil, fmt.Errorf("failed to read presence directory: %w", err)
	}

	members := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			r.log.Warn("Skipping malformed presence member", "member", s)
			continue
		}
		members = append(members, id)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].String() < members[j].String() })
	return members, nil
}

func (r *presenceDirectory) LastSeen(ctx context.Context, principal uuid.UUID) (time.Time, bool, error) {
	ms, err := r.rdb.HGet(ctx, PresenceLastSeenKey, principal.String()).Int64()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last seen: %w", err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (r *presenceDirectory) Reset(ctx context.Context) error {
	if err := r.rdb.Del(ctx, PresenceOnlineKey).Err(); err != nil {
		return fmt.Errorf("failed to reset presence directory: %w", err)
	}
	return nil
}
