package service

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"quick_chat/internal/metrics"
	"quick_chat/internal/presence"
	"quick_chat/internal/repository"
	"quick_chat/pkg/logger"
)

// PresenceBroadcaster sends online-users to every present principal on
// each presence change and on a fixed interval.
type PresenceBroadcaster struct {
	router   DeliveryRouter
	clock    clock.Clock
	interval time.Duration
	log      logger.Logger
}

func NewPresenceBroadcaster(router DeliveryRouter, clk clock.Clock, interval time.Duration, log logger.Logger) *PresenceBroadcaster {
	return &PresenceBroadcaster{router: router, clock: clk, interval: interval, log: log}
}

func (b *PresenceBroadcaster) PresenceChanged(ctx context.Context, change presence.Change) error {
	b.router.BroadcastOnlineUsers()
	return nil
}

// Run broadcasts every interval until ctx is done. A non-positive
// interval disables the periodic broadcast.
func (b *PresenceBroadcaster) Run(ctx context.Context) {
	if b.interval <= 0 {
		return
	}
	ticker := b.clock.Ticker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := b.router.BroadcastOnlineUsers()
			b.log.Debug("Broadcast online users", "recipients", n)
		}
	}
}

// NewPresenceHintObserver keeps the user directory hint and, when
// configured, the shared Redis presence directory in step with the
// registry.
func NewPresenceHintObserver(userRepo repository.UserRepository, directory repository.PresenceDirectory) presence.Observer {
	return presence.ObserverFunc(func(ctx context.Context, change presence.Change) error {
		at := change.At.UTC()
		err := userRepo.SetOnline(ctx, change.Principal, change.Online, at)

		if directory != nil {
			var derr error
			if change.Online {
				derr = directory.MarkOnline(ctx, change.Principal, at)
			} else {
				derr = directory.MarkOffline(ctx, change.Principal, at)
			}
			err = errors.Join(err, derr)
		}
		return err
	})
}

// NewPresenceMetricsObserver tracks the online gauge and transitions.
func NewPresenceMetricsObserver(registry *presence.Registry, m *metrics.Metrics) presence.Observer {
	return presence.ObserverFunc(func(ctx context.Context, change presence.Change) error {
		state := "offline"
		if change.Online {
			state = "online"
		}
		m.PresenceChanges.WithLabelValues(state).Inc()
		m.OnlinePrincipals.Set(float64(registry.Len()))
		return nil
	})
}
