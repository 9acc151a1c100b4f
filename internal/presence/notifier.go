package presence

import (
	"context"
	"time"

	"quick_chat/pkg/logger"
)

// Observer reacts to presence changes (directory hints, broadcasts,
// metrics). Observers may do I/O; they never run on the registry path.
type Observer interface {
	PresenceChanged(ctx context.Context, change Change) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, change Change) error

func (f ObserverFunc) PresenceChanged(ctx context.Context, change Change) error {
	return f(ctx, change)
}

// Notifier drains registry changes and fans them out to observers, one
// change at a time, each observer bounded by timeout.
type Notifier struct {
	registry  *Registry
	observers []Observer
	timeout   time.Duration
	log       logger.Logger
}

func NewNotifier(registry *Registry, timeout time.Duration, log logger.Logger, observers ...Observer) *Notifier {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Notifier{
		registry:  registry,
		observers: observers,
		timeout:   timeout,
		log:       log,
	}
}

// Run blocks until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-n.registry.Changes():
			n.dispatch(ctx, change)
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, change Change) {
	for _, o := range n.observers {
		octx, cancel := context.WithTimeout(ctx, n.timeout)
		if err := o.PresenceChanged(octx, change); err != nil {
			n.log.Warn("Presence observer failed", "error", err, "principal", change.Principal, "online", change.Online)
		}
		cancel()
	}
}
