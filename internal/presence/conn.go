package presence

import (
	"errors"

	"github.com/google/uuid"
	"quick_chat/internal/domain"
)

var (
	// ErrConnClosed is returned by Push once the handle has been closed.
	ErrConnClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned by Push when the outbound queue is full.
	// The handle closes itself before returning it.
	ErrSlowConsumer = errors.New("connection outbound queue full")
)

// Conn is a live connection handle owned by the registry entry of its
// principal. Implementations must be comparable (pointer types) since
// Unregister relies on handle identity.
type Conn interface {
	Principal() uuid.UUID
	// Push enqueues the event for delivery without waiting for the peer.
	// Events pushed to the same handle reach the transport in push order.
	Push(evt domain.Event) error
	// Close tears the handle down and cancels every pending push. Safe to
	// call more than once.
	Close()
	// Done is closed once the handle is closed.
	Done() <-chan struct{}
}
