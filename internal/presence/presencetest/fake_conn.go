// Package presencetest provides an in-memory connection handle for tests.
package presencetest

import (
	"sync"

	"github.com/google/uuid"
	"quick_chat/internal/domain"
	"quick_chat/internal/presence"
)

// FakeConn records pushed events. FailPush makes every Push fail as a
// broken transport would.
type FakeConn struct {
	principal uuid.UUID

	mu       sync.Mutex
	events   []domain.Event
	closed   bool
	done     chan struct{}
	FailPush bool
}

func NewFakeConn(p uuid.UUID) *FakeConn {
	return &FakeConn{principal: p, done: make(chan struct{})}
}

func (c *FakeConn) Principal() uuid.UUID { return c.principal }

func (c *FakeConn) Push(evt domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return presence.ErrConnClosed
	}
	if c.FailPush {
		return presence.ErrSlowConsumer
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *FakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func (c *FakeConn) Done() <-chan struct{} { return c.done }

func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Events returns a copy of everything pushed so far.
func (c *FakeConn) Events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.events...)
}

// EventsOfType filters Events by type.
func (c *FakeConn) EventsOfType(t domain.EventType) []domain.Event {
	var out []domain.Event
	for _, e := range c.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
