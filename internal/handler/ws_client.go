package handler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"quick_chat/internal/domain"
	"quick_chat/internal/presence"
	"quick_chat/pkg/logger"
)

// wsClient is the websocket connection handle registered in presence.
// Pushes go through a bounded queue drained by a single writer goroutine,
// so frames reach the socket in push order and no caller ever waits on
// the network.
type wsClient struct {
	principal uuid.UUID
	conn      *websocket.Conn
	send      chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	pushTimeout time.Duration
	pingPeriod  time.Duration
	log         logger.Logger

	reason   string
	reasonMu sync.Mutex
}

func newWSClient(principal uuid.UUID, conn *websocket.Conn, sendBuffer int, pushTimeout, pongWait time.Duration, log logger.Logger) *wsClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &wsClient{
		principal:   principal,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		ctx:         ctx,
		cancel:      cancel,
		pushTimeout: pushTimeout,
		pingPeriod:  pongWait * 9 / 10,
		log:         log,
	}
}

func (c *wsClient) Principal() uuid.UUID { return c.principal }

func (c *wsClient) Push(evt domain.Event) error {
	if c.ctx.Err() != nil {
		return presence.ErrConnClosed
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	select {
	case <-c.ctx.Done():
		return presence.ErrConnClosed
	case c.send <- data:
		return nil
	default:
		c.closeWithReason("slow_consumer")
		return presence.ErrSlowConsumer
	}
}

func (c *wsClient) Close() {
	c.closeWithReason("closed")
}

func (c *wsClient) closeWithReason(reason string) {
	c.closeOnce.Do(func() {
		c.reasonMu.Lock()
		c.reason = reason
		c.reasonMu.Unlock()
		c.cancel()
	})
}

// Reason reports why the handle was closed.
func (c *wsClient) Reason() string {
	c.reasonMu.Lock()
	defer c.reasonMu.Unlock()
	return c.reason
}

func (c *wsClient) Done() <-chan struct{} { return c.ctx.Done() }

// Context is cancelled when the handle closes.
func (c *wsClient) Context() context.Context { return c.ctx }

// writePump owns every write to the socket. It closes the socket on its
// way out, which also unblocks the reader.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			if c.ctx.Err() != nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.pushTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Websocket write failed", "error", err, "principal", c.principal)
				c.closeWithReason("write_error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.pushTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.closeWithReason("ping_error")
				return
			}
		}
	}
}
