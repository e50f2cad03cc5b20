package push

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/larder-app/larder/internal/logging"
	"github.com/sethvargo/go-retry"
)

// WSChannel is a websocket-backed push channel: it broadcasts outbound
// notifications and feeds inbound ones to an Applier.
type WSChannel struct {
	endpoint string
	log      logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSChannel returns a channel for the websocket endpoint
// (e.g. "ws://host/api/notifications"). A nil logger falls back to a no-op.
func NewWSChannel(endpoint string, log logging.Logger) *WSChannel {
	if log == nil {
		log = logging.Nop{}
	}
	return &WSChannel{endpoint: endpoint, log: log}
}

func (c *WSChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial push channel: %w", err)
	}
	c.conn = conn
	return conn, nil
}

func (c *WSChannel) drop(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Broadcast sends the notification over the channel. A write failure drops
// the connection so the next call redials.
func (c *WSChannel) Broadcast(ctx context.Context, n Notification) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	if err := conn.WriteJSON(n); err != nil {
		c.drop(conn)
		return fmt.Errorf("failed to broadcast notification: %w", err)
	}
	return nil
}

// Listen reads inbound notifications and hands them to apply until ctx is
// cancelled, redialing with capped exponential backoff after connection
// failures. Call it from a goroutine.
func (c *WSChannel) Listen(ctx context.Context, apply Applier) {
	backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second))

	_ = retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := c.dial(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}

		for {
			var n Notification
			if err := conn.ReadJSON(&n); err != nil {
				c.drop(conn)
				if ctx.Err() != nil {
					return nil
				}
				c.log.Warn(ctx, "push channel read failed, reconnecting", "error", err)
				return retry.RetryableError(err)
			}

			if err := apply.ApplyNotification(ctx, n); err != nil {
				c.log.Error(ctx, "failed to apply notification",
					"kind", n.Kind, "entity", n.Entity, "id", n.ID, "error", err)
			}
		}
	})
}

// Close shuts the underlying connection down.
func (c *WSChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
