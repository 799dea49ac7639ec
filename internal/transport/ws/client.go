package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const writeWait = 10 * time.Second

var (
	ErrClientClosed   = errors.New("ws: client closed")
	ErrSendBufferFull = errors.New("ws: send buffer full")
)

// Client is the outbound side of one WebSocket connection. Send never
// blocks; a dedicated write pump drains the buffer onto the socket.
type Client struct {
	conn    *websocket.Conn
	userID  uuid.UUID
	limiter *rate.Limiter

	pingInterval time.Duration

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID uuid.UUID, sendBuffer int, limiter *rate.Limiter, pingInterval time.Duration) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Client{
		conn:         conn,
		userID:       userID,
		limiter:      limiter,
		pingInterval: pingInterval,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
	}
}

// Send queues data for the write pump. A client whose buffer is full is
// too slow to keep up and gets disconnected.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		log.Warn().Str("user_id", c.userID.String()).Msg("ws: send buffer full, closing slow client")
		c.shutdown()
		go c.conn.Close(websocket.StatusPolicyViolation, "send buffer full")
		return ErrSendBufferFull
	}
}

// allow reports whether another inbound frame fits the rate limit.
func (c *Client) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump writes queued frames and pings until the client is shut down.
// A failed write or ping closes the connection, which ends the read loop.
func (c *Client) writePump(ctx context.Context) {
	var tick <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("user_id", c.userID.String()).Msg("ws: write error")
				c.abort()
				return
			}

		case <-tick:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("user_id", c.userID.String()).Msg("ws: ping failed")
				c.abort()
				return
			}

		case <-c.done:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) abort() {
	c.shutdown()
	c.conn.Close(websocket.StatusGoingAway, "write failed")
}
