// Package ws provides the websocket gateway: it accepts client
// connections, decodes inbound frames, dispatches them to the lobby
// core, and serves the read-only health and stats surfaces.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// client wraps one websocket connection and implements lobby.Sender.
// All writes go through a buffered channel drained by a single pump
// goroutine, so frames to the same peer arrive in send order and a
// slow peer never stalls the caller.
type client struct {
	id     string
	conn   *websocket.Conn
	logger *zap.Logger

	writeTimeout time.Duration
	pingInterval time.Duration

	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

func newClient(id string, conn *websocket.Conn, bufSize int, writeTimeout, pingInterval time.Duration, logger *zap.Logger) *client {
	return &client{
		id:           id,
		conn:         conn,
		logger:       logger,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		sendCh:       make(chan []byte, bufSize),
		done:         make(chan struct{}),
	}
}

// Send enqueues a frame for delivery. It never blocks on the network:
// a closed connection or a full buffer is reported as an error, which
// the broadcaster treats as a delivery failure for this peer.
func (c *client) Send(data []byte) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.sendCh <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// writePump serializes all writes to the connection and keeps the peer
// alive with periodic pings. It exits when the client is closed or a
// write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed, closing connection",
					zap.String("connection_id", c.id),
					zap.Error(err),
				)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// close shuts the connection down exactly once. Safe to call from any
// goroutine.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
