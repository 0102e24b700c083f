package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Connection is one client socket. Identity and Role are empty until the
// application-level connect handshake binds them.
type Connection struct {
	ID       string
	Identity string
	Role     string

	conn     *websocket.Conn
	Send     chan []byte
	hub      *Hub
	LastPing time.Time
	IsAlive  bool
	mu       sync.RWMutex
}

func (c *Connection) lastPing() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LastPing
}

func (c *Connection) touch() {
	c.mu.Lock()
	c.LastPing = time.Now()
	c.mu.Unlock()
}

// Alive reports whether the socket is still considered live.
func (c *Connection) Alive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.IsAlive
}

func (c *Connection) setAlive(v bool) {
	c.mu.Lock()
	c.IsAlive = v
	c.mu.Unlock()
}

func (c *Connection) closeSocket() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// SendEvent serializes and queues one event for this connection only.
func (c *Connection) SendEvent(event string, data interface{}) error {
	payload, err := EncodeEvent(event, data)
	if err != nil {
		return err
	}

	select {
	case c.Send <- payload:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.closeSocket()
	}()

	c.conn.SetReadLimit(int64(c.hub.config.MaxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ConnectionTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ConnectionTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Errorf("socket read error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Connection) writePump() {
	interval := c.hub.config.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(time.Duration(float64(interval) * 0.9))
	defer func() {
		ticker.Stop()
		c.closeSocket()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			// flush anything already queued in the same frame batch
			n := len(c.Send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handleMessage(message []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logrus.Errorf("inbound message parse failed: %v", err)
		return
	}

	// transport-level ping stays inside the hub
	if msg.Type == "ping" {
		c.touch()
		_ = c.SendEvent("pong", nil)
		return
	}

	if c.hub.gateway != nil {
		c.hub.gateway.OnMessage(c, &msg)
	}
}
