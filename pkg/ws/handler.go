package ws

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Handler exposes the hub over gin.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

func newUpgrader(cfg *Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			// tourist apps connect from arbitrary origins
			return true
		},
		EnableCompression: cfg.EnableCompression,
	}
}

// Serve upgrades the request and starts the read/write pumps. Identity
// binding happens later, on the application-level connect message.
func (h *Handler) Serve(c *gin.Context) {
	upgrader := newUpgrader(h.hub.config)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("websocket upgrade failed: %v", err)
		return
	}

	if h.hub.config.EnableCompression {
		conn.EnableWriteCompression(true)
	}

	connection := &Connection{
		ID:       generateConnectionID(),
		conn:     conn,
		Send:     make(chan []byte, h.hub.config.MessageBufferSize),
		hub:      h.hub,
		LastPing: time.Now(),
		IsAlive:  true,
	}

	h.hub.register <- connection

	go connection.writePump()
	go connection.readPump()
}

// GetStats reports hub-level connection counts.
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"total_connections": h.hub.GetConnectionCount(),
		"dashboards":        h.hub.GetRoleConnections("dashboard"),
		"tourists":          h.hub.GetRoleConnections("tourist"),
	})
}

func generateConnectionID() string {
	return fmt.Sprintf("conn_%d", time.Now().UnixNano())
}
