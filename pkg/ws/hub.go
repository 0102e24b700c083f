package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is one outbound named event, serialized once per publish.
type Event struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// EncodeEvent wraps data in the outbound envelope and serializes it.
func EncodeEvent(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Event{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// InboundMessage is the envelope clients send over the socket.
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Gateway receives decoded inbound traffic and transport-level
// disconnects. The hub itself stays protocol-agnostic.
type Gateway interface {
	OnMessage(c *Connection, msg *InboundMessage)
	OnDisconnect(c *Connection, reason string)
}

// Hub owns all live websocket connections and resolves fanout targets by
// identity, role, or everyone. Delivery is fire-and-forget: a full send
// buffer drops the event per the backpressure policy.
type Hub struct {
	connections   map[string]*Connection
	identityConns map[string]map[string]bool
	roleConns     map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection

	connectionCount int64
	config          *Config
	gateway         Gateway

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates and starts a hub.
func NewHub(config *Config) *Hub {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	hub := &Hub{
		connections:   make(map[string]*Connection),
		identityConns: make(map[string]map[string]bool),
		roleConns:     make(map[string]map[string]bool),
		register:      make(chan *Connection, 256),
		unregister:    make(chan *Connection, 256),
		config:        config,
		ctx:           ctx,
		cancel:        cancel,
	}

	go hub.run()
	return hub
}

// SetGateway wires the inbound event consumer. Must be called before the
// first client connects.
func (h *Hub) SetGateway(gw Gateway) { h.gateway = gw }

func (h *Hub) run() {
	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case conn := <-h.register:
			h.registerConnection(conn)
		case conn := <-h.unregister:
			h.unregisterConnection(conn)
		case <-ticker.C:
			h.checkHeartbeats()
		}
	}
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()

	if atomic.LoadInt64(&h.connectionCount) >= h.config.MaxConnections {
		h.mu.Unlock()
		conn.closeSocket()
		logrus.Warnf("connection limit reached: %d", h.config.MaxConnections)
		return
	}

	h.connections[conn.ID] = conn
	atomic.AddInt64(&h.connectionCount, 1)
	h.mu.Unlock()

	logrus.Infof("socket registered: %s, connections: %d",
		conn.ID, atomic.LoadInt64(&h.connectionCount))
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	_, exists := h.connections[conn.ID]
	if exists {
		delete(h.connections, conn.ID)
		atomic.AddInt64(&h.connectionCount, -1)
		h.dropBindingLocked(conn)
		close(conn.Send)
	}
	h.mu.Unlock()

	if exists {
		logrus.Infof("socket unregistered: %s, connections: %d",
			conn.ID, atomic.LoadInt64(&h.connectionCount))
		if h.gateway != nil {
			h.gateway.OnDisconnect(conn, "transport closed")
		}
	}
}

// Bind associates a connection with an application identity and role
// after a successful connect handshake.
func (h *Hub) Bind(conn *Connection, identity, role string) {
	conn.mu.Lock()
	conn.Identity = identity
	conn.Role = role
	conn.mu.Unlock()

	h.mu.Lock()
	if identity != "" {
		if h.identityConns[identity] == nil {
			h.identityConns[identity] = make(map[string]bool)
		}
		h.identityConns[identity][conn.ID] = true
	}
	if role != "" {
		if h.roleConns[role] == nil {
			h.roleConns[role] = make(map[string]bool)
		}
		h.roleConns[role][conn.ID] = true
	}
	h.mu.Unlock()
}

func (h *Hub) dropBindingLocked(conn *Connection) {
	if conn.Identity != "" && h.identityConns[conn.Identity] != nil {
		delete(h.identityConns[conn.Identity], conn.ID)
		if len(h.identityConns[conn.Identity]) == 0 {
			delete(h.identityConns, conn.Identity)
		}
	}
	if conn.Role != "" && h.roleConns[conn.Role] != nil {
		delete(h.roleConns[conn.Role], conn.ID)
		if len(h.roleConns[conn.Role]) == 0 {
			delete(h.roleConns, conn.Role)
		}
	}
}

// SendToIdentity delivers data to every live connection bound to the
// identity.
func (h *Hub) SendToIdentity(identity string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID := range h.identityConns[identity] {
		if conn, ok := h.connections[connID]; ok && conn.Alive() {
			h.trySend(conn, data)
		}
	}
}

// SendToRole delivers data to every live connection bound to the role.
func (h *Hub) SendToRole(role string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID := range h.roleConns[role] {
		if conn, ok := h.connections[connID]; ok && conn.Alive() {
			h.trySend(conn, data)
		}
	}
}

// SendToAll delivers data to every live connection.
func (h *Hub) SendToAll(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections {
		if conn.Alive() {
			h.trySend(conn, data)
		}
	}
}

func (h *Hub) checkHeartbeats() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := time.Now()
	for _, conn := range h.connections {
		if now.Sub(conn.lastPing()) > h.config.ConnectionTimeout {
			logrus.Warnf("socket %s ping timeout, closing", conn.ID)
			conn.setAlive(false)
			conn.closeSocket()
		}
	}
}

// trySend applies the backpressure policy.
func (h *Hub) trySend(conn *Connection, data []byte) {
	if h.config.DropOnFull {
		select {
		case conn.Send <- data:
		default:
			logrus.Debugf("socket %s send buffer full, event dropped", conn.ID)
			if h.config.CloseOnBackpressure {
				conn.closeSocket()
			}
		}
		return
	}

	timeout := h.config.SendTimeout
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	select {
	case conn.Send <- data:
	case <-time.After(timeout):
		logrus.Debugf("socket %s send timed out, event dropped", conn.ID)
		if h.config.CloseOnBackpressure {
			conn.closeSocket()
		}
	}
}

// SendToConnection delivers data to one socket by connection ID. Holding
// the hub lock keeps the send mutually exclusive with the channel close
// in unregister, so a dying socket can never panic the caller.
func (h *Hub) SendToConnection(id string, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, ok := h.connections[id]
	if !ok || !conn.Alive() {
		return false
	}
	h.trySend(conn, data)
	return true
}

// CloseConnection force-closes one socket. The read pump then drives the
// normal unregister path.
func (h *Hub) CloseConnection(id string) bool {
	h.mu.RLock()
	conn, ok := h.connections[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	conn.setAlive(false)
	conn.closeSocket()
	return true
}

// GetConnectionCount returns the number of registered sockets.
func (h *Hub) GetConnectionCount() int64 {
	return atomic.LoadInt64(&h.connectionCount)
}

// GetIdentityConnections returns how many sockets an identity holds.
func (h *Hub) GetIdentityConnections(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.identityConns[identity])
}

// GetRoleConnections returns how many sockets a role group holds.
func (h *Hub) GetRoleConnections(role string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roleConns[role])
}

// Close shuts the hub down and closes every socket.
func (h *Hub) Close() {
	h.cancel()

	h.mu.Lock()
	for _, conn := range h.connections {
		conn.closeSocket()
	}
	h.mu.Unlock()

	logrus.Info("websocket hub closed")
}
