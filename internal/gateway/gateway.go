package gateway

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"SafeTrail/internal/geofence"
	"SafeTrail/internal/identity"
	"SafeTrail/internal/models"
	"SafeTrail/internal/registry"
	"SafeTrail/internal/sos"
	"SafeTrail/pkg/errors"
	"SafeTrail/pkg/logger"
	"SafeTrail/pkg/ws"
)

// Recorder appends to the evidence log.
type Recorder interface {
	Append(subject, eventType string, payload interface{}) (*models.EvidenceEntry, error)
}

// Gateway translates inbound socket messages into registry, geofence,
// and SOS operations. It implements ws.Gateway; connection IDs double as
// session IDs.
type Gateway struct {
	hub      *ws.Hub
	registry *registry.Registry
	geo      *geofence.Engine
	sos      *sos.Manager
	recorder Recorder
}

func New(hub *ws.Hub, reg *registry.Registry, geo *geofence.Engine, mgr *sos.Manager, recorder Recorder) *Gateway {
	return &Gateway{
		hub:      hub,
		registry: reg,
		geo:      geo,
		sos:      mgr,
		recorder: recorder,
	}
}

type connectRequest struct {
	TouristID string `json:"touristId"`
	Role      string `json:"role"`
	Language  string `json:"language"`
}

type locationUpdate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Location  string  `json:"location"`
}

type sosRequest struct {
	HelpType  string  `json:"helpType"`
	Message   string  `json:"message"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (g *Gateway) OnMessage(c *ws.Connection, msg *ws.InboundMessage) {
	switch msg.Type {
	case ws.MsgConnect:
		g.handleConnect(c, msg.Data)
	case ws.MsgHeartbeat:
		g.handleHeartbeat(c)
	case ws.MsgLocationUpdate:
		g.handleLocation(c, msg.Data)
	case ws.MsgSOSTrigger:
		g.handleSOS(c, msg.Data)
	default:
		logger.L.Debug("unhandled message type",
			zap.String("type", msg.Type), zap.String("conn", c.ID))
	}
}

func (g *Gateway) OnDisconnect(c *ws.Connection, reason string) {
	g.registry.Disconnect(c.ID, reason)
}

func (g *Gateway) handleConnect(c *ws.Connection, raw json.RawMessage) {
	var req connectRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		_ = c.SendEvent(ws.EvtConnectionError, map[string]string{"reason": "malformed_request"})
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleTourist
	}

	record, displaced, err := g.registry.Connect(context.Background(), c.ID, req.TouristID, role, req.Language)
	if err != nil {
		reason := "connect_failed"
		if errors.IsCode(err, errors.CodeIdentityUnknown) {
			reason = "identity_unknown"
		}
		logger.L.Warn("connect rejected",
			zap.String("conn", c.ID), zap.String("reason", reason), zap.Error(err))
		_ = c.SendEvent(ws.EvtConnectionError, map[string]string{"reason": reason})
		return
	}

	// evict the older socket holding this identity before binding
	if displaced != "" {
		if payload, err := ws.EncodeEvent(ws.EvtForcedDisconnect, map[string]string{
			"reason": "superseded by a newer session",
		}); err == nil {
			g.hub.SendToConnection(displaced, payload)
		}
		g.hub.CloseConnection(displaced)
	}

	g.hub.Bind(c, record.Identity, record.Role)

	_ = c.SendEvent(ws.EvtConnectionAck, map[string]interface{}{
		"sessionId":         record.SessionID,
		"name":              record.Name,
		"role":              record.Role,
		"language":          record.Language,
		"serverTime":        time.Now(),
		"emergencyServices": identity.EmergencyServices(),
	})
}

func (g *Gateway) handleHeartbeat(c *ws.Connection) {
	seen, err := g.registry.Heartbeat(c.ID)
	if err != nil {
		_ = c.SendEvent(ws.EvtConnectionError, map[string]string{"reason": "session_not_found"})
		return
	}
	_ = c.SendEvent(ws.EvtHeartbeatAck, map[string]interface{}{"serverTime": seen})
}

func (g *Gateway) handleLocation(c *ws.Connection, raw json.RawMessage) {
	var upd locationUpdate
	if err := json.Unmarshal(raw, &upd); err != nil {
		return
	}
	coord := models.Coordinate{Lat: upd.Latitude, Lng: upd.Longitude}

	record, err := g.registry.UpdateLocation(c.ID, coord, upd.Location)
	if err != nil {
		_ = c.SendEvent(ws.EvtConnectionError, map[string]string{"reason": "session_not_found"})
		return
	}

	for _, alert := range g.geo.Evaluate(coord, record.Language) {
		_ = c.SendEvent(ws.EvtZoneAlert, alert)
		if g.recorder != nil {
			_, _ = g.recorder.Append(record.Identity, "zone_breach", map[string]interface{}{
				"zone_id": alert.Zone.ID, "category": alert.Category, "coordinates": coord,
			})
		}
	}
}

func (g *Gateway) handleSOS(c *ws.Connection, raw json.RawMessage) {
	var req sosRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}

	record, ok := g.registry.Get(c.ID)
	if !ok {
		_ = c.SendEvent(ws.EvtConnectionError, map[string]string{"reason": "session_not_found"})
		return
	}

	coord := models.Coordinate{Lat: req.Latitude, Lng: req.Longitude}
	if coord.Lat == 0 && coord.Lng == 0 && record.Coordinates != nil {
		coord = *record.Coordinates
	}

	alert, err := g.sos.Trigger(record, coord, req.HelpType, req.Message)
	if err != nil {
		logger.L.Error("sos trigger failed", zap.Error(err))
		return
	}
	g.registry.NoteSOS()

	_ = c.SendEvent(ws.EvtSOSAck, map[string]interface{}{
		"sosId":       alert.ID,
		"status":      alert.Status,
		"responderId": alert.ResponderID,
		"etaMinutes":  alert.EtaAtDispatch,
		"messageKey":  "help_coming",
	})
}

var _ ws.Gateway = (*Gateway)(nil)
