package models

import "time"

// Client roles attached to a live session.
const (
	RoleTourist   = "tourist"
	RoleDashboard = "dashboard"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ConnectionRecord is the live-session state owned by the registry.
// Created on connect, mutated on heartbeat/location update, destroyed on
// disconnect or liveness timeout.
type ConnectionRecord struct {
	SessionID   string      `json:"session_id"`
	Identity    string      `json:"identity"`
	Name        string      `json:"name"`
	Role        string      `json:"role"`
	Location    string      `json:"location"`
	Coordinates *Coordinate `json:"coordinates,omitempty"`
	Language    string      `json:"language"`
	ConnectedAt time.Time   `json:"connected_at"`
	LastSeen    time.Time   `json:"last_seen"`
	LastBeat    time.Time   `json:"last_beat"`
}

// ConnectionStats are the aggregate totals broadcast to dashboards.
type ConnectionStats struct {
	TotalConnections  int64     `json:"total_connections"`
	ActiveConnections int64     `json:"active_connections"`
	TotalSOS          int64     `json:"total_sos"`
	StartTime         time.Time `json:"start_time"`
}

// Zone categories.
const (
	ZoneDanger = "danger"
	ZoneRed    = "red"
)

// Zone is a circular hazard area. Configuration data: read-only to the
// geofence engine, replaced wholesale through the admin surface.
type Zone struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Center   Coordinate `json:"center"`
	RadiusKm float64    `json:"radius_km"`
	Category string     `json:"category"`
	Severity string     `json:"severity"`
	Active   bool       `json:"active"`
}

// ZoneAlert is one geofence hit for a location update.
type ZoneAlert struct {
	Zone       Zone    `json:"zone"`
	Category   string  `json:"category"`
	DistanceKm float64 `json:"distance_km"`
	MessageKey string  `json:"message_key"`
	Message    string  `json:"message"`
}

// SOS lifecycle states. Forward-only.
const (
	SOSTriggered  = "triggered"
	SOSDispatched = "dispatched"
	SOSEnRoute    = "en_route"
	SOSResolved   = "resolved"
)

// SOSAlert tracks one emergency from trigger to resolution.
type SOSAlert struct {
	ID            string     `json:"id"`
	Identity      string     `json:"identity"`
	Name          string     `json:"name"`
	HelpType      string     `json:"help_type"`
	Message       string     `json:"message"`
	Coordinates   Coordinate `json:"coordinates"`
	Location      string     `json:"location"`
	Status        string     `json:"status"`
	ResponderID   string     `json:"responder_id,omitempty"`
	EtaAtDispatch int        `json:"eta_at_dispatch"`
	EtaRemaining  int        `json:"eta_remaining"`
	TriggeredAt   time.Time  `json:"triggered_at"`
	DispatchedAt  time.Time  `json:"dispatched_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// Responder statuses.
const (
	ResponderAvailable  = "available"
	ResponderResponding = "responding"
)

// Responder belongs to the external fleet collaborator. Matching only
// reads it, except for the available->responding flip on assignment.
type Responder struct {
	ID       string     `json:"id"`
	Category string     `json:"category"`
	Coord    Coordinate `json:"coord"`
	Status   string     `json:"status"`
}

// EvidenceEntry is one row of the append-only, hash-verifiable log.
// Timestamp is unix nanoseconds so the hash input is canonical across
// drivers. Once written the row is never mutated; any edit fails Verify.
type EvidenceEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryID   string `gorm:"uniqueIndex;size:36" json:"entry_id"`
	Subject   string `gorm:"index;size:64" json:"subject"`
	EventType string `gorm:"size:64" json:"event_type"`
	Payload   string `json:"payload"`
	Timestamp int64  `json:"timestamp"`
	Hash      string `gorm:"size:64" json:"hash"`
}

// TableName keeps the log table name stable across gorm naming changes.
func (EvidenceEntry) TableName() string { return "evidence_log" }

// TouristIdentity is the seeded identity directory row. Verification of
// these identities is an external concern; the registry only resolves.
type TouristIdentity struct {
	ID           string `gorm:"primaryKey;size:16" json:"id"`
	Name         string `json:"name"`
	HomeLocation string `json:"home_location"`
	Phone        string `json:"phone"`
	Language     string `json:"language"`
}

func (TouristIdentity) TableName() string { return "tourist_identities" }

// EmergencyService is a dialable national service, returned in the
// connect ack.
type EmergencyService struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Priority int    `json:"priority"`
}
