package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"SafeTrail/internal/fanout"
	"SafeTrail/internal/models"
	"SafeTrail/pkg/errors"
	"SafeTrail/pkg/logger"
	"SafeTrail/pkg/metrics"
	"SafeTrail/pkg/ws"
)

// IdentityResolver is the external directory consulted on connect.
type IdentityResolver interface {
	Lookup(ctx context.Context, id string) (*models.TouristIdentity, error)
}

// Recorder appends to the evidence log.
type Recorder interface {
	Append(subject, eventType string, payload interface{}) (*models.EvidenceEntry, error)
}

// Registry owns all live ConnectionRecords. Every mutation republishes
// the session and stats snapshots to dashboards.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*models.ConnectionRecord
	byIdentity map[string]string // identity -> session id

	totalConnections int64
	totalSOS         int64
	startTime        time.Time

	resolver IdentityResolver
	recorder Recorder
	pub      fanout.Publisher
	timeout  time.Duration
}

func New(resolver IdentityResolver, recorder Recorder, pub fanout.Publisher, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Registry{
		sessions:   make(map[string]*models.ConnectionRecord),
		byIdentity: make(map[string]string),
		resolver:   resolver,
		recorder:   recorder,
		pub:        pub,
		timeout:    timeout,
		startTime:  time.Now(),
	}
}

// Connect registers a session. Tourists must resolve in the identity
// directory; dashboards connect unconditionally. An identity holds at
// most one live session: a second connect displaces the first, whose
// session id is returned so the transport can close it.
func (r *Registry) Connect(ctx context.Context, sessionID, identityID, role, lang string) (*models.ConnectionRecord, string, error) {
	now := time.Now()

	record := &models.ConnectionRecord{
		SessionID:   sessionID,
		Identity:    identityID,
		Role:        role,
		Language:    lang,
		ConnectedAt: now,
		LastSeen:    now,
		LastBeat:    now,
	}

	switch role {
	case models.RoleDashboard:
		record.Name = "Dashboard"
		record.Location = "Control Center"
	default:
		record.Role = models.RoleTourist
		ident, err := r.resolver.Lookup(ctx, identityID)
		if err != nil {
			return nil, "", err
		}
		record.Name = ident.Name
		record.Location = ident.HomeLocation
		if lang == "" {
			record.Language = ident.Language
		}
	}

	var displaced string
	r.mu.Lock()
	if identityID != "" {
		if old, ok := r.byIdentity[identityID]; ok {
			displaced = old
			delete(r.sessions, old)
		}
		r.byIdentity[identityID] = sessionID
	}
	r.sessions[sessionID] = record
	r.totalConnections++
	r.mu.Unlock()

	metrics.ConnectionsTotal.Inc()
	metrics.ActiveConnections.Set(float64(r.activeCount()))

	if r.recorder != nil {
		_, _ = r.recorder.Append(identityID, "login", map[string]interface{}{
			"role": record.Role, "name": record.Name,
		})
		_, _ = r.recorder.Append(identityID, "session_issued", map[string]interface{}{
			"session_id": sessionID,
		})
	}

	logger.L.Info("session connected",
		zap.String("session", sessionID),
		zap.String("identity", identityID),
		zap.String("role", record.Role))

	r.publishSnapshots()
	return r.copyOf(record), displaced, nil
}

// Heartbeat refreshes liveness and returns the acknowledgement time.
func (r *Registry) Heartbeat(sessionID string) (time.Time, error) {
	now := time.Now()

	r.mu.Lock()
	record, ok := r.sessions[sessionID]
	if ok {
		record.LastBeat = now
		record.LastSeen = now
	}
	r.mu.Unlock()

	if !ok {
		return time.Time{}, errors.WithCodef(errors.CodeSessionNotFound, "session %s not found", sessionID)
	}
	return now, nil
}

// UpdateLocation mutates the record's position. The caller feeds the new
// coordinate to the geofence engine.
func (r *Registry) UpdateLocation(sessionID string, coord models.Coordinate, displayLocation string) (*models.ConnectionRecord, error) {
	now := time.Now()

	r.mu.Lock()
	record, ok := r.sessions[sessionID]
	if ok {
		c := coord
		record.Coordinates = &c
		if displayLocation != "" {
			record.Location = displayLocation
		}
		record.LastSeen = now
	}
	var snapshot *models.ConnectionRecord
	if ok {
		snapshot = r.copyOf(record)
	}
	r.mu.Unlock()

	if !ok {
		return nil, errors.WithCodef(errors.CodeSessionNotFound, "session %s not found", sessionID)
	}

	r.publishSnapshots()
	return snapshot, nil
}

// Disconnect removes a session. A no-op when the session is already
// gone, so it races safely with the liveness sweep.
func (r *Registry) Disconnect(sessionID, reason string) bool {
	r.mu.Lock()
	record, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
		if record.Identity != "" && r.byIdentity[record.Identity] == sessionID {
			delete(r.byIdentity, record.Identity)
		}
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	metrics.ActiveConnections.Set(float64(r.activeCount()))
	logger.L.Info("session disconnected",
		zap.String("session", sessionID),
		zap.String("identity", record.Identity),
		zap.String("reason", reason))

	r.publishSnapshots()
	return true
}

// Sweep removes every session whose last heartbeat is older than the
// timeout, emitting forced_disconnect for each. Returns the removed
// records so the transport can close their sockets.
func (r *Registry) Sweep() []models.ConnectionRecord {
	now := time.Now()

	r.mu.Lock()
	var removed []models.ConnectionRecord
	for id, record := range r.sessions {
		if now.Sub(record.LastBeat) > r.timeout {
			removed = append(removed, *record)
			delete(r.sessions, id)
			if record.Identity != "" && r.byIdentity[record.Identity] == id {
				delete(r.byIdentity, record.Identity)
			}
		}
	}
	r.mu.Unlock()

	if len(removed) == 0 {
		return nil
	}

	for _, record := range removed {
		metrics.ForcedDisconnects.Inc()
		logger.L.Warn("liveness sweep removed session",
			zap.String("session", record.SessionID),
			zap.String("identity", record.Identity))
		if r.pub != nil && record.Identity != "" {
			r.pub.Publish(ws.EvtForcedDisconnect, map[string]interface{}{
				"session_id": record.SessionID,
				"reason":     "heartbeat timeout",
			}, fanout.ToIdentity(record.Identity))
		}
	}

	metrics.ActiveConnections.Set(float64(r.activeCount()))
	r.publishSnapshots()
	return removed
}

// Get returns a copy of one session record.
func (r *Registry) Get(sessionID string) (*models.ConnectionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return r.copyOf(record), true
}

// Snapshot copies every live session.
func (r *Registry) Snapshot() []models.ConnectionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ConnectionRecord, 0, len(r.sessions))
	for _, record := range r.sessions {
		out = append(out, *record)
	}
	return out
}

// Stats returns the aggregate connection totals.
func (r *Registry) Stats() models.ConnectionStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.ConnectionStats{
		TotalConnections:  r.totalConnections,
		ActiveConnections: int64(len(r.sessions)),
		TotalSOS:          r.totalSOS,
		StartTime:         r.startTime,
	}
}

// NoteSOS bumps the SOS total and refreshes the dashboard stats.
func (r *Registry) NoteSOS() {
	r.mu.Lock()
	r.totalSOS++
	r.mu.Unlock()
	r.publishSnapshots()
}

func (r *Registry) activeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) copyOf(record *models.ConnectionRecord) *models.ConnectionRecord {
	c := *record
	if record.Coordinates != nil {
		coord := *record.Coordinates
		c.Coordinates = &coord
	}
	return &c
}

// publishSnapshots pushes the session list and stats to dashboards.
// Called after every mutation, outside the registry lock.
func (r *Registry) publishSnapshots() {
	if r.pub == nil {
		return
	}
	r.pub.Publish(ws.EvtSessionsSnapshot, r.Snapshot(), fanout.ToRole(models.RoleDashboard))
	r.pub.Publish(ws.EvtStatsSnapshot, r.Stats(), fanout.ToRole(models.RoleDashboard))
}
