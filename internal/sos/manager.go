package sos

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"SafeTrail/internal/fanout"
	"SafeTrail/internal/models"
	"SafeTrail/pkg/logger"
	"SafeTrail/pkg/metrics"
	"SafeTrail/pkg/ws"
)

// Assigner is the responder-matching contract consulted once per
// trigger.
type Assigner interface {
	Assign(coord models.Coordinate, helpType string) (responderID string, etaMinutes int)
	Release(responderID string) bool
}

// Recorder appends to the evidence log.
type Recorder interface {
	Append(subject, eventType string, payload interface{}) (*models.EvidenceEntry, error)
}

type alertState struct {
	alert    *models.SOSAlert
	done     chan struct{}
	stopOnce sync.Once
}

func (s *alertState) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Manager drives each SOS from trigger to resolution: one responder
// match at trigger time, then a per-alert cancellable ETA-decay ticker.
// Status only moves forward; a resolved alert leaves the active table
// for the history list.
type Manager struct {
	mu      sync.Mutex
	active  map[string]*alertState
	history []models.SOSAlert

	assigner Assigner
	recorder Recorder
	pub      fanout.Publisher

	tickInterval time.Duration
	// wall duration of one ETA "minute"; shortened in tests
	minute time.Duration
}

func NewManager(assigner Assigner, recorder Recorder, pub fanout.Publisher, tickInterval, minute time.Duration) *Manager {
	if tickInterval <= 0 {
		tickInterval = 30 * time.Second
	}
	if minute <= 0 {
		minute = time.Minute
	}
	return &Manager{
		active:       make(map[string]*alertState),
		assigner:     assigner,
		recorder:     recorder,
		pub:          pub,
		tickInterval: tickInterval,
		minute:       minute,
	}
}

// Trigger creates an independent alert (no one-alert-per-identity
// limit), matches a responder, transitions to dispatched, and starts the
// ETA ticker.
func (m *Manager) Trigger(record *models.ConnectionRecord, coord models.Coordinate, helpType, message string) (*models.SOSAlert, error) {
	if helpType == "" {
		helpType = "general"
	}
	if message == "" {
		message = "Emergency SOS activated"
	}

	now := time.Now()
	alert := &models.SOSAlert{
		ID:          uuid.NewString(),
		Identity:    record.Identity,
		Name:        record.Name,
		HelpType:    helpType,
		Message:     message,
		Coordinates: coord,
		Location:    record.Location,
		Status:      models.SOSTriggered,
		TriggeredAt: now,
	}

	m.record(alert.Identity, "sos_triggered", map[string]interface{}{
		"sos_id": alert.ID, "help_type": helpType, "coordinates": coord,
	})

	responderID, eta := m.assigner.Assign(coord, helpType)
	alert.ResponderID = responderID
	alert.EtaAtDispatch = eta
	alert.EtaRemaining = eta
	alert.Status = models.SOSDispatched
	alert.DispatchedAt = time.Now()

	m.record(alert.Identity, "sos_dispatched", map[string]interface{}{
		"sos_id": alert.ID, "responder_id": responderID, "eta_minutes": eta,
	})

	state := &alertState{alert: alert, done: make(chan struct{})}
	m.mu.Lock()
	m.active[alert.ID] = state
	m.mu.Unlock()

	metrics.SOSTotal.Inc()
	logger.L.Info("sos dispatched",
		zap.String("sos", alert.ID),
		zap.String("identity", alert.Identity),
		zap.String("responder", responderID),
		zap.Int("eta_minutes", eta))

	if m.pub != nil {
		m.pub.Publish(ws.EvtNewSOSAlert, alert, fanout.ToRole(models.RoleDashboard))
		m.pub.Publish(ws.EvtSOSBroadcast, map[string]interface{}{
			"id": alert.ID, "name": alert.Name, "location": alert.Location, "time": alert.TriggeredAt,
		}, fanout.ToAll())
	}

	go m.runTicker(state)

	copied := *alert
	return &copied, nil
}

func (m *Manager) runTicker(state *alertState) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-state.done:
			return
		case <-ticker.C:
			if m.tick(state) {
				return
			}
		}
	}
}

// tick recomputes the remaining ETA from elapsed time. Returns true once
// the alert resolves and the ticker must stop.
func (m *Manager) tick(state *alertState) bool {
	m.mu.Lock()
	alert := state.alert
	if _, ok := m.active[alert.ID]; !ok {
		// resolved or cancelled between the tick firing and now
		m.mu.Unlock()
		return true
	}

	elapsed := int(time.Since(alert.DispatchedAt) / m.minute)
	remaining := alert.EtaAtDispatch - elapsed
	if remaining < 0 {
		remaining = 0
	}

	if remaining > 0 {
		firstEnRoute := alert.Status != models.SOSEnRoute
		alert.Status = models.SOSEnRoute
		alert.EtaRemaining = remaining
		copied := *alert
		m.mu.Unlock()

		if firstEnRoute {
			m.record(copied.Identity, "sos_en_route", map[string]interface{}{
				"sos_id": copied.ID, "eta_minutes": remaining,
			})
		}
		m.publishEta(&copied)
		return false
	}

	m.resolveLocked(state, "eta elapsed")
	return true
}

// resolveLocked finalizes an alert. Caller holds m.mu; it is released
// before publishing.
func (m *Manager) resolveLocked(state *alertState, reason string) {
	alert := state.alert
	now := time.Now()
	alert.Status = models.SOSResolved
	alert.EtaRemaining = 0
	alert.ResolvedAt = &now

	delete(m.active, alert.ID)
	m.history = append(m.history, *alert)
	copied := *alert
	m.mu.Unlock()

	state.stop()
	if copied.ResponderID != "" {
		m.assigner.Release(copied.ResponderID)
	}
	metrics.SOSResolved.Inc()
	m.record(copied.Identity, "sos_resolved", map[string]interface{}{
		"sos_id": copied.ID, "reason": reason,
	})
	logger.L.Info("sos resolved",
		zap.String("sos", copied.ID),
		zap.String("reason", reason))

	if m.pub != nil {
		m.pub.Publish(ws.EvtSOSResolved, map[string]interface{}{
			"sos_id": copied.ID, "message_key": "help_arrived",
		}, fanout.ToIdentity(copied.Identity))
		m.pub.Publish(ws.EvtSOSResolved, copied, fanout.ToRole(models.RoleDashboard))
	}
}

// Resolve finalizes an active alert from the admin surface. The ticker
// stops synchronously before the alert leaves the active table, so a
// stale tick cannot revive it. Idempotent: false when the alert is not
// active.
func (m *Manager) Resolve(id string) bool {
	return m.abort(id, "resolved externally")
}

// Cancel aborts an alert that turned out not to need a response. Same
// terminal state as Resolve, recorded under its own reason.
func (m *Manager) Cancel(id string) bool {
	return m.abort(id, "cancelled")
}

func (m *Manager) abort(id, reason string) bool {
	m.mu.Lock()
	state, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	state.stop()
	m.resolveLocked(state, reason)
	return true
}

// Active copies the in-flight alerts.
func (m *Manager) Active() []models.SOSAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SOSAlert, 0, len(m.active))
	for _, state := range m.active {
		out = append(out, *state.alert)
	}
	return out
}

// History copies the resolved alerts, oldest first.
func (m *Manager) History() []models.SOSAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SOSAlert, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Manager) publishEta(alert *models.SOSAlert) {
	if m.pub == nil {
		return
	}
	payload := map[string]interface{}{
		"sos_id": alert.ID, "eta_minutes": alert.EtaRemaining, "status": alert.Status,
	}
	m.pub.Publish(ws.EvtSOSEtaUpdate, payload, fanout.ToIdentity(alert.Identity))
	m.pub.Publish(ws.EvtSOSEtaUpdate, payload, fanout.ToRole(models.RoleDashboard))
}

func (m *Manager) record(subject, eventType string, payload interface{}) {
	if m.recorder == nil {
		return
	}
	if _, err := m.recorder.Append(subject, eventType, payload); err != nil {
		logger.L.Error("evidence append failed",
			zap.String("event", eventType), zap.Error(err))
	}
}
