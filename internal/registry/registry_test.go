package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SafeTrail/internal/fanout"
	"SafeTrail/internal/models"
	"SafeTrail/pkg/errors"
	"SafeTrail/pkg/ws"
)

type fakeResolver struct {
	known map[string]*models.TouristIdentity
}

func (f *fakeResolver) Lookup(_ context.Context, id string) (*models.TouristIdentity, error) {
	if ident, ok := f.known[id]; ok {
		return ident, nil
	}
	return nil, errors.WithCodef(errors.CodeIdentityUnknown, "identity %s unknown", id)
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeRecorder) Append(subject, eventType string, _ interface{}) (*models.EvidenceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, subject+":"+eventType)
	return &models.EvidenceEntry{Subject: subject, EventType: eventType}, nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type published struct {
	event  string
	target fanout.Target
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(event string, _ interface{}, target fanout.Target) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{event: event, target: target})
}

func (f *fakePublisher) byName(name string) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, p := range f.events {
		if p.event == name {
			out = append(out, p)
		}
	}
	return out
}

func testRegistry(timeout time.Duration) (*Registry, *fakeRecorder, *fakePublisher) {
	resolver := &fakeResolver{known: map[string]*models.TouristIdentity{
		"123456789012": {ID: "123456789012", Name: "John Doe", HomeLocation: "Mumbai, India", Language: "en"},
		"987654321098": {ID: "987654321098", Name: "Jane Smith", HomeLocation: "Delhi, India", Language: "en"},
	}}
	recorder := &fakeRecorder{}
	pub := &fakePublisher{}
	return New(resolver, recorder, pub, timeout), recorder, pub
}

func TestConnectTourist(t *testing.T) {
	reg, recorder, pub := testRegistry(0)

	record, displaced, err := reg.Connect(context.Background(), "conn_1", "123456789012", models.RoleTourist, "")
	require.NoError(t, err)
	assert.Empty(t, displaced)
	assert.Equal(t, "John Doe", record.Name)
	assert.Equal(t, "Mumbai, India", record.Location)
	assert.Equal(t, "en", record.Language) // directory default fills the blank

	// login and session_issued both land in the evidence log
	assert.Equal(t, 2, recorder.count())
	assert.NotEmpty(t, pub.byName(ws.EvtSessionsSnapshot))
	assert.NotEmpty(t, pub.byName(ws.EvtStatsSnapshot))
}

func TestConnectUnknownIdentity(t *testing.T) {
	reg, recorder, _ := testRegistry(0)

	_, _, err := reg.Connect(context.Background(), "conn_1", "000000000000", models.RoleTourist, "en")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIdentityUnknown))

	// a rejected connect leaves no session and no evidence
	assert.Empty(t, reg.Snapshot())
	assert.Equal(t, 0, recorder.count())
}

func TestConnectDashboardSkipsDirectory(t *testing.T) {
	reg, _, _ := testRegistry(0)

	record, _, err := reg.Connect(context.Background(), "conn_1", "", models.RoleDashboard, "en")
	require.NoError(t, err)
	assert.Equal(t, "Dashboard", record.Name)
	assert.Equal(t, "Control Center", record.Location)
}

func TestConnectDisplacesPriorSession(t *testing.T) {
	reg, _, _ := testRegistry(0)

	_, _, err := reg.Connect(context.Background(), "conn_1", "123456789012", models.RoleTourist, "en")
	require.NoError(t, err)

	record, displaced, err := reg.Connect(context.Background(), "conn_2", "123456789012", models.RoleTourist, "en")
	require.NoError(t, err)
	assert.Equal(t, "conn_1", displaced)
	assert.Equal(t, "conn_2", record.SessionID)

	_, ok := reg.Get("conn_1")
	assert.False(t, ok)
	_, ok = reg.Get("conn_2")
	assert.True(t, ok)
	assert.Len(t, reg.Snapshot(), 1)
}

func TestHeartbeat(t *testing.T) {
	reg, _, _ := testRegistry(0)

	_, _, err := reg.Connect(context.Background(), "conn_1", "123456789012", models.RoleTourist, "en")
	require.NoError(t, err)

	seen, err := reg.Heartbeat("conn_1")
	require.NoError(t, err)
	assert.False(t, seen.IsZero())

	_, err = reg.Heartbeat("no_such")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSessionNotFound))
}

func TestUpdateLocation(t *testing.T) {
	reg, _, _ := testRegistry(0)

	_, _, err := reg.Connect(context.Background(), "conn_1", "123456789012", models.RoleTourist, "en")
	require.NoError(t, err)

	coord := models.Coordinate{Lat: 19.0760, Lng: 72.8777}
	record, err := reg.UpdateLocation("conn_1", coord, "Gateway of India")
	require.NoError(t, err)
	require.NotNil(t, record.Coordinates)
	assert.Equal(t, coord, *record.Coordinates)
	assert.Equal(t, "Gateway of India", record.Location)

	// the returned record is a copy, not shared registry state
	record.Coordinates.Lat = 0
	stored, ok := reg.Get("conn_1")
	require.True(t, ok)
	assert.Equal(t, 19.0760, stored.Coordinates.Lat)

	_, err = reg.UpdateLocation("no_such", coord, "")
	assert.True(t, errors.IsCode(err, errors.CodeSessionNotFound))
}

func TestDisconnectIdempotent(t *testing.T) {
	reg, _, _ := testRegistry(0)

	_, _, err := reg.Connect(context.Background(), "conn_1", "123456789012", models.RoleTourist, "en")
	require.NoError(t, err)

	assert.True(t, reg.Disconnect("conn_1", "client closed"))
	assert.False(t, reg.Disconnect("conn_1", "client closed"))
	assert.Empty(t, reg.Snapshot())
}

func TestSweepRemovesStaleSessions(t *testing.T) {
	reg, _, pub := testRegistry(50 * time.Millisecond)

	_, _, err := reg.Connect(context.Background(), "stale", "123456789012", models.RoleTourist, "en")
	require.NoError(t, err)
	_, _, err = reg.Connect(context.Background(), "fresh", "987654321098", models.RoleTourist, "en")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	_, err = reg.Heartbeat("fresh")
	require.NoError(t, err)

	removed := reg.Sweep()
	require.Len(t, removed, 1)
	assert.Equal(t, "stale", removed[0].SessionID)

	forced := pub.byName(ws.EvtForcedDisconnect)
	require.Len(t, forced, 1)
	assert.Equal(t, "123456789012", forced[0].target.Identity)

	// the swept identity can reconnect without displacing anyone
	_, displaced, err := reg.Connect(context.Background(), "conn_2", "123456789012", models.RoleTourist, "en")
	require.NoError(t, err)
	assert.Empty(t, displaced)

	snapshots := reg.Snapshot()
	assert.Len(t, snapshots, 2)
	for _, s := range snapshots {
		assert.NotEqual(t, "stale", s.SessionID)
	}
}

func TestSweepNoStale(t *testing.T) {
	reg, _, _ := testRegistry(time.Minute)

	_, _, err := reg.Connect(context.Background(), "conn_1", "123456789012", models.RoleTourist, "en")
	require.NoError(t, err)

	assert.Nil(t, reg.Sweep())
	assert.Len(t, reg.Snapshot(), 1)
}

func TestStats(t *testing.T) {
	reg, _, _ := testRegistry(0)

	_, _, err := reg.Connect(context.Background(), "conn_1", "123456789012", models.RoleTourist, "en")
	require.NoError(t, err)
	_, _, err = reg.Connect(context.Background(), "conn_2", "987654321098", models.RoleTourist, "en")
	require.NoError(t, err)
	reg.Disconnect("conn_1", "client closed")
	reg.NoteSOS()

	stats := reg.Stats()
	assert.Equal(t, int64(2), stats.TotalConnections)
	assert.Equal(t, int64(1), stats.ActiveConnections)
	assert.Equal(t, int64(1), stats.TotalSOS)
}
