package gateway

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"SafeTrail/internal/evidence"
	"SafeTrail/internal/fanout"
	"SafeTrail/internal/fleet"
	"SafeTrail/internal/geofence"
	"SafeTrail/internal/identity"
	"SafeTrail/internal/registry"
	"SafeTrail/internal/sos"
	"SafeTrail/pkg/i18n"
	"SafeTrail/pkg/ws"
)

type testStack struct {
	hub   *ws.Hub
	gw    *Gateway
	reg   *registry.Registry
	chain *evidence.Chain
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, identity.Seed(db))

	directory, err := identity.NewDirectory(db, nil)
	require.NoError(t, err)
	chain, err := evidence.Open(db)
	require.NoError(t, err)

	translator, err := i18n.NewI18nSupport("en", "../../locales")
	require.NoError(t, err)
	zones := geofence.NewZoneStore()
	geofence.SeedDefaults(zones)
	engine := geofence.NewEngine(zones, translator)

	hub := ws.NewHub(nil)
	t.Cleanup(hub.Close)
	pub := fanout.NewHubPublisher(hub)

	fl := fleet.NewStore(2.0, 1)
	reg := registry.New(directory, chain, pub, time.Minute)
	mgr := sos.NewManager(fl, chain, pub, time.Hour, time.Hour)

	gw := New(hub, reg, engine, mgr, chain)
	hub.SetGateway(gw)

	return &testStack{hub: hub, gw: gw, reg: reg, chain: chain}
}

func newFakeConn(id string) *ws.Connection {
	return &ws.Connection{ID: id, Send: make(chan []byte, 32), IsAlive: true, LastPing: time.Now()}
}

func inbound(t *testing.T, msgType string, data interface{}) *ws.InboundMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &ws.InboundMessage{Type: msgType, Data: raw}
}

func drainEvents(conn *ws.Connection) []ws.Event {
	var out []ws.Event
	for {
		select {
		case raw := <-conn.Send:
			var evt ws.Event
			if json.Unmarshal(raw, &evt) == nil {
				out = append(out, evt)
			}
		default:
			return out
		}
	}
}

func findEvent(events []ws.Event, name string) (ws.Event, bool) {
	for _, e := range events {
		if e.Event == name {
			return e, true
		}
	}
	return ws.Event{}, false
}

func TestConnectKnownIdentity(t *testing.T) {
	stack := newTestStack(t)
	conn := newFakeConn("conn_1")

	stack.gw.OnMessage(conn, inbound(t, ws.MsgConnect, map[string]string{
		"touristId": "123456789012", "language": "hi",
	}))

	events := drainEvents(conn)
	ack, ok := findEvent(events, ws.EvtConnectionAck)
	require.True(t, ok, "expected connection_ack, got %v", events)

	data := ack.Data.(map[string]interface{})
	assert.Equal(t, "conn_1", data["sessionId"])
	assert.Equal(t, "John Doe", data["name"])
	assert.Equal(t, "hi", data["language"])
	assert.Contains(t, data, "serverTime")

	services := data["emergencyServices"].(map[string]interface{})
	police := services["police"].(map[string]interface{})
	assert.Equal(t, "100", police["phone"])

	record, found := stack.reg.Get("conn_1")
	require.True(t, found)
	assert.Equal(t, "John Doe", record.Name)
}

func TestConnectDisplacesOldSession(t *testing.T) {
	stack := newTestStack(t)
	first := newFakeConn("conn_1")
	second := newFakeConn("conn_2")

	stack.gw.OnMessage(first, inbound(t, ws.MsgConnect, map[string]string{
		"touristId": "123456789012",
	}))
	drainEvents(first)

	// the old socket may already be torn down when the replacement
	// arrives; eviction goes through the hub and must not panic
	stack.gw.OnMessage(second, inbound(t, ws.MsgConnect, map[string]string{
		"touristId": "123456789012",
	}))

	_, ok := findEvent(drainEvents(second), ws.EvtConnectionAck)
	require.True(t, ok)

	_, found := stack.reg.Get("conn_1")
	assert.False(t, found)
	record, found := stack.reg.Get("conn_2")
	require.True(t, found)
	assert.Equal(t, "123456789012", record.Identity)
}

func TestConnectUnknownIdentity(t *testing.T) {
	stack := newTestStack(t)
	conn := newFakeConn("conn_1")

	stack.gw.OnMessage(conn, inbound(t, ws.MsgConnect, map[string]string{
		"touristId": "000000000000",
	}))

	events := drainEvents(conn)
	errEvt, ok := findEvent(events, ws.EvtConnectionError)
	require.True(t, ok)
	assert.Equal(t, "identity_unknown", errEvt.Data.(map[string]interface{})["reason"])

	_, found := stack.reg.Get("conn_1")
	assert.False(t, found)
}

func TestHeartbeat(t *testing.T) {
	stack := newTestStack(t)
	conn := newFakeConn("conn_1")

	stack.gw.OnMessage(conn, inbound(t, ws.MsgConnect, map[string]string{"touristId": "123456789012"}))
	drainEvents(conn)

	stack.gw.OnMessage(conn, inbound(t, ws.MsgHeartbeat, map[string]string{}))
	_, ok := findEvent(drainEvents(conn), ws.EvtHeartbeatAck)
	assert.True(t, ok)

	// a heartbeat without a session is an error
	stray := newFakeConn("conn_2")
	stack.gw.OnMessage(stray, inbound(t, ws.MsgHeartbeat, map[string]string{}))
	errEvt, ok := findEvent(drainEvents(stray), ws.EvtConnectionError)
	require.True(t, ok)
	assert.Equal(t, "session_not_found", errEvt.Data.(map[string]interface{})["reason"])
}

func TestLocationUpdateFiresZoneAlert(t *testing.T) {
	stack := newTestStack(t)
	conn := newFakeConn("conn_1")

	stack.gw.OnMessage(conn, inbound(t, ws.MsgConnect, map[string]string{"touristId": "123456789012"}))
	drainEvents(conn)

	// the seeded danger zone is centered on these coordinates
	stack.gw.OnMessage(conn, inbound(t, ws.MsgLocationUpdate, map[string]interface{}{
		"latitude": 19.0760, "longitude": 72.8777, "location": "Mumbai",
	}))

	alert, ok := findEvent(drainEvents(conn), ws.EvtZoneAlert)
	require.True(t, ok)
	data := alert.Data.(map[string]interface{})
	assert.Equal(t, "danger", data["category"])
	assert.NotEmpty(t, data["message"])

	// the breach lands in the evidence log
	entries, err := stack.chain.BySubject(context.Background(), "123456789012")
	require.NoError(t, err)
	var types []string
	for _, e := range entries {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, "zone_breach")
}

func TestLocationUpdateOutsideZonesIsQuiet(t *testing.T) {
	stack := newTestStack(t)
	conn := newFakeConn("conn_1")

	stack.gw.OnMessage(conn, inbound(t, ws.MsgConnect, map[string]string{"touristId": "123456789012"}))
	drainEvents(conn)

	stack.gw.OnMessage(conn, inbound(t, ws.MsgLocationUpdate, map[string]interface{}{
		"latitude": 0.0, "longitude": 0.0,
	}))

	_, ok := findEvent(drainEvents(conn), ws.EvtZoneAlert)
	assert.False(t, ok)
}

func TestSOSTrigger(t *testing.T) {
	stack := newTestStack(t)
	conn := newFakeConn("conn_1")

	stack.gw.OnMessage(conn, inbound(t, ws.MsgConnect, map[string]string{"touristId": "123456789012"}))
	drainEvents(conn)

	stack.gw.OnMessage(conn, inbound(t, ws.MsgSOSTrigger, map[string]interface{}{
		"helpType": "ambulance", "message": "chest pain",
		"latitude": 19.0, "longitude": 72.8,
	}))

	ack, ok := findEvent(drainEvents(conn), ws.EvtSOSAck)
	require.True(t, ok)
	data := ack.Data.(map[string]interface{})
	assert.NotEmpty(t, data["sosId"])
	assert.Equal(t, "dispatched", data["status"])
	assert.Equal(t, "help_coming", data["messageKey"])
	assert.Greater(t, data["etaMinutes"].(float64), 0.0)

	stats := stack.reg.Stats()
	assert.Equal(t, int64(1), stats.TotalSOS)
}

func TestDisconnectRemovesSession(t *testing.T) {
	stack := newTestStack(t)
	conn := newFakeConn("conn_1")

	stack.gw.OnMessage(conn, inbound(t, ws.MsgConnect, map[string]string{"touristId": "123456789012"}))
	drainEvents(conn)

	stack.gw.OnDisconnect(conn, "transport closed")
	_, found := stack.reg.Get("conn_1")
	assert.False(t, found)
}
