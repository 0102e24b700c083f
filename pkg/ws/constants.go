package ws

// Environment keys for hub configuration.
const (
	EnvWSMaxConnections      = "WS_MAX_CONNECTIONS"
	EnvWSHeartbeatInterval   = "WS_HEARTBEAT_INTERVAL"
	EnvWSConnectionTimeout   = "WS_CONNECTION_TIMEOUT"
	EnvWSMessageBufferSize   = "WS_MESSAGE_BUFFER_SIZE"
	EnvWSReadBufferSize      = "WS_READ_BUFFER_SIZE"
	EnvWSWriteBufferSize     = "WS_WRITE_BUFFER_SIZE"
	EnvWSMaxMessageSize      = "WS_MAX_MESSAGE_SIZE"
	EnvWSEnableCompression   = "WS_ENABLE_COMPRESSION"
	EnvWSDropOnFull          = "WS_DROP_ON_FULL"
	EnvWSCloseOnBackpressure = "WS_CLOSE_ON_BACKPRESSURE"
	EnvWSSendTimeoutMs       = "WS_SEND_TIMEOUT_MS"
)

// Inbound message types understood by the gateway.
const (
	MsgConnect        = "connect"
	MsgHeartbeat      = "heartbeat"
	MsgLocationUpdate = "location_update"
	MsgSOSTrigger     = "sos_trigger"
)

// Outbound event names.
const (
	EvtConnectionAck    = "connection_ack"
	EvtConnectionError  = "connection_error"
	EvtHeartbeatAck     = "heartbeat_ack"
	EvtZoneAlert        = "zone_alert"
	EvtSOSAck           = "sos_ack"
	EvtSOSBroadcast     = "sos_broadcast"
	EvtNewSOSAlert      = "new_sos_alert"
	EvtSOSEtaUpdate     = "sos_eta_update"
	EvtSOSResolved      = "sos_resolved"
	EvtSessionsSnapshot = "sessions_snapshot"
	EvtStatsSnapshot    = "stats_snapshot"
	EvtForcedDisconnect = "forced_disconnect"
	EvtZonesUpdated     = "zones_updated"
)
