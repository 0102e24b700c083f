package ws

import (
	"fmt"
	"time"

	"SafeTrail/pkg/util"
)

// Config tunes the websocket hub.
type Config struct {
	MaxConnections    int64
	HeartbeatInterval time.Duration
	ConnectionTimeout time.Duration
	MessageBufferSize int
	ReadBufferSize    int
	WriteBufferSize   int
	MaxMessageSize    int
	EnableCompression bool
	// backpressure policy
	DropOnFull          bool
	CloseOnBackpressure bool
	SendTimeout         time.Duration
}

// DefaultConfig sizes the hub for a single-process safety service.
func DefaultConfig() *Config {
	return &Config{
		MaxConnections:      10000,
		HeartbeatInterval:   30 * time.Second,
		ConnectionTimeout:   60 * time.Second,
		MessageBufferSize:   256,
		ReadBufferSize:      1024,
		WriteBufferSize:     1024,
		MaxMessageSize:      4096,
		EnableCompression:   true,
		DropOnFull:          true,
		CloseOnBackpressure: false,
		SendTimeout:         50 * time.Millisecond,
	}
}

// LoadConfigFromEnv overlays environment values onto the defaults.
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()

	if maxConnections := util.GetIntEnv(EnvWSMaxConnections); maxConnections > 0 {
		config.MaxConnections = maxConnections
	}
	if heartbeat := util.GetIntEnv(EnvWSHeartbeatInterval); heartbeat > 0 {
		config.HeartbeatInterval = time.Duration(heartbeat) * time.Second
	}
	if timeout := util.GetIntEnv(EnvWSConnectionTimeout); timeout > 0 {
		config.ConnectionTimeout = time.Duration(timeout) * time.Second
	}
	if bufSize := util.GetIntEnv(EnvWSMessageBufferSize); bufSize > 0 {
		config.MessageBufferSize = int(bufSize)
	}
	if readBuf := util.GetIntEnv(EnvWSReadBufferSize); readBuf > 0 {
		config.ReadBufferSize = int(readBuf)
	}
	if writeBuf := util.GetIntEnv(EnvWSWriteBufferSize); writeBuf > 0 {
		config.WriteBufferSize = int(writeBuf)
	}
	if maxMsg := util.GetIntEnv(EnvWSMaxMessageSize); maxMsg > 0 {
		config.MaxMessageSize = int(maxMsg)
	}
	if compression := util.GetEnv(EnvWSEnableCompression); compression != "" {
		config.EnableCompression = compression == "true" || compression == "1"
	}
	if dropOnFull := util.GetEnv(EnvWSDropOnFull); dropOnFull != "" {
		config.DropOnFull = dropOnFull == "true" || dropOnFull == "1"
	}
	if closeOnBp := util.GetEnv(EnvWSCloseOnBackpressure); closeOnBp != "" {
		config.CloseOnBackpressure = closeOnBp == "true" || closeOnBp == "1"
	}
	if sendTimeoutMs := util.GetIntEnv(EnvWSSendTimeoutMs); sendTimeoutMs > 0 {
		config.SendTimeout = time.Duration(sendTimeoutMs) * time.Millisecond
	}

	return config
}

// ValidateConfig rejects configurations the hub cannot run with.
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config must not be nil")
	}
	if config.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be positive")
	}
	if config.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if config.ConnectionTimeout <= 0 {
		return fmt.Errorf("connection timeout must be positive")
	}
	if config.MessageBufferSize <= 0 {
		return fmt.Errorf("message buffer size must be positive")
	}
	if config.ReadBufferSize <= 0 || config.WriteBufferSize <= 0 {
		return fmt.Errorf("read/write buffer sizes must be positive")
	}
	if config.MaxMessageSize <= 0 {
		return fmt.Errorf("max message size must be positive")
	}
	if config.HeartbeatInterval >= config.ConnectionTimeout {
		return fmt.Errorf("heartbeat interval must be below connection timeout")
	}
	if config.CloseOnBackpressure && !config.DropOnFull && config.SendTimeout <= 0 {
		return fmt.Errorf("close-on-backpressure requires a send timeout")
	}
	return nil
}
