// Package config loads the hub's YAML configuration.
package config

import "time"

// HubConfig is the root configuration for a hub instance.
type HubConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Sessions SessionsConfig `yaml:"sessions"`
	Journal  JournalConfig  `yaml:"journal"`
	Database DBConfig       `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies this hub.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	WSPath          string        `yaml:"ws_path"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // Empty allows any origin
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UploadsConfig limits the ingestion endpoint.
type UploadsConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// SessionsConfig holds per-connection settings.
type SessionsConfig struct {
	IdentifyTimeout      time.Duration `yaml:"identify_timeout"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	PongWait             time.Duration `yaml:"pong_wait"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	MaxInboundFrameBytes int64         `yaml:"max_inbound_frame_bytes"`
	QueueInitialCapacity int           `yaml:"queue_initial_capacity"`
	MaxQueueDepth        int           `yaml:"max_queue_depth"` // 0 = unbounded
}

// JournalConfig holds delivery journal batch settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"` // nil means enabled
	Path    string `yaml:"path"`
}

// IsEnabled reports whether /metrics should be served.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
