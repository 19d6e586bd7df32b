package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID           = "filedrop-hub"
	DefaultListenAddr           = ":8765"
	DefaultWSPath               = "/ws"
	DefaultReadTimeout          = 60 * time.Second
	DefaultWriteTimeout         = 60 * time.Second
	DefaultShutdownTimeout      = 10 * time.Second
	DefaultUploadMaxBytes       = 256 << 20
	DefaultIdentifyTimeout      = 10 * time.Second
	DefaultPingInterval         = 30 * time.Second
	DefaultPongWait             = 75 * time.Second
	DefaultFrameWriteTimeout    = 30 * time.Second
	DefaultMaxInboundFrameBytes = 64 << 10
	DefaultQueueInitialCapacity = 16
	DefaultBatchSize            = 500
	DefaultFlushInterval        = 1 * time.Second
	DefaultBufferSize           = 10000
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultMetricsPath          = "/metrics"
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
)

// ApplyDefaults fills every unset optional field.
func (c *HubConfig) ApplyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Server
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Uploads.MaxBytes == 0 {
		c.Uploads.MaxBytes = DefaultUploadMaxBytes
	}

	// Sessions
	if c.Sessions.IdentifyTimeout == 0 {
		c.Sessions.IdentifyTimeout = DefaultIdentifyTimeout
	}
	if c.Sessions.PingInterval == 0 {
		c.Sessions.PingInterval = DefaultPingInterval
	}
	if c.Sessions.PongWait == 0 {
		c.Sessions.PongWait = DefaultPongWait
	}
	if c.Sessions.WriteTimeout == 0 {
		c.Sessions.WriteTimeout = DefaultFrameWriteTimeout
	}
	if c.Sessions.MaxInboundFrameBytes == 0 {
		c.Sessions.MaxInboundFrameBytes = DefaultMaxInboundFrameBytes
	}
	if c.Sessions.QueueInitialCapacity == 0 {
		c.Sessions.QueueInitialCapacity = DefaultQueueInitialCapacity
	}

	// Journal
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	applyDBDefaults(&c.Database)

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
