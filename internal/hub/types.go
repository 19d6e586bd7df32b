package hub

import (
	"time"

	"github.com/rickgao/filedrop/internal/config"
	"github.com/rickgao/filedrop/internal/session"
)

// Config configures the hub server.
type Config struct {
	InstanceID           string
	ListenAddr           string
	WSPath               string
	AllowedOrigins       []string // Empty allows any origin
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	ShutdownTimeout      time.Duration
	MaxUploadBytes       int64
	MaxInboundFrameBytes int64
	MetricsEnabled       bool
	MetricsPath          string
	Session              session.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return FromConfig(config.Default())
}

// FromConfig maps the hub's file configuration onto the server config.
func FromConfig(cfg *config.HubConfig) Config {
	return Config{
		InstanceID:           cfg.Instance.ID,
		ListenAddr:           cfg.Server.ListenAddr,
		WSPath:               cfg.Server.WSPath,
		AllowedOrigins:       cfg.Server.AllowedOrigins,
		ReadTimeout:          cfg.Server.ReadTimeout,
		WriteTimeout:         cfg.Server.WriteTimeout,
		ShutdownTimeout:      cfg.Server.ShutdownTimeout,
		MaxUploadBytes:       cfg.Uploads.MaxBytes,
		MaxInboundFrameBytes: cfg.Sessions.MaxInboundFrameBytes,
		MetricsEnabled:       cfg.Metrics.IsEnabled(),
		MetricsPath:          cfg.Metrics.Path,
		Session: session.Config{
			IdentifyTimeout:      cfg.Sessions.IdentifyTimeout,
			PingInterval:         cfg.Sessions.PingInterval,
			PongWait:             cfg.Sessions.PongWait,
			WriteTimeout:         cfg.Sessions.WriteTimeout,
			QueueInitialCapacity: cfg.Sessions.QueueInitialCapacity,
			MaxQueueDepth:        cfg.Sessions.MaxQueueDepth,
		},
	}
}
