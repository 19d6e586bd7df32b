package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *HubConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return fmt.Errorf("server.ws_path must start with /, got %q", c.Server.WSPath)
	}

	if c.Uploads.MaxBytes < 1 {
		return errors.New("uploads.max_bytes must be >= 1")
	}

	if c.Sessions.IdentifyTimeout < 0 {
		return errors.New("sessions.identify_timeout must be >= 0")
	}
	if c.Sessions.PingInterval < 0 {
		return errors.New("sessions.ping_interval must be >= 0")
	}
	if c.Sessions.PingInterval > 0 && c.Sessions.PongWait <= c.Sessions.PingInterval {
		return fmt.Errorf("sessions.pong_wait (%s) must exceed sessions.ping_interval (%s)",
			c.Sessions.PongWait, c.Sessions.PingInterval)
	}
	if c.Sessions.MaxInboundFrameBytes < 1 {
		return errors.New("sessions.max_inbound_frame_bytes must be >= 1")
	}
	if c.Sessions.QueueInitialCapacity < 1 {
		return errors.New("sessions.queue_initial_capacity must be >= 1")
	}
	if c.Sessions.MaxQueueDepth < 0 {
		return errors.New("sessions.max_queue_depth must be >= 0")
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Metrics.IsEnabled() && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
