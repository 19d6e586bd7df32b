package receiver

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNoHubURL   = errors.New("hub url is required")
	ErrNoIdentity = errors.New("identity is required")
	ErrNoDir      = errors.New("download directory is required")
)

// Config configures a receiver.
type Config struct {
	HubURL            string        // ws:// or wss:// URL of the hub's WebSocket path
	Identity          string        // Name other devices target
	Dir               string        // Where received files are saved
	HandshakeTimeout  time.Duration // Dial + upgrade timeout
	ReadTimeout       time.Duration // Max silence (no frame or ping) before reconnecting
	WriteTimeout      time.Duration // Deadline for the identity frame and pongs
	MaxFrameBytes     int64         // Largest accepted frame (0 = unlimited)
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
}

// DefaultConfig returns sensible defaults. HubURL, Identity and Dir must
// still be set.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReconnectBaseWait: 500 * time.Millisecond,
		ReconnectMaxWait:  30 * time.Second,
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.HubURL == "" {
		return ErrNoHubURL
	}
	if c.Identity == "" {
		return ErrNoIdentity
	}
	if c.Dir == "" {
		return ErrNoDir
	}
	return nil
}

// Stats contains runtime statistics.
type Stats struct {
	Connects    int64
	Disconnects int64
	FilesSaved  int64
	BytesSaved  int64
	SaveErrors  int64
	Violations  int64
	Connected   bool
	LastSavedAs string
	LastSavedAt time.Time
	LastError   string
}
