package session

import (
	"errors"
	"time"
)

// ErrIdentifyTimeout is returned by Run when the client never declares an identity.
var ErrIdentifyTimeout = errors.New("no identity declared in time")

// Conn is the part of *websocket.Conn a session uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Config configures a client session.
type Config struct {
	IdentifyTimeout      time.Duration // Max wait for the ID: frame after connect
	PingInterval         time.Duration // Keepalive ping period (0 disables pings)
	PongWait             time.Duration // Max silence before the peer is considered gone
	WriteTimeout         time.Duration // Write deadline per frame
	QueueInitialCapacity int           // Initial sink ring size
	MaxQueueDepth        int           // Sink cap; 0 = unbounded
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		IdentifyTimeout:      10 * time.Second,
		PingInterval:         30 * time.Second,
		PongWait:             75 * time.Second,
		WriteTimeout:         30 * time.Second,
		QueueInitialCapacity: 16,
		MaxQueueDepth:        0,
	}
}
