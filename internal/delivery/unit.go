package delivery

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rickgao/filedrop/internal/queue"
)

// Errors
var (
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrInvalidIdentity   = errors.New("invalid identity")
	ErrProtocolViolation = errors.New("protocol violation")
)

// Unit is one file routed to one client. Treat as immutable.
type Unit struct {
	ID       uuid.UUID // Local correlation ID, never sent on the wire
	Filename string    // Sent as the text frame
	Payload  []byte    // Sent as the binary frame
	QueuedAt time.Time
}

// Size returns the payload length in bytes.
func (u Unit) Size() int {
	return len(u.Payload)
}

// NewUnit builds a Unit with a fresh ID.
// The filename must be non-empty UTF-8 since it travels in a text frame.
func NewUnit(filename string, payload []byte) (Unit, error) {
	if filename == "" || !utf8.ValidString(filename) {
		return Unit{}, ErrInvalidFilename
	}
	return Unit{
		ID:       uuid.New(),
		Filename: filename,
		Payload:  payload,
		QueuedAt: time.Now(),
	}, nil
}

// Sink is the ordered queue of Units a session drains to its connection.
// It has exactly one consumer: the session's write task.
type Sink = queue.Growable[Unit]

// NewSink creates a sink. maxDepth of 0 leaves the sink unbounded.
func NewSink(initialCapacity, maxDepth int) *Sink {
	return queue.NewCapped[Unit](initialCapacity, maxDepth)
}
