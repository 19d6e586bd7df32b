package delivery

import (
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
)

// IdentityPrefix starts the identity declaration frame.
const IdentityPrefix = "ID:"

// Frame types, as defined by the WebSocket transport.
const (
	TextFrame   = websocket.TextMessage
	BinaryFrame = websocket.BinaryMessage
)

// FrameWriter writes one discrete application frame.
// *websocket.Conn satisfies it.
type FrameWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// IdentityFrame returns the declaration frame for identity.
func IdentityFrame(identity string) []byte {
	return []byte(IdentityPrefix + identity)
}

// ParseIdentity extracts the identity from a declaration frame.
// The identity is trimmed of surrounding whitespace and must not be empty.
func ParseIdentity(messageType int, data []byte) (string, error) {
	if messageType != TextFrame {
		return "", fmt.Errorf("%w: expected identity text frame, got frame type %d", ErrProtocolViolation, messageType)
	}
	s := string(data)
	if !strings.HasPrefix(s, IdentityPrefix) {
		return "", fmt.Errorf("%w: first frame missing %q prefix", ErrProtocolViolation, IdentityPrefix)
	}
	identity := strings.TrimSpace(strings.TrimPrefix(s, IdentityPrefix))
	if identity == "" {
		return "", fmt.Errorf("%w: %w", ErrProtocolViolation, ErrInvalidIdentity)
	}
	return identity, nil
}

// WriteUnit writes u as its frame pair: filename text frame, then payload
// binary frame. The caller must be the only writer of data frames on w.
func WriteUnit(w FrameWriter, u Unit) error {
	if err := w.WriteMessage(TextFrame, []byte(u.Filename)); err != nil {
		return fmt.Errorf("write filename frame: %w", err)
	}
	if err := w.WriteMessage(BinaryFrame, u.Payload); err != nil {
		return fmt.Errorf("write payload frame: %w", err)
	}
	return nil
}

// Pairer reassembles Units on the receiving side.
//
// The most recent unconsumed text frame is paired with the next binary frame.
// Two text frames in a row, or a binary frame with no pending filename, are
// protocol violations: the orphaned filename or payload is dropped and
// pairing continues.
type Pairer struct {
	pending    string
	hasPending bool
}

// Accept feeds one frame. It returns a completed Unit and true when data
// closes a pair. A non-nil error wraps ErrProtocolViolation and is
// recoverable.
func (p *Pairer) Accept(messageType int, data []byte) (Unit, bool, error) {
	switch messageType {
	case TextFrame:
		var err error
		if p.hasPending {
			err = fmt.Errorf("%w: filename %q superseded before its payload", ErrProtocolViolation, p.pending)
		}
		p.pending = string(data)
		p.hasPending = true
		return Unit{}, false, err

	case BinaryFrame:
		if !p.hasPending {
			return Unit{}, false, fmt.Errorf("%w: %d byte payload without filename", ErrProtocolViolation, len(data))
		}
		u := Unit{Filename: p.pending, Payload: data}
		p.pending = ""
		p.hasPending = false
		return u, true, nil

	default:
		return Unit{}, false, nil
	}
}

// Pending reports the filename waiting for its payload, if any.
func (p *Pairer) Pending() (string, bool) {
	return p.pending, p.hasPending
}

// Reset forgets any pending filename, e.g. after a reconnect.
func (p *Pairer) Reset() {
	p.pending = ""
	p.hasPending = false
}
