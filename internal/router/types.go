package router

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrTargetNotFound = errors.New("target not found")
	ErrQueueFull      = errors.New("target delivery queue full")
)

// Receipt describes an accepted delivery.
type Receipt struct {
	ID       uuid.UUID `json:"id"`
	Target   string    `json:"target"`
	Filename string    `json:"filename"`
	Size     int       `json:"size"`
	QueuedAt time.Time `json:"queued_at"`
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	Requests       int64
	Queued         int64
	TargetNotFound int64
	Rejected       int64
	Dropped        int64
	Invalid        int64
}
