package delivery

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is what happened to a delivery at one point of its life.
type Outcome string

const (
	OutcomeQueued         Outcome = "queued"           // enqueued on the target's sink
	OutcomeWritten        Outcome = "written"          // both frames written to the socket
	OutcomeTargetNotFound Outcome = "target_not_found" // no client registered under the target
	OutcomeRejected       Outcome = "rejected"         // sink at its depth cap
	OutcomeDropped        Outcome = "dropped"          // sink closed before the unit was written
)

// Event records one outcome of one delivery.
type Event struct {
	DeliveryID uuid.UUID // uuid.Nil when no Unit was built
	Target     string
	Filename   string
	Size       int
	Outcome    Outcome
	At         time.Time
}

// NewEvent builds an Event for u stamped with the current time.
func NewEvent(target string, u Unit, outcome Outcome) Event {
	return Event{
		DeliveryID: u.ID,
		Target:     target,
		Filename:   u.Filename,
		Size:       u.Size(),
		Outcome:    outcome,
		At:         time.Now(),
	}
}

// Recorder observes delivery events. Implementations must not block.
type Recorder interface {
	Record(Event)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Event)

func (f RecorderFunc) Record(e Event) {
	f(e)
}

// NopRecorder discards events.
type NopRecorder struct{}

func (NopRecorder) Record(Event) {}

// MultiRecorder fans an event out to several recorders in order.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(e Event) {
	for _, r := range m {
		if r != nil {
			r.Record(e)
		}
	}
}
