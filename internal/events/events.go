// Package events implements the progress/event bus: an append-only text
// log plus an in-process, non-blocking pub/sub so
// observers (the CLI, a future dashboard) can watch a run without the
// pipeline blocking on them.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the pipeline's event kinds.
type Kind string

const (
	KindPhaseStart      Kind = "phase-start"
	KindPhaseComplete   Kind = "phase-complete"
	KindChapterStart    Kind = "chapter-start"
	KindChapterComplete Kind = "chapter-complete"
	KindImageComplete   Kind = "image-complete"
	KindRateLimit       Kind = "rate-limit"
	KindProgressLog     Kind = "progress-log"
)

// Event is a single pipeline occurrence. Fields beyond Kind/Timestamp are
// populated as relevant to the kind; the zero value of an unused field is
// simply omitted from rendering.
type Event struct {
	ID           string
	Kind         Kind
	Timestamp    time.Time
	Phase        string
	ChapterIndex int
	Message      string
}

// newEvent stamps an ID and a UTC timestamp; every event on the bus goes
// through here so neither stamp is ever left to the caller to forget.
func newEvent(kind Kind, phase string, chapterIndex int, message string) Event {
	return Event{
		ID:           uuid.NewString(),
		Kind:         kind,
		Timestamp:    time.Now().UTC(),
		Phase:        phase,
		ChapterIndex: chapterIndex,
		Message:      message,
	}
}
