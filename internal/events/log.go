package events

import (
	"fmt"
	"os"
	"time"

	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/store"
)

// appendLockTimeout bounds how long Append waits for the exclusive lock
// before giving up; the lock is held only for the duration of the append
// itself, never across a Publish fan-out.
const appendLockTimeout = 10 * time.Second

// Log is the append-only text log backing the event bus. Every line is one
// rendered Event; the file is opened in append mode under an exclusive
// lock held only long enough to write the line.
type Log struct {
	path string
}

// NewLog returns a Log that appends to path (created on first Append if
// missing).
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Append renders ev as one line and appends it to the log file under an
// exclusive lock.
func (l *Log) Append(ev Event) error {
	handle, err := store.AcquireLock(l.path, appendLockTimeout)
	if err != nil {
		return err
	}
	defer handle.Release()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return ierrors.New(ierrors.KindTransientIO, "events.Log.Append", err).WithPath(l.path)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, renderLine(ev)); err != nil {
		return ierrors.New(ierrors.KindTransientIO, "events.Log.Append", err).WithPath(l.path)
	}
	return nil
}

// renderLine formats an Event as a single plain-text line:
// "<RFC3339 timestamp> <kind> phase=<phase> chapter=<n> <message>".
func renderLine(ev Event) string {
	line := fmt.Sprintf("%s %s", ev.Timestamp.Format(time.RFC3339), ev.Kind)
	if ev.Phase != "" {
		line += fmt.Sprintf(" phase=%s", ev.Phase)
	}
	if ev.ChapterIndex > 0 {
		line += fmt.Sprintf(" chapter=%d", ev.ChapterIndex)
	}
	if ev.Message != "" {
		line += " " + ev.Message
	}
	return line
}

// Recorder wires a Bus to a Log: every published event is both delivered
// to subscribers and appended to the durable log. Log append failures are
// discarded rather than propagated, since a
// disk hiccup on the progress log must never abort the pipeline it is
// merely observing.
type Recorder struct {
	bus *Bus
	log *Log
	sub *Subscription

	done chan struct{}
}

// NewRecorder starts a goroutine draining bus's events into log. Call
// Stop to unsubscribe and wait for the drain goroutine to exit.
func NewRecorder(bus *Bus, log *Log) *Recorder {
	sub := bus.Subscribe()
	r := &Recorder{bus: bus, log: log, sub: sub, done: make(chan struct{})}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.sub.Events() {
		_ = r.log.Append(ev) // best-effort: a log write failure must not stall the pipeline
	}
}

// Stop unsubscribes from the bus and waits for the drain goroutine to
// finish flushing whatever was already queued.
func (r *Recorder) Stop() {
	r.sub.Unsubscribe()
	<-r.done
}
