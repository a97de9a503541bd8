package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/tribixbite/imaginize/internal/events"
)

// Recorder is an in-process, append-only store of Metrics. Metrics live
// in memory for the life of one process and are surfaced to observers as
// progress-log events rather than persisted.
type Recorder struct {
	mu      sync.Mutex
	metrics []Metric
	bus     *events.Bus
}

// NewRecorder creates a Recorder. A nil bus records without publishing.
func NewRecorder(bus *events.Bus) *Recorder {
	return &Recorder{bus: bus}
}

// Record appends m, stamping CreatedAt if unset, and (when a bus was
// configured) emits a progress-log event summarizing it.
func (r *Recorder) Record(m Metric) Metric {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.metrics = append(r.metrics, m)
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.ProgressLog(m.Stage, summarize(m))
	}
	return m
}

// Query returns a Query over a snapshot of the metrics recorded so far.
func (r *Recorder) Query() *Query {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]Metric, len(r.metrics))
	copy(snapshot, r.metrics)
	return &Query{metrics: snapshot}
}

func summarize(m Metric) string {
	line := m.Provider
	if m.Model != "" {
		line += "/" + m.Model
	}
	if m.TotalTokens > 0 {
		line += " tokens=" + strconv.FormatInt(m.TotalTokens, 10)
	}
	if !m.Success {
		line += " error=" + m.ErrorType
	}
	return line
}
