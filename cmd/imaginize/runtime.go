package main

import (
	"log/slog"
	"path/filepath"

	"github.com/tribixbite/imaginize/internal/aiclient"
	"github.com/tribixbite/imaginize/internal/bookparse"
	"github.com/tribixbite/imaginize/internal/config"
	"github.com/tribixbite/imaginize/internal/events"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/metrics"
	"github.com/tribixbite/imaginize/internal/scheduler"
)

// bookRuntime bundles everything a phase subcommand needs beyond its own
// Config: the loaded configuration, the AI client, the scheduler, the
// event bus (already draining to bookDir/progress.md), and the metrics
// recorder. Close stops the event-log drain goroutine; callers defer it
// immediately after a successful newBookRuntime.
type bookRuntime struct {
	Config    *config.Config
	Client    aiclient.Client
	Scheduler *scheduler.Scheduler
	Bus       *events.Bus
	Metrics   *metrics.Recorder
	Logger    *slog.Logger

	logRecorder *events.Recorder
}

// Close stops the progress-log drain goroutine.
func (r *bookRuntime) Close() {
	r.logRecorder.Stop()
}

// newBookRuntime loads configuration, builds the AI client and scheduler,
// and starts draining bus events to bookDir/progress.md.
func newBookRuntime(bookDir string) (*bookRuntime, error) {
	mgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	log := logger(cfg)

	_, client, err := buildClient(cfg, log)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(0)
	sched := buildScheduler(cfg, log, bus)
	rec := bookEventLog(bookDir, bus)
	met := metrics.NewRecorder(bus)

	return &bookRuntime{
		Config:      cfg,
		Client:      client,
		Scheduler:   sched,
		Bus:         bus,
		Metrics:     met,
		Logger:      log,
		logRecorder: rec,
	}, nil
}

// clientConfig builds the aiclient.AnalyzeConfig every phase call shares
// from rt's loaded configuration.
func (r *bookRuntime) clientConfig() aiclient.AnalyzeConfig {
	return aiclient.AnalyzeConfig{
		Model:       r.Config.AI.Model,
		Temperature: r.Config.AI.Temperature,
		MaxTokens:   r.Config.AI.MaxTokens,
	}
}

// loadBookFromSource parses sourcePath (a JSON book manifest; see
// internal/bookparse.JSONParser) into a *bookparse.Book.
func loadBookFromSource(sourcePath string) (*bookparse.Book, error) {
	if sourcePath == "" {
		return nil, ierrors.Newf(ierrors.KindAuthOrConfig, "main.loadBookFromSource", "--source is required")
	}
	p := &bookparse.JSONParser{}
	return p.Parse(sourcePath)
}

// resolveBookID returns --book-id if set, otherwise the book directory's
// base name, deriving an identifier from the on-disk location when the
// caller does not supply one.
func resolveBookID(bookID, bookDir string) string {
	if bookID != "" {
		return bookID
	}
	return filepath.Base(filepath.Clean(bookDir))
}
