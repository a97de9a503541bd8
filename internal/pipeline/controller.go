// Package pipeline implements the pipeline controller: phase ordering,
// resume, phase gating, and the series bridge hooks around each phase.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/tribixbite/imaginize/internal/bookparse"
	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/events"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/metrics"
	"github.com/tribixbite/imaginize/internal/phase/analyze"
	"github.com/tribixbite/imaginize/internal/phase/extract"
	"github.com/tribixbite/imaginize/internal/phase/illustrate"
	"github.com/tribixbite/imaginize/internal/series"
	"github.com/tribixbite/imaginize/internal/state"
)

// Config configures a full pipeline run: the book-level settings every
// phase needs plus the series bridge's settings. The per-phase Configs may
// be zero-valued; BookDir/BookID/Bus/Logger are filled in from the
// top-level fields before each phase runs.
type Config struct {
	BookDir string
	BookID  string

	SeriesRoot    string
	SeriesEnabled bool
	MergeStrategy catalog.Strategy

	Analyze    analyze.Config
	Extract    extract.Config
	Illustrate illustrate.Config

	Bus     *events.Bus
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Bus == nil {
		c.Bus = events.NewBus(0)
	}
	if c.MergeStrategy == "" {
		c.MergeStrategy = catalog.StrategyEnrich
	}
	return c
}

// Result is RunAll's combined outcome.
type Result struct {
	Analyze    analyze.Summary
	Extract    extract.Summary
	Illustrate illustrate.Summary
}

// RunAnalyze runs the Analyze phase, preceded by the series bridge's
// pre-Analyze import hook when series mode is enabled.
func RunAnalyze(ctx context.Context, book *bookparse.Book, cfg Config) (analyze.Summary, error) {
	cfg = cfg.withDefaults()
	cfg.Analyze.BookDir = cfg.BookDir
	cfg.Analyze.BookID = cfg.BookID
	cfg.Analyze.Bus = cfg.Bus
	if cfg.Analyze.Logger == nil {
		cfg.Analyze.Logger = cfg.Logger
	}
	if cfg.Analyze.Metrics == nil {
		cfg.Analyze.Metrics = cfg.Metrics
	}

	if err := ReconcileManifest(cfg.BookDir, state.PhaseAnalyze, indicesOf(book.StoryChapters())); err != nil {
		cfg.Logger.Warn("pipeline: manifest reconciliation failed", "phase", "analyze", "error", err)
	}

	if cfg.SeriesEnabled {
		importSeriesMemory(ctx, cfg)
	}

	return analyze.Run(ctx, book, cfg.Analyze)
}

// RunExtract runs the Extract phase, gated on at least one completed
// Analyze chapter, followed by the series bridge's post-Extract export
// hook.
func RunExtract(ctx context.Context, cfg Config) (extract.Summary, error) {
	cfg = cfg.withDefaults()
	cfg.Extract.BookDir = cfg.BookDir
	cfg.Extract.BookID = cfg.BookID
	cfg.Extract.Bus = cfg.Bus
	if cfg.Extract.Logger == nil {
		cfg.Extract.Logger = cfg.Logger
	}
	if cfg.Extract.MergeStrategy == "" {
		cfg.Extract.MergeStrategy = cfg.MergeStrategy
	}
	if cfg.Extract.Metrics == nil {
		cfg.Extract.Metrics = cfg.Metrics
	}

	if err := CheckExtractPrerequisite(cfg.BookDir); err != nil {
		return extract.Summary{}, err
	}

	summary, err := extract.Run(ctx, cfg.Extract)
	if err != nil {
		return summary, err
	}

	if cfg.SeriesEnabled {
		exportSeriesMemory(ctx, cfg)
	}

	return summary, nil
}

// RunIllustrate runs the Illustrate phase, gated on Extract having
// completed (the Catalog must be persisted before prompt enrichment can
// consult it).
func RunIllustrate(ctx context.Context, book *bookparse.Book, cfg Config) (illustrate.Summary, error) {
	cfg = cfg.withDefaults()
	cfg.Illustrate.BookDir = cfg.BookDir
	cfg.Illustrate.BookID = cfg.BookID
	cfg.Illustrate.Bus = cfg.Bus
	if cfg.Illustrate.Logger == nil {
		cfg.Illustrate.Logger = cfg.Logger
	}
	if cfg.Illustrate.Metrics == nil {
		cfg.Illustrate.Metrics = cfg.Metrics
	}

	if err := CheckIllustratePrerequisite(cfg.BookDir); err != nil {
		return illustrate.Summary{}, err
	}

	return illustrate.Run(ctx, book, cfg.Illustrate)
}

// RunAll drives every phase in order, stopping at the first phase that
// returns an error.
func RunAll(ctx context.Context, book *bookparse.Book, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	var result Result
	var err error

	result.Analyze, err = RunAnalyze(ctx, book, cfg)
	if err != nil {
		return result, err
	}

	result.Extract, err = RunExtract(ctx, cfg)
	if err != nil {
		return result, err
	}

	result.Illustrate, err = RunIllustrate(ctx, book, cfg)
	if err != nil {
		return result, err
	}

	return result, nil
}

// CheckExtractPrerequisite gates Extract: at least one Analyze chapter
// must be completed.
func CheckExtractPrerequisite(dir string) error {
	m, err := state.ReadManifest(dir, state.PhaseAnalyze)
	if err != nil {
		return err
	}
	if len(m.CompletedChapters) == 0 {
		return ierrors.Newf(ierrors.KindMissingPrerequisite, "pipeline.CheckExtractPrerequisite", "extract requires at least one completed analyze chapter")
	}
	return nil
}

// CheckIllustratePrerequisite gates Illustrate: Extract must have
// completed (the Catalog is persisted).
func CheckIllustratePrerequisite(dir string) error {
	bs, err := state.LoadBookState(dir)
	if err != nil {
		return err
	}
	if bs == nil || bs.Phases.Extract.Status != state.StatusCompleted {
		return ierrors.Newf(ierrors.KindMissingPrerequisite, "pipeline.CheckIllustratePrerequisite", "illustrate requires extract to be completed")
	}
	return nil
}

func importSeriesMemory(ctx context.Context, cfg Config) {
	bridge := series.New(cfg.SeriesRoot, cfg.BookID, cfg.Logger)
	c, err := state.LoadElements(cfg.BookDir)
	if err != nil {
		cfg.Logger.Warn("pipeline: could not load catalog for series import", "error", err)
		return
	}
	if _, err := bridge.Import(ctx, c, cfg.MergeStrategy); err != nil {
		cfg.Logger.Warn("pipeline: series import failed, proceeding without series context", "error", err)
		return
	}
	if err := state.SetElements(cfg.BookDir, c); err != nil {
		cfg.Logger.Warn("pipeline: failed to persist series-imported catalog", "error", err)
	}
}

func exportSeriesMemory(ctx context.Context, cfg Config) {
	bridge := series.New(cfg.SeriesRoot, cfg.BookID, cfg.Logger)
	c, err := state.LoadElements(cfg.BookDir)
	if err != nil {
		cfg.Logger.Warn("pipeline: could not load catalog for series export", "error", err)
		return
	}
	if _, err := bridge.Export(ctx, c, cfg.MergeStrategy); err != nil {
		cfg.Logger.Warn("pipeline: series export failed", "error", err)
	}
}

func indicesOf(chapters []bookparse.ChapterSpec) []int {
	out := make([]int, len(chapters))
	for i, ch := range chapters {
		out[i] = ch.Index
	}
	return out
}
