// Package series implements the series catalog bridge: the pre-Analyze
// import and post-Extract export of the series memory, the Catalog-shaped
// file shared by every book under a series root.
package series

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/seriesconfig"
	"github.com/tribixbite/imaginize/internal/store"
)

const (
	seriesMemoryFileName = ".series-elements-memory.json"
	lockTimeout          = 30 * time.Second
)

// Bridge mediates a single book's access to the series-wide memory
// catalog. Failures here are by policy non-fatal to the book's own
// pipeline: Import and Export log their own failure and report it as false
// plus the error, and the pipeline controller logs it and carries on.
type Bridge struct {
	SeriesRoot string
	BookID     string
	Logger     *slog.Logger
}

// New returns a Bridge rooted at seriesRoot for the given book ID. A nil
// logger defaults to slog.Default().
func New(seriesRoot, bookID string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{SeriesRoot: seriesRoot, BookID: bookID, Logger: logger}
}

func (b *Bridge) memoryPath() string {
	return filepath.Join(b.SeriesRoot, seriesMemoryFileName)
}

// Import performs the pre-Analyze hook: it merges every SeriesMemory
// entity that needsImport selects into bookCatalog, using strategy. Returns (didImport, error); a false/non-nil result means the
// bridge itself failed and the caller should proceed without series
// context rather than aborting its own pipeline.
func (b *Bridge) Import(ctx context.Context, bookCatalog *catalog.Catalog, strategy catalog.Strategy) (bool, error) {
	handle, err := store.AcquireLock(b.memoryPath(), lockTimeout)
	if err != nil {
		b.Logger.Warn("series bridge: could not acquire SeriesMemory lock for import", "error", err)
		return false, err
	}
	defer handle.Release()

	memory, err := b.readMemoryLocked()
	if err != nil {
		b.Logger.Warn("series bridge: could not read SeriesMemory", "error", err)
		return false, err
	}

	for _, e := range memory.All() {
		if !b.needsImport(e) {
			continue
		}
		cand := catalog.Candidate{
			Type:         e.Type,
			Name:         e.Name,
			Description:  e.Description,
			Quotes:       e.Quotes,
			BookID:       e.FirstAppearance.BookID,
			ChapterIndex: e.FirstAppearance.ChapterIndex,
		}
		if _, err := bookCatalog.MergeEntity(ctx, cand, strategy, nil, catalog.DefaultMatchConfidence); err != nil {
			b.Logger.Warn("series bridge: import merge failed", "entity", e.Name, "error", err)
		}
	}
	return true, nil
}

// needsImport reports whether e should be imported into this book's
// catalog: its first appearance belongs to a different book, or it has no
// recorded appearance in this book yet.
func (b *Bridge) needsImport(e *catalog.Entity) bool {
	if e.FirstAppearance.BookID != b.BookID {
		return true
	}
	return len(e.Appearances[b.BookID]) == 0
}

// Export performs the post-Extract hook: it merges bookCatalog's entities
// back into SeriesMemory under strategy and writes the result atomically.
func (b *Bridge) Export(ctx context.Context, bookCatalog *catalog.Catalog, strategy catalog.Strategy) (bool, error) {
	handle, err := store.AcquireLock(b.memoryPath(), lockTimeout)
	if err != nil {
		b.Logger.Warn("series bridge: could not acquire SeriesMemory lock for export", "error", err)
		return false, err
	}
	defer handle.Release()

	memory, err := b.readMemoryLocked()
	if err != nil {
		b.Logger.Warn("series bridge: could not read SeriesMemory", "error", err)
		return false, err
	}

	memory.MergeCatalog(ctx, bookCatalog, strategy, b.BookID)

	data, err := json.MarshalIndent(memory, "", "  ")
	if err != nil {
		b.Logger.Warn("series bridge: could not marshal SeriesMemory", "error", err)
		return false, ierrors.New(ierrors.KindTransientIO, "series.Export", err)
	}
	if err := store.AtomicWrite(b.memoryPath(), data); err != nil {
		b.Logger.Warn("series bridge: could not write SeriesMemory", "error", err)
		return false, err
	}
	return true, nil
}

// readMemoryLocked reads SeriesMemory, returning an empty Catalog if the
// file does not yet exist. Caller must already hold the SeriesMemory lock.
func (b *Bridge) readMemoryLocked() (*catalog.Catalog, error) {
	if !store.Exists(b.memoryPath()) {
		return catalog.New(), nil
	}
	data, err := store.AtomicRead(b.memoryPath(), 3, 50*time.Millisecond)
	if err != nil {
		return nil, ierrors.New(ierrors.KindTransientIO, "series.readMemory", err).WithPath(b.memoryPath())
	}
	c := catalog.New()
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, ierrors.New(ierrors.KindAuthOrConfig, "series.readMemory", err).WithPath(b.memoryPath())
	}
	return c, nil
}

// LoadConfig loads the SeriesConfig at the series root, or nil if absent
// (series mode disabled for this run).
func (b *Bridge) LoadConfig() (*seriesconfig.SeriesConfig, error) {
	return seriesconfig.Load(filepath.Join(b.SeriesRoot, ".imaginize.series.json"))
}
