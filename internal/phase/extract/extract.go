// Package extract implements the Extract phase: catalog consolidation,
// deduplication, and markdown emission. A thin driver over shared
// state/catalog operations.
package extract

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/tribixbite/imaginize/internal/aiclient"
	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/events"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/metrics"
	"github.com/tribixbite/imaginize/internal/scheduler"
	"github.com/tribixbite/imaginize/internal/state"
	"github.com/tribixbite/imaginize/internal/store"
)

const elementsFileName = "Elements.md"

// Config configures one invocation of the Extract phase.
type Config struct {
	BookDir string
	BookID  string

	// Client/ClientCfg are only consulted when AIDescriptionEnrichment is
	// set; a nil Client with the flag set falls back to the simple
	// concatenation path silently.
	Client    aiclient.Client
	ClientCfg aiclient.AnalyzeConfig

	// Scheduler carries the enrichment AI calls, giving them the same
	// retry/backoff treatment as every other provider call.
	Scheduler *scheduler.Scheduler

	AIDescriptionEnrichment bool
	MergeStrategy           catalog.Strategy
	MatchConfidence         float64

	Bus    *events.Bus
	Logger *slog.Logger

	// Metrics records per-enrichment call cost/outcome. Nil disables
	// recording entirely.
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
	if c.MatchConfidence <= 0 {
		c.MatchConfidence = catalog.DefaultMatchConfidence
	}
	if c.Scheduler == nil {
		c.Scheduler = scheduler.New(scheduler.Config{})
	}
	return c
}

// Summary reports the outcome of one Extract invocation.
type Summary struct {
	EntitiesTotal      int
	EntitiesReconciled int
	EntitiesEnriched   int
	Status             state.Status
}

// Run consolidates every analyze shard into the Catalog, optionally
// collapses enrichment entries into coherent descriptions, and emits
// Elements.md.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	cfg = cfg.withDefaults()

	bs, err := state.LoadBookState(cfg.BookDir)
	if err != nil {
		return Summary{}, err
	}
	if bs == nil {
		bs = &state.BookState{}
	}

	shards, err := state.ListChapterShards(cfg.BookDir, state.PhaseAnalyze)
	if err != nil {
		return Summary{}, err
	}
	if !hasCompletedShard(shards) {
		return Summary{}, ierrors.Newf(ierrors.KindMissingPrerequisite, "extract.Run", "at least one completed analyze chapter is required")
	}

	cfg.Bus.PhaseStart(string(state.PhaseExtract))

	handle, err := state.LockCatalog(cfg.BookDir, state.DefaultLockTimeout)
	if err != nil {
		return Summary{}, err
	}

	c, err := state.LoadElements(cfg.BookDir)
	if err != nil {
		handle.Release()
		return Summary{}, err
	}

	reconciled := reconcileMissingEntities(ctx, c, shards, cfg)

	enriched := consolidateEnrichments(ctx, c, cfg)

	if err := state.SetElements(cfg.BookDir, c); err != nil {
		handle.Release()
		return Summary{}, err
	}
	handle.Release()

	if err := renderElements(cfg.BookDir, c); err != nil {
		return Summary{}, err
	}

	now := time.Now().UTC()
	bs.Phases = bs.Phases.Set(state.PhaseExtract, state.PhaseState{Status: state.StatusCompleted, CompletedAt: &now})
	if err := state.SaveBookState(cfg.BookDir, bs); err != nil {
		return Summary{}, err
	}

	cfg.Bus.PhaseComplete(string(state.PhaseExtract))

	return Summary{
		EntitiesTotal:      c.Len(),
		EntitiesReconciled: reconciled,
		EntitiesEnriched:   enriched,
		Status:             state.StatusCompleted,
	}, nil
}

func hasCompletedShard(shards []*state.ChapterShard) bool {
	for _, s := range shards {
		if s.Status == state.StatusCompleted {
			return true
		}
	}
	return false
}

// reconcileMissingEntities handles resume gaps: a chapter shard can
// name an entity (by canonical name only; shards do not carry type or
// description) that the persisted Catalog is missing, when a prior
// invocation crashed between the in-memory merge and SetElements. Since the
// shard carries no type/description to reconstruct a full Entity from, a
// missing name is folded in as a bare "object"-typed stub attributed to the
// shard's chapter; the next Analyze pass over the same chapter (or a
// manual re-run) supplies the real description via the normal merge path.
func reconcileMissingEntities(ctx context.Context, c *catalog.Catalog, shards []*state.ChapterShard, cfg Config) int {
	reconciled := 0
	for _, shard := range shards {
		if shard.Status != state.StatusCompleted {
			continue
		}
		for _, name := range shard.EntitiesMentioned {
			if c.FindAny(name) != nil {
				continue
			}
			cand := catalog.Candidate{
				Type:         catalog.TypeObject,
				Name:         name,
				BookID:       cfg.BookID,
				ChapterIndex: shard.ChapterIndex,
			}
			if _, err := c.MergeEntity(ctx, cand, cfg.MergeStrategy, nil, cfg.MatchConfidence); err != nil {
				cfg.Logger.Warn("extract: reconciliation merge failed", "entity", name, "error", err)
				continue
			}
			reconciled++
		}
	}
	return reconciled
}

// consolidateEnrichments collapses accumulated enrichments. When
// AIDescriptionEnrichment is disabled (or no client is wired), the
// simple-concatenation path is already satisfied by construction: every
// enrich-strategy merge during Analyze joined its new detail into
// Description as it was discovered, so there is nothing further to do here.
//
// Each entity's call runs as its own scheduler task, so a provider 429
// gets the scheduler's retry/backoff, and an entity whose call still
// fails after retries keeps its concatenated description without
// blocking enrichment of the rest of the catalog.
func consolidateEnrichments(ctx context.Context, c *catalog.Catalog, cfg Config) int {
	if !cfg.AIDescriptionEnrichment || cfg.Client == nil {
		return 0
	}

	var targets []*catalog.Entity
	var tasks []scheduler.Task
	for _, e := range c.All() {
		if len(e.Enrichments) < 2 {
			continue
		}
		details := make([]string, len(e.Enrichments))
		for i, enr := range e.Enrichments {
			details[i] = enr.Detail
		}
		e := e
		targets = append(targets, e)
		tasks = append(tasks, func(taskCtx context.Context) (any, error) {
			return cfg.Client.EnrichDescription(taskCtx, e.Description, details, cfg.ClientCfg)
		})
	}
	if len(tasks) == 0 {
		return 0
	}

	var mu sync.Mutex
	enriched := 0
	cfg.Scheduler.Run(ctx, string(state.PhaseExtract), tasks, func(res scheduler.Result) {
		e := targets[res.Index]

		mu.Lock()
		defer mu.Unlock()

		recordEnrichMetric(cfg, res.Err)
		if res.Cancelled {
			return
		}
		if res.Err != nil {
			cfg.Logger.Warn("extract: description enrichment failed, keeping concatenated description", "entity", e.Name, "error", res.Err)
			return
		}
		if collapsed, _ := res.Value.(string); collapsed != "" {
			e.Description = collapsed
			enriched++
		}
	})
	return enriched
}

func recordEnrichMetric(cfg Config, callErr error) {
	if cfg.Metrics == nil {
		return
	}
	errType := ""
	if callErr != nil {
		errType = callErr.Error()
	}
	cfg.Metrics.Record(metrics.Metric{
		BookID:    cfg.BookID,
		Stage:     string(state.PhaseExtract),
		Provider:  cfg.Client.Name(),
		Model:     cfg.ClientCfg.Model,
		Success:   callErr == nil,
		ErrorType: errType,
	})
}

func renderElements(dir string, c *catalog.Catalog) error {
	path := filepath.Join(dir, elementsFileName)
	handle, err := store.AcquireLock(path, state.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer handle.Release()
	return store.AtomicWrite(path, []byte(c.AsMarkdown()))
}
