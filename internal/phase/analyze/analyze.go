// Package analyze implements the Analyze phase: the per-chapter driver
// that calls the AI facade to populate chapter shards and grow the book's
// Catalog. A thin driver over shared state/scheduler/catalog operations.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/tribixbite/imaginize/internal/aiclient"
	"github.com/tribixbite/imaginize/internal/bookparse"
	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/chapterselect"
	"github.com/tribixbite/imaginize/internal/events"
	"github.com/tribixbite/imaginize/internal/metrics"
	"github.com/tribixbite/imaginize/internal/render"
	"github.com/tribixbite/imaginize/internal/rescache"
	"github.com/tribixbite/imaginize/internal/scheduler"
	"github.com/tribixbite/imaginize/internal/state"
	"github.com/tribixbite/imaginize/internal/store"
)

const contentsFileName = "Contents.md"

// Config configures one invocation of the Analyze phase.
type Config struct {
	BookDir   string
	BookID    string
	Scheduler *scheduler.Scheduler
	Client    aiclient.Client
	ClientCfg aiclient.AnalyzeConfig
	Cache     *rescache.Cache
	Bus       *events.Bus
	Logger    *slog.Logger

	// Metrics records per-chapter call cost/token usage. Nil disables
	// recording entirely.
	Metrics *metrics.Recorder

	PagesPerImage     int
	Chapters          []int // chapter-selection expression result; nil = no filter
	Limit             int   // 0 = no limit
	Force             bool
	ContinueOnFailure bool
	MatchConfidence   float64
}

func (c Config) withDefaults() Config {
	if c.PagesPerImage <= 0 {
		c.PagesPerImage = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.MatchConfidence <= 0 {
		c.MatchConfidence = catalog.DefaultMatchConfidence
	}
	if c.Bus == nil {
		c.Bus = events.NewBus(0)
	}
	if c.Cache == nil {
		c.Cache = rescache.New(0, 0)
	}
	if c.Scheduler == nil {
		c.Scheduler = scheduler.New(scheduler.Config{})
	}
	return c
}

// Summary reports the outcome of one Analyze invocation.
type Summary struct {
	ChaptersProcessed int
	ChaptersFailed    int
	ChaptersSkipped   int
	TokensUsed        int64
	Status            state.Status
}

// Run drives the Analyze phase against book: compute the chapter
// worklist, fan the per-chapter AI calls out through the scheduler, and
// record each outcome in its shard and the manifest.
func Run(ctx context.Context, book *bookparse.Book, cfg Config) (Summary, error) {
	cfg = cfg.withDefaults()

	bs, err := state.LoadBookState(cfg.BookDir)
	if err != nil {
		return Summary{}, err
	}
	if bs == nil {
		bs = &state.BookState{BookTitle: book.Title, TotalPages: book.TotalPages}
	}

	manifest, err := state.ReadManifest(cfg.BookDir, state.PhaseAnalyze)
	if err != nil {
		return Summary{}, err
	}

	// Under force, completed chapters stay in the worklist so they re-run
	// from pending after their shards are cleared.
	worklist := computeWorklist(book.StoryChapters(), manifest, cfg.Chapters, cfg.Limit, cfg.Force)

	if cfg.Force {
		if err := resetChapters(cfg.BookDir, worklist); err != nil {
			return Summary{}, err
		}
	}

	if len(worklist) == 0 {
		return Summary{Status: state.StatusCompleted}, nil
	}

	cfg.Bus.PhaseStart(string(state.PhaseAnalyze))

	if err := state.UpdateManifest(cfg.BookDir, state.PhaseAnalyze, func(m *state.Manifest) error {
		for _, ch := range worklist {
			state.MoveChapter(m, ch.Index, state.StatusInProgress)
		}
		return nil
	}); err != nil {
		return Summary{}, err
	}

	resolver := &cachingResolver{cache: cfg.Cache, client: cfg.Client, cfg: cfg.ClientCfg, sched: cfg.Scheduler}

	tasks := make([]scheduler.Task, len(worklist))
	for i, ch := range worklist {
		ch := ch
		tasks[i] = func(taskCtx context.Context) (any, error) {
			cfg.Bus.ChapterStart(string(state.PhaseAnalyze), ch.Index)
			return cfg.Client.AnalyzeChapterUnified(taskCtx, ch.RawText, buildElementContext(mustCatalog(cfg.BookDir), cfg.BookID), computeNumScenes(ch.PageRange, cfg.PagesPerImage), cfg.ClientCfg)
		}
	}

	var mu sync.Mutex
	var summary Summary
	var runErr error
	cfg.Scheduler.Run(ctx, string(state.PhaseAnalyze), tasks, func(res scheduler.Result) {
		ch := worklist[res.Index]

		// onResult may be invoked concurrently by the scheduler (one
		// goroutine per in-flight task), so every mutation of summary/runErr
		// below is serialized by mu. The per-chapter state.* calls are
		// already safe on their own (writer-per-key shards, locked
		// manifest/catalog).
		mu.Lock()
		defer mu.Unlock()

		if res.Cancelled {
			summary.ChaptersSkipped++
			return
		}
		if res.Err != nil {
			summary.ChaptersFailed++
			recordMetric(cfg, ch.Index, 0, false, res.Err.Error())
			if err := writeFailedShard(cfg.BookDir, ch, res.Err); err != nil {
				cfg.Logger.Warn("analyze: failed to persist failed shard", "chapter", ch.Index, "error", err)
			}
			if err := state.UpdateManifest(cfg.BookDir, state.PhaseAnalyze, func(m *state.Manifest) error {
				state.MoveChapter(m, ch.Index, state.StatusFailed)
				return nil
			}); err != nil {
				cfg.Logger.Warn("analyze: failed to update manifest for failed chapter", "chapter", ch.Index, "error", err)
			}
			return
		}

		result, ok := res.Value.(aiclient.AnalyzeResult)
		if !ok {
			summary.ChaptersFailed++
			return
		}

		if err := finishChapter(ctx, cfg, resolver, ch, result); err != nil {
			runErr = err
			summary.ChaptersFailed++
			recordMetric(cfg, ch.Index, result.TokensUsed, false, err.Error())
			if werr := writeFailedShard(cfg.BookDir, ch, err); werr != nil {
				cfg.Logger.Warn("analyze: failed to persist failed shard", "chapter", ch.Index, "error", werr)
			}
			if merr := state.UpdateManifest(cfg.BookDir, state.PhaseAnalyze, func(m *state.Manifest) error {
				state.MoveChapter(m, ch.Index, state.StatusFailed)
				return nil
			}); merr != nil {
				cfg.Logger.Warn("analyze: failed to update manifest for failed chapter", "chapter", ch.Index, "error", merr)
			}
			return
		}
		summary.ChaptersProcessed++
		summary.TokensUsed += result.TokensUsed
		recordMetric(cfg, ch.Index, result.TokensUsed, true, "")
		cfg.Bus.ChapterComplete(string(state.PhaseAnalyze), ch.Index)
	})
	if runErr != nil && !cfg.ContinueOnFailure {
		return summary, runErr
	}

	status := state.StatusCompleted
	if summary.ChaptersFailed > 0 && !cfg.ContinueOnFailure {
		status = state.StatusFailed
	}
	summary.Status = status

	now := time.Now().UTC()
	bs.Phases = bs.Phases.Set(state.PhaseAnalyze, state.PhaseState{Status: status, CompletedAt: &now})
	bs.TokenStats.TotalUsed += summary.TokensUsed
	if err := state.SaveBookState(cfg.BookDir, bs); err != nil {
		return summary, err
	}

	if err := store.AtomicWrite(filepath.Join(cfg.BookDir, contentsFileName), []byte(render.Contents(book))); err != nil {
		cfg.Logger.Warn("analyze: failed to write Contents.md", "error", err)
	}

	cfg.Bus.PhaseComplete(string(state.PhaseAnalyze))
	return summary, nil
}

// finishChapter completes one successfully analyzed chapter: merge
// entities under the catalog lock, write the shard, and move the chapter
// to completed in the manifest.
func finishChapter(ctx context.Context, cfg Config, resolver catalog.Resolver, ch bookparse.ChapterSpec, result aiclient.AnalyzeResult) error {
	scenes := clampScenes(result.Scenes, computeNumScenes(ch.PageRange, cfg.PagesPerImage))

	mentioned, err := mergeEntities(ctx, cfg, resolver, ch, result.Entities)
	if err != nil {
		return err
	}

	shard := &state.ChapterShard{
		ChapterIndex:      ch.Index,
		Title:             ch.Title,
		Status:            state.StatusCompleted,
		SceneConcepts:     toSceneConcepts(ch, scenes),
		EntitiesMentioned: mentioned,
		TokensUsed:        result.TokensUsed,
	}
	completedAt := time.Now().UTC()
	shard.CompletedAt = &completedAt
	if err := state.WriteChapterShard(cfg.BookDir, state.PhaseAnalyze, shard); err != nil {
		return err
	}

	return state.UpdateManifest(cfg.BookDir, state.PhaseAnalyze, func(m *state.Manifest) error {
		state.MoveChapter(m, ch.Index, state.StatusCompleted)
		return nil
	})
}

// mergeEntities merges every entity Analyze found for ch into the book's
// Catalog under the catalog file lock, returning the canonical names now
// associated with ch for the shard's entitiesMentioned field.
func mergeEntities(ctx context.Context, cfg Config, resolver catalog.Resolver, ch bookparse.ChapterSpec, found []aiclient.ExtractedEntity) ([]string, error) {
	if len(found) == 0 {
		return nil, nil
	}

	handle, err := state.LockCatalog(cfg.BookDir, state.DefaultLockTimeout)
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	c, err := state.LoadElements(cfg.BookDir)
	if err != nil {
		return nil, err
	}

	mentioned := make([]string, 0, len(found))
	for _, fe := range found {
		quotes := make([]catalog.Quote, 0, len(fe.Quotes))
		for _, q := range fe.Quotes {
			quotes = append(quotes, catalog.Quote{Text: q, PageRef: ch.PageRange})
		}
		cand := catalog.Candidate{
			Type:         catalog.EntityType(fe.Type),
			Name:         fe.Name,
			Description:  fe.Description,
			Quotes:       quotes,
			BookID:       cfg.BookID,
			ChapterIndex: ch.Index,
		}
		res, err := c.MergeEntity(ctx, cand, catalog.StrategyEnrich, resolver, cfg.MatchConfidence)
		if err != nil {
			// Preserve the underlying error's kind; a resolver rate-limit
			// exhaustion must not be reclassified on the way up.
			return nil, fmt.Errorf("analyze: merge entity %q: %w", fe.Name, err)
		}
		mentioned = append(mentioned, res.Matched.Name)
	}

	if err := state.SetElements(cfg.BookDir, c); err != nil {
		return nil, err
	}
	return mentioned, nil
}

func toSceneConcepts(ch bookparse.ChapterSpec, scenes []aiclient.Scene) []state.SceneConcept {
	out := make([]state.SceneConcept, len(scenes))
	for i, s := range scenes {
		pageRange := s.PageRef
		if pageRange == "" {
			pageRange = ch.PageRange
		}
		out[i] = state.SceneConcept{
			ID:          state.SceneID(ch.Index, i+1),
			Index:       i + 1,
			PageRange:   pageRange,
			Description: s.Description,
			Quote:       s.Quote,
			Entities:    s.Entities,
		}
	}
	return out
}

func writeFailedShard(dir string, ch bookparse.ChapterSpec, cause error) error {
	shard := &state.ChapterShard{
		ChapterIndex: ch.Index,
		Title:        ch.Title,
		Status:       state.StatusFailed,
		Error:        cause.Error(),
	}
	return state.WriteChapterShard(dir, state.PhaseAnalyze, shard)
}

// computeWorklist selects story chapters minus already-completed
// chapters, filtered by the chapter-selection expression, truncated by
// limit.
func computeWorklist(story []bookparse.ChapterSpec, manifest *state.Manifest, selection []int, limit int, force bool) []bookparse.ChapterSpec {
	completed := make(map[int]bool, len(manifest.CompletedChapters))
	for _, idx := range manifest.CompletedChapters {
		completed[idx] = true
	}

	var out []bookparse.ChapterSpec
	for _, ch := range story {
		if completed[ch.Index] && !force {
			continue
		}
		if !chapterselect.Contains(selection, ch.Index) {
			continue
		}
		out = append(out, ch)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// resetChapters implements the force flag: clear the manifest entries and
// shards for the affected chapters so they re-run from pending.
func resetChapters(dir string, chapters []bookparse.ChapterSpec) error {
	return state.UpdateManifest(dir, state.PhaseAnalyze, func(m *state.Manifest) error {
		for _, ch := range chapters {
			if err := state.WriteChapterShard(dir, state.PhaseAnalyze, &state.ChapterShard{ChapterIndex: ch.Index, Status: state.StatusPending}); err != nil {
				return err
			}
			state.MoveChapter(m, ch.Index, state.StatusPending)
		}
		return nil
	})
}

// recordMetric logs one chapter's analyze call to cfg.Metrics, when
// configured. A nil Metrics leaves the phase's behavior unchanged.
func recordMetric(cfg Config, chapterIndex int, tokens int64, success bool, errType string) {
	if cfg.Metrics == nil {
		return
	}
	cfg.Metrics.Record(metrics.Metric{
		BookID:       cfg.BookID,
		Stage:        string(state.PhaseAnalyze),
		ChapterIndex: chapterIndex,
		Provider:     cfg.Client.Name(),
		Model:        cfg.ClientCfg.Model,
		TotalTokens:  tokens,
		Success:      success,
		ErrorType:    errType,
	})
}

// mustCatalog loads the current Catalog for element-context building. A
// load failure here degrades to an empty context rather than aborting the
// chapter's AI call outright; buildElementContext over an empty catalog
// simply carries no prior-mention context forward.
func mustCatalog(dir string) *catalog.Catalog {
	c, err := state.LoadElements(dir)
	if err != nil {
		return catalog.New()
	}
	return c
}
