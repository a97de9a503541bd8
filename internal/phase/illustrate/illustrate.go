// Package illustrate implements the Illustrate phase: per-scene prompt
// enrichment, image generation through the rate-limit scheduler, and
// atomic image persistence.
package illustrate

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/tribixbite/imaginize/internal/aiclient"
	"github.com/tribixbite/imaginize/internal/bookparse"
	"github.com/tribixbite/imaginize/internal/chapterselect"
	"github.com/tribixbite/imaginize/internal/events"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/metrics"
	"github.com/tribixbite/imaginize/internal/render"
	"github.com/tribixbite/imaginize/internal/scheduler"
	"github.com/tribixbite/imaginize/internal/state"
	"github.com/tribixbite/imaginize/internal/store"
)

const chaptersFileName = "Chapters.md"

// Config configures one invocation of the Illustrate phase.
type Config struct {
	BookDir   string
	BookID    string
	Scheduler *scheduler.Scheduler
	Client    aiclient.Client
	ClientCfg aiclient.AnalyzeConfig
	Bus       *events.Bus
	Logger    *slog.Logger

	ImageSize         string
	ChapterTitleSlug  bool // prepend a sanitized chapter-title slug to image filenames
	Chapters          []int
	Limit             int
	Force             bool
	ContinueOnFailure bool

	// LocalPool runs the CPU-bound prompt-enrichment pass off the AI
	// scheduler's concurrency budget.
	LocalPool *scheduler.LocalPool

	// Metrics records per-scene image-generation call cost/outcome. Nil
	// disables recording entirely.
	Metrics *metrics.Recorder
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Bus == nil {
		c.Bus = events.NewBus(0)
	}
	if c.ImageSize == "" {
		c.ImageSize = "1024x1024"
	}
	if c.LocalPool == nil {
		c.LocalPool = scheduler.NewLocalPool(0)
	}
	return c
}

// Summary reports the outcome of one Illustrate invocation.
type Summary struct {
	ScenesProcessed int
	ScenesFailed    int
	ScenesSkipped   int
	Status          state.Status
}

// chapterWork tracks one chapter's scenes as they are generated. scenes is
// only ever mutated at distinct indices (one per scene), so no per-chapter
// lock is required beyond the shared remaining counter.
type chapterWork struct {
	chapter   bookparse.ChapterSpec
	scenes    []state.SceneConcept
	remaining int
}

// Run generates one image per scene for every chapter in the worklist:
// enrich the prompt from the catalog, call the image endpoint through the
// scheduler, and persist the bytes atomically.
func Run(ctx context.Context, book *bookparse.Book, cfg Config) (Summary, error) {
	cfg = cfg.withDefaults()

	bs, err := state.LoadBookState(cfg.BookDir)
	if err != nil {
		return Summary{}, err
	}
	if bs == nil || bs.Phases.Extract.Status != state.StatusCompleted {
		return Summary{}, ierrors.Newf(ierrors.KindMissingPrerequisite, "illustrate.Run", "extract phase must complete before illustrate")
	}

	analyzeManifest, err := state.ReadManifest(cfg.BookDir, state.PhaseAnalyze)
	if err != nil {
		return Summary{}, err
	}
	illustrateManifest, err := state.ReadManifest(cfg.BookDir, state.PhaseIllustrate)
	if err != nil {
		return Summary{}, err
	}

	cat, err := state.LoadElements(cfg.BookDir)
	if err != nil {
		return Summary{}, err
	}

	chapterIndices := computeChapterWorklist(analyzeManifest.CompletedChapters, illustrateManifest.CompletedChapters, cfg.Chapters, cfg.Limit, cfg.Force)
	if len(chapterIndices) == 0 {
		return Summary{Status: state.StatusCompleted}, nil
	}

	cfg.Bus.PhaseStart(string(state.PhaseIllustrate))

	var mu sync.Mutex
	var summary Summary
	var runErr error

	type taskRef struct {
		cw       *chapterWork
		scenePos int
	}
	var refs []taskRef
	var promptTasks []scheduler.LocalTask

	for _, idx := range chapterIndices {
		ch := book.Chapter(idx)
		if ch == nil {
			continue
		}
		scenes, err := loadBaselineScenes(cfg.BookDir, idx)
		if err != nil {
			return summary, err
		}
		cw := &chapterWork{chapter: *ch, scenes: scenes}

		for i := range cw.scenes {
			if !cfg.Force && cw.scenes[i].GeneratedImagePath != "" {
				continue
			}
			cw.remaining++
			scenePos := i
			description, quote := cw.scenes[scenePos].Description, cw.scenes[scenePos].Quote
			promptTasks = append(promptTasks, func() any {
				return enrichPrompt(description, quote, cat)
			})
			refs = append(refs, taskRef{cw: cw, scenePos: scenePos})
		}

		if cw.remaining == 0 {
			if err := finalizeChapter(cfg, cw); err != nil {
				runErr = err
			}
		}
	}

	// Prompt enrichment is CPU-bound text matching
	// against the catalog; it runs on the local pool so it never competes
	// with the AI scheduler's concurrency budget for image generation.
	prompts := cfg.LocalPool.Run(ctx, promptTasks)

	tasks := make([]scheduler.Task, len(refs))
	for i := range refs {
		prompt, _ := prompts[i].(string)
		tasks[i] = func(taskCtx context.Context) (any, error) {
			return cfg.Client.GenerateImage(taskCtx, prompt, cfg.ImageSize, cfg.ClientCfg)
		}
	}

	cfg.Scheduler.Run(ctx, string(state.PhaseIllustrate), tasks, func(res scheduler.Result) {
		ref := refs[res.Index]
		cw := ref.cw

		mu.Lock()
		defer mu.Unlock()

		switch {
		case res.Cancelled:
			summary.ScenesSkipped++
			cw.scenes[ref.scenePos].Failed = true
			cw.scenes[ref.scenePos].Error = "cancelled"
		case res.Err != nil:
			summary.ScenesFailed++
			cw.scenes[ref.scenePos].Failed = true
			cw.scenes[ref.scenePos].Error = res.Err.Error()
			recordSceneMetric(cfg, cw.chapter.Index, false, res.Err.Error())
		default:
			imgBytes, ok := res.Value.([]byte)
			if !ok {
				summary.ScenesFailed++
				cw.scenes[ref.scenePos].Failed = true
				cw.scenes[ref.scenePos].Error = "generateImage returned an unexpected result type"
				recordSceneMetric(cfg, cw.chapter.Index, false, cw.scenes[ref.scenePos].Error)
				break
			}
			filename := render.SceneImageFileName(cw.chapter.Index, cw.scenes[ref.scenePos].Index, cw.chapter.Title, cfg.ChapterTitleSlug)
			path := filepath.Join(cfg.BookDir, filename)
			if err := store.AtomicWrite(path, imgBytes); err != nil {
				summary.ScenesFailed++
				cw.scenes[ref.scenePos].Failed = true
				cw.scenes[ref.scenePos].Error = err.Error()
				recordSceneMetric(cfg, cw.chapter.Index, false, err.Error())
				break
			}
			cw.scenes[ref.scenePos].GeneratedImagePath = filename
			cw.scenes[ref.scenePos].Failed = false
			cw.scenes[ref.scenePos].Error = ""
			summary.ScenesProcessed++
			recordSceneMetric(cfg, cw.chapter.Index, true, "")
			cfg.Bus.ImageComplete(string(state.PhaseIllustrate), cw.chapter.Index, filename)
		}

		cw.remaining--
		if cw.remaining == 0 {
			if err := finalizeChapter(cfg, cw); err != nil {
				runErr = err
			}
		}
	})

	if runErr != nil && !cfg.ContinueOnFailure {
		return summary, runErr
	}

	status := state.StatusCompleted
	if summary.ScenesFailed > 0 && !cfg.ContinueOnFailure {
		status = state.StatusFailed
	}
	summary.Status = status

	now := time.Now().UTC()
	bs.Phases = bs.Phases.Set(state.PhaseIllustrate, state.PhaseState{Status: status, CompletedAt: &now})
	if err := state.SaveBookState(cfg.BookDir, bs); err != nil {
		return summary, err
	}

	if err := renderChapters(cfg.BookDir, book); err != nil {
		return summary, err
	}

	cfg.Bus.PhaseComplete(string(state.PhaseIllustrate))
	return summary, nil
}

// recordSceneMetric logs one scene's image-generation call to cfg.Metrics,
// when configured. A nil Metrics leaves the phase's behavior unchanged.
func recordSceneMetric(cfg Config, chapterIndex int, success bool, errType string) {
	if cfg.Metrics == nil {
		return
	}
	cfg.Metrics.Record(metrics.Metric{
		BookID:       cfg.BookID,
		Stage:        string(state.PhaseIllustrate),
		ChapterIndex: chapterIndex,
		Provider:     cfg.Client.Name(),
		Model:        cfg.ClientCfg.Model,
		Success:      success,
		ErrorType:    errType,
	})
}

// loadBaselineScenes resumes from a prior Illustrate shard when present
// (carrying forward any already-generated image paths); otherwise it seeds
// scenes fresh from the Analyze shard.
func loadBaselineScenes(dir string, chapterIndex int) ([]state.SceneConcept, error) {
	if shard, err := state.ReadChapterShard(dir, state.PhaseIllustrate, chapterIndex); err != nil {
		return nil, err
	} else if shard != nil {
		return shard.SceneConcepts, nil
	}

	shard, err := state.ReadChapterShard(dir, state.PhaseAnalyze, chapterIndex)
	if err != nil {
		return nil, err
	}
	if shard == nil {
		return nil, nil
	}
	return shard.SceneConcepts, nil
}

// finalizeChapter persists cw's scenes as the chapter's Illustrate shard
// and records the chapter's completion status in the Illustrate manifest
// (per-scene failures are isolated; the phase continues).
func finalizeChapter(cfg Config, cw *chapterWork) error {
	status := state.StatusCompleted
	for _, s := range cw.scenes {
		if s.Failed {
			status = state.StatusFailed
			break
		}
	}
	if status == state.StatusFailed && cfg.ContinueOnFailure {
		status = state.StatusCompleted
	}

	shard := &state.ChapterShard{
		ChapterIndex:  cw.chapter.Index,
		Title:         cw.chapter.Title,
		Status:        status,
		SceneConcepts: cw.scenes,
	}
	completedAt := time.Now().UTC()
	shard.CompletedAt = &completedAt
	if err := state.WriteChapterShard(cfg.BookDir, state.PhaseIllustrate, shard); err != nil {
		return err
	}

	if err := state.UpdateManifest(cfg.BookDir, state.PhaseIllustrate, func(m *state.Manifest) error {
		state.MoveChapter(m, cw.chapter.Index, status)
		return nil
	}); err != nil {
		return err
	}

	cfg.Bus.ChapterComplete(string(state.PhaseIllustrate), cw.chapter.Index)
	return nil
}

// computeChapterWorklist mirrors analyze's computeWorklist: completed
// Analyze chapters minus already-completed Illustrate chapters (unless
// force), filtered by selection and truncated by limit.
func computeChapterWorklist(analyzeCompleted, illustrateCompleted, selection []int, limit int, force bool) []int {
	done := make(map[int]bool, len(illustrateCompleted))
	if !force {
		for _, idx := range illustrateCompleted {
			done[idx] = true
		}
	}

	var out []int
	for _, idx := range analyzeCompleted {
		if done[idx] {
			continue
		}
		if !chapterselect.Contains(selection, idx) {
			continue
		}
		out = append(out, idx)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func renderChapters(dir string, book *bookparse.Book) error {
	shards, err := state.ListChapterShards(dir, state.PhaseIllustrate)
	if err != nil {
		return err
	}
	byChapter := make(map[int]*state.ChapterShard, len(shards))
	for _, s := range shards {
		byChapter[s.ChapterIndex] = s
	}

	path := filepath.Join(dir, chaptersFileName)
	handle, err := store.AcquireLock(path, state.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer handle.Release()
	return store.AtomicWrite(path, []byte(render.Chapters(book, byChapter)))
}
