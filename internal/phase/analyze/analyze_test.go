package analyze

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tribixbite/imaginize/internal/aiclient"
	"github.com/tribixbite/imaginize/internal/bookparse"
	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/events"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/rescache"
	"github.com/tribixbite/imaginize/internal/scheduler"
	"github.com/tribixbite/imaginize/internal/state"
)

func testBook() *bookparse.Book {
	return &bookparse.Book{
		Title:      "The Riverlands Saga",
		TotalPages: 20,
		Chapters: []bookparse.ChapterSpec{
			{Index: 1, Title: "Copyright", PageRange: "1", RawText: "legal text", IsStoryContent: false},
			{Index: 2, Title: "Chapter One", PageRange: "2-6", RawText: "chapter one text", IsStoryContent: true},
			{Index: 3, Title: "Chapter Two", PageRange: "7-10", RawText: "chapter two text", IsStoryContent: true},
		},
	}
}

func testConfig(t *testing.T, client aiclient.Client) Config {
	return Config{
		BookDir:   t.TempDir(),
		BookID:    "book-1",
		Scheduler: scheduler.New(scheduler.Config{MaxConcurrency: 2, Tier: scheduler.TierPaid}),
		Client:    client,
		Cache:     rescache.New(0, 0),
		Bus:       events.NewBus(0),
	}
}

func TestRun_ProcessesWorklistAndPersistsState(t *testing.T) {
	cfg := testConfig(t, aiclient.NewMockClient())
	summary, err := Run(context.Background(), testBook(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.ChaptersProcessed != 2 {
		t.Errorf("ChaptersProcessed = %d, want 2 (only story chapters)", summary.ChaptersProcessed)
	}
	if summary.Status != state.StatusCompleted {
		t.Errorf("Status = %v, want completed", summary.Status)
	}

	bs, err := state.LoadBookState(cfg.BookDir)
	if err != nil {
		t.Fatalf("LoadBookState() error = %v", err)
	}
	if bs == nil || bs.Phases.Analyze.Status != state.StatusCompleted {
		t.Errorf("BookState analyze phase = %+v, want completed", bs)
	}

	manifest, err := state.ReadManifest(cfg.BookDir, state.PhaseAnalyze)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(manifest.CompletedChapters) != 2 {
		t.Errorf("manifest.CompletedChapters = %v, want 2 entries", manifest.CompletedChapters)
	}

	shard, err := state.ReadChapterShard(cfg.BookDir, state.PhaseAnalyze, 2)
	if err != nil {
		t.Fatalf("ReadChapterShard() error = %v", err)
	}
	if shard == nil || shard.Status != state.StatusCompleted {
		t.Errorf("shard for chapter 2 = %+v, want completed", shard)
	}
}

func TestRun_SkipsAlreadyCompletedChapters(t *testing.T) {
	cfg := testConfig(t, aiclient.NewMockClient())
	if _, err := Run(context.Background(), testBook(), cfg); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	summary, err := Run(context.Background(), testBook(), cfg)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if summary.ChaptersProcessed != 0 {
		t.Errorf("second Run() ChaptersProcessed = %d, want 0 (resume skips completed)", summary.ChaptersProcessed)
	}
}

func TestRun_ChapterFailureIsolatedWhenContinueOnFailure(t *testing.T) {
	mock := aiclient.NewMockClient()
	mock.ShouldFail = true
	cfg := testConfig(t, mock)
	cfg.ContinueOnFailure = true
	cfg.Scheduler = scheduler.New(scheduler.Config{MaxConcurrency: 1, Tier: scheduler.TierPaid, MaxRetries: 1, BaseBackoff: time.Millisecond})

	summary, err := Run(context.Background(), testBook(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil with ContinueOnFailure", err)
	}
	if summary.ChaptersFailed != 2 {
		t.Errorf("ChaptersFailed = %d, want 2", summary.ChaptersFailed)
	}

	manifest, err := state.ReadManifest(cfg.BookDir, state.PhaseAnalyze)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(manifest.FailedChapters) != 2 {
		t.Errorf("manifest.FailedChapters = %v, want 2 entries", manifest.FailedChapters)
	}
}

func TestComputeNumScenes(t *testing.T) {
	cases := []struct {
		pageRange     string
		pagesPerImage int
		want          int
	}{
		{"1-5", 1, 5},
		{"1-5", 2, 3},
		{"3", 1, 1},
		{"", 1, 1},
		{"not-a-range", 1, 1},
	}
	for _, c := range cases {
		if got := computeNumScenes(c.pageRange, c.pagesPerImage); got != c.want {
			t.Errorf("computeNumScenes(%q, %d) = %d, want %d", c.pageRange, c.pagesPerImage, got, c.want)
		}
	}
}

func TestClampScenes_AcceptsFewerThanTarget(t *testing.T) {
	scenes := []aiclient.Scene{{Quote: "a"}, {Quote: "bb"}}
	got := clampScenes(scenes, 5)
	if len(got) != 2 {
		t.Errorf("len(clampScenes) = %d, want 2 (fewer than target accepted)", len(got))
	}
}

func TestClampScenes_TruncatesBeyondDoubleTarget(t *testing.T) {
	scenes := []aiclient.Scene{
		{Quote: "short"},
		{Quote: "a much longer quote here"},
		{Quote: "medium length quote"},
		{Quote: "tiny"},
		{Quote: "another longer quote for testing purposes"},
	}
	got := clampScenes(scenes, 2) // target 2, max allowed 4
	if len(got) != 4 {
		t.Fatalf("len(clampScenes) = %d, want 4", len(got))
	}
	for _, s := range got {
		if s.Quote == "tiny" {
			t.Errorf("clampScenes kept shortest quote %q, want it dropped", s.Quote)
		}
	}
}

func TestComputeWorklist_ExcludesCompletedAndNonStory(t *testing.T) {
	book := testBook()
	manifest := &state.Manifest{CompletedChapters: []int{2}}
	got := computeWorklist(book.StoryChapters(), manifest, nil, 0, false)
	if len(got) != 1 || got[0].Index != 3 {
		t.Errorf("computeWorklist() = %+v, want only chapter 3", got)
	}
}

func TestComputeWorklist_ForceIncludesCompleted(t *testing.T) {
	book := testBook()
	manifest := &state.Manifest{CompletedChapters: []int{2}}
	got := computeWorklist(book.StoryChapters(), manifest, nil, 0, true)
	if len(got) != 2 {
		t.Errorf("computeWorklist(force) = %+v, want both story chapters", got)
	}
}

// flakyResolveClient fails its first N ResolveEntity calls with a rate
// limit, then resolves successfully; every other method comes from the
// embedded mock.
type flakyResolveClient struct {
	*aiclient.MockClient
	resolveFailures atomic.Int32
}

func (c *flakyResolveClient) ResolveEntity(ctx context.Context, entityType, candidateName, existingName string, cfg aiclient.AnalyzeConfig) (aiclient.ResolveResult, error) {
	if c.resolveFailures.Add(-1) >= 0 {
		return aiclient.ResolveResult{}, ierrors.Newf(ierrors.KindRateLimited, "resolveEntity", "simulated 429")
	}
	return aiclient.ResolveResult{IsMatch: true, Confidence: 0.9}, nil
}

func TestRun_ResolverRateLimitIsRetriedNotFatal(t *testing.T) {
	mock := aiclient.NewMockClient()
	mock.Entities = []aiclient.ExtractedEntity{
		{Type: "character", Name: "Jon Snow", Description: "bastard of Winterfell"},
		{Type: "character", Name: "Jon Targaryen", Description: "his true name"},
	}
	client := &flakyResolveClient{MockClient: mock}
	client.resolveFailures.Store(1)

	cfg := testConfig(t, client)
	cfg.Scheduler = scheduler.New(scheduler.Config{MaxConcurrency: 1, Tier: scheduler.TierPaid, MaxRetries: 3, BaseBackoff: time.Millisecond, RateLimitFloor: time.Millisecond})

	summary, err := Run(context.Background(), testBook(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (a transient resolver 429 must be retried, not phase-fatal)", err)
	}
	if summary.ChaptersFailed != 0 {
		t.Errorf("ChaptersFailed = %d, want 0", summary.ChaptersFailed)
	}

	c, err := state.LoadElements(cfg.BookDir)
	if err != nil {
		t.Fatalf("LoadElements() error = %v", err)
	}
	if got := len(c.ByType(catalog.TypeCharacter)); got != 1 {
		t.Errorf("characters = %d, want 1 (Jon Targaryen resolved into Jon Snow after retry)", got)
	}
}
