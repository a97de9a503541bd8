package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/tribixbite/imaginize/internal/aiclient"
	"github.com/tribixbite/imaginize/internal/bookparse"
	"github.com/tribixbite/imaginize/internal/phase/analyze"
	"github.com/tribixbite/imaginize/internal/phase/extract"
	"github.com/tribixbite/imaginize/internal/phase/illustrate"
	"github.com/tribixbite/imaginize/internal/rescache"
	"github.com/tribixbite/imaginize/internal/scheduler"
	"github.com/tribixbite/imaginize/internal/state"
)

func testBook() *bookparse.Book {
	return &bookparse.Book{
		Title: "The Riverlands Saga",
		Chapters: []bookparse.ChapterSpec{
			{Index: 2, Title: "Chapter One", PageRange: "2-6", RawText: "chapter one text", IsStoryContent: true},
		},
	}
}

func TestCheckExtractPrerequisite_FailsWithoutCompletedAnalyzeChapter(t *testing.T) {
	dir := t.TempDir()
	if err := CheckExtractPrerequisite(dir); err == nil {
		t.Fatal("CheckExtractPrerequisite() expected error, got nil")
	}
}

func TestCheckExtractPrerequisite_PassesWithCompletedAnalyzeChapter(t *testing.T) {
	dir := t.TempDir()
	if err := state.UpdateManifest(dir, state.PhaseAnalyze, func(m *state.Manifest) error {
		state.MoveChapter(m, 2, state.StatusCompleted)
		return nil
	}); err != nil {
		t.Fatalf("seed UpdateManifest() error = %v", err)
	}
	if err := CheckExtractPrerequisite(dir); err != nil {
		t.Errorf("CheckExtractPrerequisite() error = %v, want nil", err)
	}
}

func TestCheckIllustratePrerequisite_RequiresExtractCompleted(t *testing.T) {
	dir := t.TempDir()
	if err := CheckIllustratePrerequisite(dir); err == nil {
		t.Fatal("CheckIllustratePrerequisite() expected error for missing BookState, got nil")
	}

	bs := &state.BookState{BookTitle: "The Riverlands Saga"}
	bs.Phases = bs.Phases.Set(state.PhaseExtract, state.PhaseState{Status: state.StatusCompleted})
	if err := state.SaveBookState(dir, bs); err != nil {
		t.Fatalf("seed SaveBookState() error = %v", err)
	}
	if err := CheckIllustratePrerequisite(dir); err != nil {
		t.Errorf("CheckIllustratePrerequisite() error = %v, want nil", err)
	}
}

func TestReconcileManifest_RequeuesChapterWithCompletedShardButNoManifestEntry(t *testing.T) {
	dir := t.TempDir()

	completedAt := time.Now().UTC()
	if err := state.WriteChapterShard(dir, state.PhaseAnalyze, &state.ChapterShard{
		ChapterIndex: 2, Status: state.StatusCompleted, CompletedAt: &completedAt,
	}); err != nil {
		t.Fatalf("seed WriteChapterShard() error = %v", err)
	}
	// The manifest never learned about chapter 2's completion, as if the
	// process crashed between the shard write and the manifest update.
	// The resume rule requires BOTH to agree; a completed shard
	// with no manifest entry is requeued, never promoted.

	if err := ReconcileManifest(dir, state.PhaseAnalyze, []int{2}); err != nil {
		t.Fatalf("ReconcileManifest() error = %v", err)
	}

	m, err := state.ReadManifest(dir, state.PhaseAnalyze)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if containsInt(m.CompletedChapters, 2) {
		t.Errorf("CompletedChapters = %v, want NOT to contain 2 (shard/manifest mismatch must requeue, not promote)", m.CompletedChapters)
	}
	if containsInt(m.InProgressChapters, 2) || containsInt(m.FailedChapters, 2) {
		t.Errorf("manifest = %+v, want chapter 2 pending (absent from every set)", m)
	}
}

func TestReconcileManifest_RequeuesChapterMissingItsShard(t *testing.T) {
	dir := t.TempDir()

	if err := state.UpdateManifest(dir, state.PhaseAnalyze, func(m *state.Manifest) error {
		state.MoveChapter(m, 2, state.StatusCompleted)
		return nil
	}); err != nil {
		t.Fatalf("seed UpdateManifest() error = %v", err)
	}
	// No shard was ever written for chapter 2.

	if err := ReconcileManifest(dir, state.PhaseAnalyze, []int{2}); err != nil {
		t.Fatalf("ReconcileManifest() error = %v", err)
	}

	m, err := state.ReadManifest(dir, state.PhaseAnalyze)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if containsInt(m.CompletedChapters, 2) {
		t.Errorf("CompletedChapters = %v, want chapter 2 requeued out of completed", m.CompletedChapters)
	}
}

func TestResetFrom_CascadesThroughDownstreamPhases(t *testing.T) {
	dir := t.TempDir()

	phases := []state.Phase{state.PhaseAnalyze, state.PhaseExtract, state.PhaseIllustrate}
	for _, phase := range phases {
		if err := state.UpdateManifest(dir, phase, func(m *state.Manifest) error {
			state.MoveChapter(m, 2, state.StatusCompleted)
			return nil
		}); err != nil {
			t.Fatalf("seed UpdateManifest(%s) error = %v", phase, err)
		}
	}
	bs := &state.BookState{BookTitle: "The Riverlands Saga"}
	for _, phase := range phases {
		bs.Phases = bs.Phases.Set(phase, state.PhaseState{Status: state.StatusCompleted})
	}
	if err := state.SaveBookState(dir, bs); err != nil {
		t.Fatalf("seed SaveBookState() error = %v", err)
	}

	if err := ResetFrom(dir, state.PhaseAnalyze); err != nil {
		t.Fatalf("ResetFrom() error = %v", err)
	}

	for _, phase := range phases {
		m, err := state.ReadManifest(dir, phase)
		if err != nil {
			t.Fatalf("ReadManifest(%s) error = %v", phase, err)
		}
		if len(m.CompletedChapters) != 0 {
			t.Errorf("phase %s CompletedChapters = %v, want empty after reset", phase, m.CompletedChapters)
		}
	}

	bs2, err := state.LoadBookState(dir)
	if err != nil {
		t.Fatalf("LoadBookState() error = %v", err)
	}
	for _, phase := range phases {
		if bs2.Phases.Get(phase).Status == state.StatusCompleted {
			t.Errorf("phase %s still marked completed after reset", phase)
		}
	}
}

func TestRunAll_DrivesAllThreePhasesWithAMockClient(t *testing.T) {
	dir := t.TempDir()
	client := aiclient.NewMockClient()

	cfg := Config{
		BookDir:    dir,
		BookID:     "book-1",
		Analyze:    analyzeConfig(client),
		Extract:    extractConfig(client),
		Illustrate: illustrateConfig(client),
	}

	result, err := RunAll(context.Background(), testBook(), cfg)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if result.Analyze.Status != state.StatusCompleted {
		t.Errorf("Analyze.Status = %v, want completed", result.Analyze.Status)
	}
	if result.Extract.Status != state.StatusCompleted {
		t.Errorf("Extract.Status = %v, want completed", result.Extract.Status)
	}
	if result.Illustrate.Status != state.StatusCompleted {
		t.Errorf("Illustrate.Status = %v, want completed", result.Illustrate.Status)
	}
}

func TestRunIllustrate_FailsWhenExtractNeverRan(t *testing.T) {
	dir := t.TempDir()
	client := aiclient.NewMockClient()

	if _, err := RunAnalyze(context.Background(), testBook(), Config{
		BookDir: dir,
		BookID:  "book-1",
		Analyze: analyzeConfig(client),
	}); err != nil {
		t.Fatalf("RunAnalyze() error = %v", err)
	}

	if _, err := RunIllustrate(context.Background(), testBook(), Config{
		BookDir:    dir,
		BookID:     "book-1",
		Illustrate: illustrateConfig(client),
	}); err == nil {
		t.Fatal("RunIllustrate() expected error without a completed extract phase, got nil")
	}
}

func analyzeConfig(client aiclient.Client) analyze.Config {
	return analyze.Config{
		Scheduler: scheduler.New(scheduler.Config{MaxConcurrency: 2, Tier: scheduler.TierPaid}),
		Client:    client,
		Cache:     rescache.New(0, 0),
	}
}

func extractConfig(client aiclient.Client) extract.Config {
	return extract.Config{
		Client: client,
	}
}

func illustrateConfig(client aiclient.Client) illustrate.Config {
	return illustrate.Config{
		Scheduler: scheduler.New(scheduler.Config{MaxConcurrency: 2, Tier: scheduler.TierPaid}),
		Client:    client,
	}
}
