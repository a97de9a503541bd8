package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tribixbite/imaginize/internal/aiclient"
	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/scheduler"
	"github.com/tribixbite/imaginize/internal/state"
)

func seedAnalyzePhase(t *testing.T, dir string) {
	t.Helper()
	completedAt := time.Now().UTC()
	shard := &state.ChapterShard{
		ChapterIndex:      2,
		Title:             "Chapter One",
		Status:            state.StatusCompleted,
		EntitiesMentioned: []string{"Mira", "Lantern Wood"},
		CompletedAt:       &completedAt,
	}
	if err := state.WriteChapterShard(dir, state.PhaseAnalyze, shard); err != nil {
		t.Fatalf("WriteChapterShard() error = %v", err)
	}
	if err := state.UpdateManifest(dir, state.PhaseAnalyze, func(m *state.Manifest) error {
		state.MoveChapter(m, 2, state.StatusCompleted)
		return nil
	}); err != nil {
		t.Fatalf("UpdateManifest() error = %v", err)
	}

	c := catalog.New()
	if _, err := c.MergeEntity(context.Background(), catalog.Candidate{
		Type: catalog.TypeCharacter, Name: "Mira", Description: "A quiet fox.", BookID: "book-1", ChapterIndex: 2,
	}, catalog.StrategyEnrich, nil, 0); err != nil {
		t.Fatalf("seed MergeEntity() error = %v", err)
	}
	if err := state.SetElements(dir, c); err != nil {
		t.Fatalf("SetElements() error = %v", err)
	}
}

func TestRun_RendersElementsAndMarksPhaseComplete(t *testing.T) {
	dir := t.TempDir()
	seedAnalyzePhase(t, dir)

	summary, err := Run(context.Background(), Config{BookDir: dir, BookID: "book-1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Status != state.StatusCompleted {
		t.Errorf("Status = %v, want completed", summary.Status)
	}
	// "Lantern Wood" was mentioned in the shard but never merged into the
	// catalog, so reconciliation should fold it in as a stub.
	if summary.EntitiesReconciled != 1 {
		t.Errorf("EntitiesReconciled = %d, want 1", summary.EntitiesReconciled)
	}

	data, err := os.ReadFile(filepath.Join(dir, elementsFileName))
	if err != nil {
		t.Fatalf("ReadFile(Elements.md) error = %v", err)
	}
	if !strings.Contains(string(data), "Mira") {
		t.Errorf("Elements.md missing Mira: %s", data)
	}
	if !strings.Contains(string(data), "Lantern Wood") {
		t.Errorf("Elements.md missing reconciled entity Lantern Wood: %s", data)
	}

	bs, err := state.LoadBookState(dir)
	if err != nil {
		t.Fatalf("LoadBookState() error = %v", err)
	}
	if bs == nil || bs.Phases.Extract.Status != state.StatusCompleted {
		t.Errorf("BookState extract phase = %+v, want completed", bs)
	}
}

func TestRun_FailsWithoutCompletedAnalyzeChapter(t *testing.T) {
	dir := t.TempDir()
	if _, err := Run(context.Background(), Config{BookDir: dir, BookID: "book-1"}); err == nil {
		t.Fatal("Run() expected error for missing analyze prerequisite, got nil")
	}
}

func TestRun_EnrichmentFailureIsIsolatedPerEntity(t *testing.T) {
	dir := t.TempDir()
	seedAnalyzePhase(t, dir)

	// Give Mira enough enrichment entries to qualify for AI consolidation.
	c, err := state.LoadElements(dir)
	if err != nil {
		t.Fatalf("LoadElements() error = %v", err)
	}
	for i, detail := range []string{"Wears a green scarf.", "Limps on the left paw."} {
		if _, err := c.MergeEntity(context.Background(), catalog.Candidate{
			Type: catalog.TypeCharacter, Name: "Mira", Description: detail, BookID: "book-1", ChapterIndex: 3 + i,
		}, catalog.StrategyEnrich, nil, 0); err != nil {
			t.Fatalf("seed MergeEntity() error = %v", err)
		}
	}
	if err := state.SetElements(dir, c); err != nil {
		t.Fatalf("SetElements() error = %v", err)
	}

	client := aiclient.NewMockClient()
	client.ShouldFail = true

	summary, err := Run(context.Background(), Config{
		BookDir:                 dir,
		BookID:                  "book-1",
		Client:                  client,
		AIDescriptionEnrichment: true,
		Scheduler:               scheduler.New(scheduler.Config{MaxConcurrency: 1, Tier: scheduler.TierPaid, MaxRetries: 1, BaseBackoff: time.Millisecond, RateLimitFloor: time.Millisecond}),
	})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (a failed enrichment call must not abort the phase)", err)
	}
	if summary.Status != state.StatusCompleted {
		t.Errorf("Status = %v, want completed", summary.Status)
	}
	if summary.EntitiesEnriched != 0 {
		t.Errorf("EntitiesEnriched = %d, want 0 when every enrichment call fails", summary.EntitiesEnriched)
	}

	// The concatenated description survives for the entity whose call failed.
	loaded, err := state.LoadElements(dir)
	if err != nil {
		t.Fatalf("LoadElements() error = %v", err)
	}
	mira := loaded.FindByAlias(catalog.TypeCharacter, "mira")
	if mira == nil {
		t.Fatalf("catalog missing Mira after Run")
	}
	if !strings.Contains(mira.Description, "green scarf") || !strings.Contains(mira.Description, "left paw") {
		t.Errorf("Mira description = %q, want concatenated details kept", mira.Description)
	}
}
