package state

import (
	"context"
	"testing"
	"time"

	"github.com/tribixbite/imaginize/internal/catalog"
)

func TestLoadBookState_MissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	bs, err := LoadBookState(dir)
	if err != nil {
		t.Fatalf("LoadBookState() error = %v", err)
	}
	if bs != nil {
		t.Errorf("LoadBookState() = %+v, want nil for fresh book", bs)
	}
}

func TestSaveAndLoadBookState_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	bs := &BookState{
		Version:    "1",
		BookTitle:  "A Song of Ice and Fire",
		TotalPages: 297,
	}
	bs.Phases = bs.Phases.Set(PhaseAnalyze, PhaseState{Status: StatusCompleted})

	if err := SaveBookState(dir, bs); err != nil {
		t.Fatalf("SaveBookState() error = %v", err)
	}

	got, err := LoadBookState(dir)
	if err != nil {
		t.Fatalf("LoadBookState() error = %v", err)
	}
	if got == nil {
		t.Fatalf("LoadBookState() = nil after save")
	}
	if got.BookTitle != bs.BookTitle || got.TotalPages != bs.TotalPages {
		t.Errorf("got %+v, want title/pages matching %+v", got, bs)
	}
	if got.Phases.Get(PhaseAnalyze).Status != StatusCompleted {
		t.Errorf("Phases.analyze.status = %q, want completed", got.Phases.Get(PhaseAnalyze).Status)
	}
	if got.LastUpdated.IsZero() {
		t.Errorf("LastUpdated not stamped by SaveBookState")
	}
}

func TestChapterShard_WriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	shard := &ChapterShard{
		ChapterIndex:  3,
		Title:         "The Kingsroad",
		Status:        StatusCompleted,
		SceneConcepts: []SceneConcept{{Index: 0, Description: "Bran climbing", Quote: "the wind was cold"}},
		TokensUsed:    1200,
	}
	if err := WriteChapterShard(dir, PhaseAnalyze, shard); err != nil {
		t.Fatalf("WriteChapterShard() error = %v", err)
	}

	got, err := ReadChapterShard(dir, PhaseAnalyze, 3)
	if err != nil {
		t.Fatalf("ReadChapterShard() error = %v", err)
	}
	if got == nil {
		t.Fatalf("ReadChapterShard() = nil after write")
	}
	if got.Title != shard.Title || len(got.SceneConcepts) != 1 {
		t.Errorf("got %+v, want matching %+v", got, shard)
	}
}

func TestReadChapterShard_MissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	got, err := ReadChapterShard(dir, PhaseExtract, 99)
	if err != nil {
		t.Fatalf("ReadChapterShard() error = %v", err)
	}
	if got != nil {
		t.Errorf("ReadChapterShard() = %+v, want nil for unstarted chapter", got)
	}
}

func TestUpdateManifest_MoveChapterThroughStates(t *testing.T) {
	dir := t.TempDir()

	err := UpdateManifest(dir, PhaseAnalyze, func(m *Manifest) error {
		MoveChapter(m, 1, StatusInProgress)
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateManifest() error = %v", err)
	}

	m, err := ReadManifest(dir, PhaseAnalyze)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(m.InProgressChapters) != 1 || m.InProgressChapters[0] != 1 {
		t.Fatalf("InProgressChapters = %v, want [1]", m.InProgressChapters)
	}

	err = UpdateManifest(dir, PhaseAnalyze, func(m *Manifest) error {
		MoveChapter(m, 1, StatusCompleted)
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateManifest() error = %v", err)
	}

	m, err = ReadManifest(dir, PhaseAnalyze)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(m.InProgressChapters) != 0 {
		t.Errorf("InProgressChapters = %v, want empty after completion", m.InProgressChapters)
	}
	if len(m.CompletedChapters) != 1 || m.CompletedChapters[0] != 1 {
		t.Errorf("CompletedChapters = %v, want [1]", m.CompletedChapters)
	}
}

func TestMoveChapter_NeverAppearsInTwoSets(t *testing.T) {
	m := &Manifest{}
	MoveChapter(m, 5, StatusFailed)
	MoveChapter(m, 5, StatusInProgress)
	MoveChapter(m, 5, StatusCompleted)

	if len(m.FailedChapters) != 0 || len(m.InProgressChapters) != 0 {
		t.Errorf("chapter 5 lingered in a stale set: failed=%v inProgress=%v", m.FailedChapters, m.InProgressChapters)
	}
	if len(m.CompletedChapters) != 1 || m.CompletedChapters[0] != 5 {
		t.Errorf("CompletedChapters = %v, want [5]", m.CompletedChapters)
	}
}

func TestSetAndLoadElements_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := catalog.New()
	if _, err := c.MergeEntity(context.Background(), catalog.Candidate{
		Type:         catalog.TypeCharacter,
		Name:         "Jon Snow",
		Description:  "bastard of Winterfell",
		BookID:       "book-1",
		ChapterIndex: 1,
	}, catalog.StrategyEnrich, nil, 0); err != nil {
		t.Fatalf("MergeEntity() error = %v", err)
	}

	if err := SetElements(dir, c); err != nil {
		t.Fatalf("SetElements() error = %v", err)
	}

	loaded, err := LoadElements(dir)
	if err != nil {
		t.Fatalf("LoadElements() error = %v", err)
	}
	if loaded.Len() != 1 {
		t.Fatalf("LoadElements() Len() = %d, want 1", loaded.Len())
	}
	e := loaded.Get(catalog.Key{Type: catalog.TypeCharacter, Name: "jon snow"})
	if e == nil || e.Description != "bastard of Winterfell" {
		t.Errorf("loaded entity = %+v, want Jon Snow with matching description", e)
	}
}

func TestLoadElements_MissingReturnsEmptyCatalog(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadElements(dir)
	if err != nil {
		t.Fatalf("LoadElements() error = %v", err)
	}
	if c == nil || c.Len() != 0 {
		t.Errorf("LoadElements() = %+v, want empty non-nil catalog", c)
	}
}

func TestLockCatalog_ExclusiveAcrossCallers(t *testing.T) {
	dir := t.TempDir()
	h, err := LockCatalog(dir, 2*time.Second)
	if err != nil {
		t.Fatalf("LockCatalog() error = %v", err)
	}
	defer h.Release()

	if _, err := LockCatalog(dir, 100*time.Millisecond); err == nil {
		t.Errorf("second LockCatalog() error = nil, want timeout while first lock held")
	}
}
